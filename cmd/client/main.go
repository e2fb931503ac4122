package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/SlpAus/csd-vote-backend/internal/ballot"
	"github.com/SlpAus/csd-vote-backend/internal/client"
	"github.com/SlpAus/csd-vote-backend/internal/eligibility"
	"github.com/SlpAus/csd-vote-backend/internal/ranking"
)

// 一个命令行投票客户端，承担浏览器页面的角色：
// 资格检查 -> 排序 -> 打包提交。主要用于联调和演示。
func main() {
	ballotPath := flag.String("ballot", "config/ballot.json", "选票描述文件路径")
	server := flag.String("server", "http://localhost:8080", "服务器地址")
	zip := flag.String("zip", "", "邮编（可选）")
	rankArg := flag.String("rank", "", "按喜好顺序排列的条目ID，逗号分隔，例如 3,1,4")
	stateDir := flag.String("state", ".", "客户端状态文件的存放目录")
	flag.Parse()

	descriptor, err := ballot.Load(*ballotPath)
	if err != nil {
		fmt.Printf("无法加载选票描述: %v\n", err)
		os.Exit(1)
	}

	// 两个独立的存储位置，对应浏览器的localStorage和cookie
	signals := eligibility.Signals{
		UserAgent: "csd-vote-cli/" + runtime.GOOS,
		Timezone:  descriptor.Timezone,
	}
	gate := &eligibility.Gate{
		Durable: eligibility.NewFileStore(*stateDir + "/csd-client-storage.json"),
		Cookie:  eligibility.NewFileStore(*stateDir + "/csd-client-cookies.json"),
		Periods: descriptor.VotingPeriods,
		Signals: signals,
	}

	// 资格门：拒绝时不进入排序流程
	decision := gate.Check(time.Now())
	if !decision.Allowed {
		fmt.Printf("无法投票: %s\n", decision.Reason)
		os.Exit(1)
	}

	fmt.Println("当前可以投票，条目列表:")
	for _, e := range descriptor.Entries {
		fmt.Printf("  %d: %s\n", e.ID, e.Name)
	}

	// 按命令行给出的顺序模拟拖拽
	session := ranking.NewSession(descriptor.Entries, descriptor.Points)
	if *rankArg != "" {
		for i, part := range strings.Split(*rankArg, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				fmt.Printf("无效的条目ID '%s'\n", part)
				os.Exit(1)
			}
			if err := session.DragTo(id, i); err != nil {
				fmt.Printf("排序失败: %v\n", err)
				os.Exit(1)
			}
		}
	}

	preview := session.PointsPreview()
	fmt.Println("积分预览:")
	for i, v := range session.Snapshot() {
		marker := " "
		if v.Ranked {
			marker = "*"
		}
		fmt.Printf("  %s 条目%d -> %d分\n", marker, v.EntryID, preview[i])
	}

	submitter := client.NewSubmitter(client.Config{
		Endpoint:   *server + descriptor.APIPath,
		Gate:       gate,
		Descriptor: descriptor,
	})

	// 提交器会拒绝启动后立即提交的请求，等待几秒模拟真人操作
	fmt.Println("正在提交...")
	for {
		err = submitter.Submit(context.Background(), session.Snapshot(), *zip)
		if errors.Is(err, client.ErrTooSoon) {
			time.Sleep(time.Second)
			continue
		}
		break
	}

	if err != nil {
		var submitErr *client.SubmitError
		if errors.As(err, &submitErr) && submitErr.Retryable() {
			fmt.Printf("提交失败（可重试）: %v\n", err)
		} else {
			fmt.Printf("提交失败: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println("投票成功，感谢参与！")
}

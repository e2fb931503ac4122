package vote

import (
	"fmt"
	"time"

	"github.com/SlpAus/csd-vote-backend/internal/ballot"
	"github.com/SlpAus/csd-vote-backend/internal/platform/config"
	"github.com/SlpAus/csd-vote-backend/internal/platform/database"
	"github.com/SlpAus/csd-vote-backend/pkg/lifecycle"
)

// sessionResultCount 是巡检查询的投影结构
type sessionResultCount struct {
	VoteSessionID uint
	ResultCount   int
}

// RunReconciliation 扫描所有投票会话，找出积分行数量与配置条目数不一致的会话。
// 这种不一致无法由客户端纠正，只能上报给运维处理，因此这里只负责发现和告警。
// 返回发现的不一致会话数量。
func RunReconciliation(descriptorPath string) (int, error) {
	descriptor, err := ballot.Load(descriptorPath)
	if err != nil {
		return 0, fmt.Errorf("巡检无法加载选票配置: %w", err)
	}
	expected := len(descriptor.Entries)

	var rows []sessionResultCount
	err = database.DB.Model(&VoteSession{}).
		Select("vote_sessions.id as vote_session_id, count(vote_results.id) as result_count").
		Joins("left join vote_results on vote_results.vote_session_id = vote_sessions.id").
		Group("vote_sessions.id").
		Having("count(vote_results.id) <> ?", expected).
		Scan(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("巡检查询失败: %w", err)
	}

	for _, row := range rows {
		fmt.Printf("严重告警: 投票会话 %d 的积分行数量为 %d，期望 %d。数据可能在写入中途丢失。\n",
			row.VoteSessionID, row.ResultCount, expected)
	}

	return len(rows), nil
}

// StartReconciler 启动后台的持久化一致性巡检循环
// 它通过生命周期句柄响应停机信号
func StartReconciler(handle *lifecycle.Handle) {
	go func() {
		defer handle.Close()

		interval := time.Duration(config.Cfg.Ballot.ReconcileIntervalSeconds) * time.Second
		fmt.Printf("持久化一致性巡检已启动，间隔 %v。\n", interval)

		for {
			if err := handle.Sleep(interval); err != nil {
				fmt.Println("持久化一致性巡检收到停机信号，已退出。")
				return
			}

			count, err := RunReconciliation(config.Cfg.Ballot.DescriptorPath)
			if err != nil {
				fmt.Printf("巡检执行失败: %v\n", err)
				continue
			}
			if count == 0 {
				// 正常情况不刷屏，只在发现问题时告警
				continue
			}
		}
	}()
}

package vote

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SlpAus/csd-vote-backend/internal/ballot"
	"github.com/SlpAus/csd-vote-backend/internal/platform/config"
	"github.com/SlpAus/csd-vote-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
)

// SubmitRequestBody 定义了前端提交投票时，请求体的JSON结构
// votes的顺序就是界面上的最终排列顺序
type SubmitRequestBody struct {
	Votes       []SubmittedVote `json:"votes"`
	Zip         string          `json:"zip"`
	Token       string          `json:"token"`
	Fingerprint string          `json:"fingerprint"`
}

// SubmitVote 处理一次排序投票的提交
// 校验按固定顺序逐项进行，任何一项失败都立即拒绝整个请求
func SubmitVote(c *gin.Context) {
	// 1. 绑定并验证请求体
	// 缺少votes或token的请求直接视为格式错误
	var body SubmitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Votes) == 0 || body.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// 2. 计算token和指纹的摘要，原始值到此为止
	tokenHash := HashToken(body.Token)
	fingerprintHash := HashFingerprint(body.Fingerprint)

	// 3. 咨询性预检查：token是否已被使用
	used, err := IsTokenUsed(tokenHash)
	if err != nil {
		fmt.Printf("投票预检查失败: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Service unavailable"})
		return
	}
	if used {
		c.JSON(http.StatusConflict, gin.H{"error": "Token already used"})
		return
	}

	// 4. 重新加载权威的选票配置
	// 客户端渲染所用的配置不可信，服务器每次都读取自己的副本
	descriptor, err := ballot.Load(config.Cfg.Ballot.DescriptorPath)
	if err != nil {
		fmt.Printf("无法加载选票配置: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Service unavailable"})
		return
	}

	// 5. 校验当前是否处于投票窗口内（以服务器时钟为准）
	if descriptor.ActivePeriod(time.Now()) == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Voting is not currently open."})
		return
	}

	// 6. 校验所有提交的条目ID都属于配置的条目集合
	for _, v := range body.Votes {
		if !descriptor.HasEntry(v.ID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry"})
			return
		}
	}

	// 7. 组装会话记录，邮编在服务端截断
	zip := body.Zip
	if len(zip) > 5 {
		zip = zip[:5]
	}
	session := &VoteSession{
		TokenHash:       tokenHash,
		Zip:             zip,
		IPAddress:       c.ClientIP(),
		FingerprintHash: fingerprintHash,
	}

	// 8. 持久化会话和积分行
	// 唯一约束冲突说明预检查漏掉了一个并发的重复提交
	if err := PersistSubmission(session, body.Votes, descriptor.Points); err != nil {
		if database.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Token already used"})
			return
		}
		fmt.Printf("持久化投票失败: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Service unavailable"})
		return
	}

	// 9. 提交成功后把摘要写入缓存，供后续预检查使用
	recordTokenInCache(tokenHash)

	// 10. 成功返回
	c.JSON(http.StatusOK, gin.H{"success": true})
}

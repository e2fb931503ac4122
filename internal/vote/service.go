package vote

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/SlpAus/csd-vote-backend/internal/ballot"
	"github.com/SlpAus/csd-vote-backend/internal/platform/database"
	"gorm.io/gorm"
)

// SubmittedVote 是提交内容中单个条目的状态
// 条目在切片中的位置就是它在投票界面上的最终名次
type SubmittedVote struct {
	ID    int  `json:"id"`
	Voted bool `json:"voted"`
}

// HashToken 计算token的SHA-256十六进制摘要
// 原始token只在请求内存中存在，持久层和缓存都只见摘要
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// HashFingerprint 计算浏览器指纹的SHA-256十六进制摘要
func HashFingerprint(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}

// IsTokenUsed 是提交流程的咨询性预检查
// Redis健康时查询token缓存，否则退回到直接查询数据库
// 预检查只能提前拒绝明显的重放，真正的防线是数据库的唯一约束
func IsTokenUsed(tokenHash string) (bool, error) {
	if database.IsRedisHealthy() {
		used, err := checkTokenCache(tokenHash)
		if err == nil {
			return used, nil
		}
		// 缓存查询失败时不拒绝请求，退回数据库检查
		fmt.Printf("警告: token缓存查询失败，退回数据库检查: %v\n", err)
	}

	var count int64
	err := database.DB.Model(&VoteSession{}).Where("token_hash = ?", tokenHash).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("无法检查token是否已使用: %w", err)
	}
	return count > 0, nil
}

// AssignPoints 按积分表为一次提交计算每个条目的得分
// 已排序的条目按其在提交顺序中的名次取分，未排序的条目取保底积分
func AssignPoints(votes []SubmittedVote, ladder ballot.PointsLadder) []VoteResult {
	results := make([]VoteResult, 0, len(votes))
	for i, v := range votes {
		results = append(results, VoteResult{
			EntryID: v.ID,
			Points:  ladder.PointsFor(i, v.Voted),
		})
	}
	return results
}

// persistRetryLimit 是SQLite忙等待时的最大重试次数
const persistRetryLimit = 3

// PersistSubmission 在单个事务中写入投票会话和它的全部积分行
// 并发提交相同token时，TokenHash的唯一约束保证至多一个事务提交成功；
// 调用方应通过 database.IsDuplicateKeyError 识别落败的一方
// SQLite的忙等待错误会在这里重试，不会透传给调用方
func PersistSubmission(session *VoteSession, votes []SubmittedVote, ladder ballot.PointsLadder) error {
	var err error
	for attempt := 0; attempt < persistRetryLimit; attempt++ {
		if err = persistOnce(session, votes, ladder); err == nil || !database.IsRetryableError(err) {
			return err
		}
		fmt.Printf("警告: 投票写入遇到暂时性错误，正在重试 (%d/%d): %v\n", attempt+1, persistRetryLimit, err)
	}
	return err
}

func persistOnce(session *VoteSession, votes []SubmittedVote, ladder ballot.PointsLadder) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}

		results := AssignPoints(votes, ladder)
		for i := range results {
			results[i].VoteSessionID = session.ID
		}
		if err := tx.Omit("VoteSession").Create(&results).Error; err != nil {
			return fmt.Errorf("写入积分行失败: %w", err)
		}

		return nil
	})
}

package vote

import "time"

// VoteSession 定义了一次被接受的投票提交的持久化记录
// TokenHash上的唯一索引是防止同一token重复计票的唯一权威判据
type VoteSession struct {
	ID uint `gorm:"primaryKey"`

	// TokenHash 是提交token的SHA-256十六进制摘要，原始token绝不落库
	TokenHash string `gorm:"uniqueIndex;size:64;not null"`

	// Zip 是投票人自报的邮编，服务端截断到5个字符
	Zip string `gorm:"size:5"`

	// IPAddress 是提交请求的来源IP，仅用于审计
	IPAddress string `gorm:"size:45"`

	// FingerprintHash 是浏览器指纹的SHA-256十六进制摘要
	FingerprintHash string `gorm:"size:64"`

	CreatedAt time.Time
}

// VoteResult 定义了一次投票会话中单个条目获得的积分
// 每个会话为每个提交的条目各保留一行，随会话级联删除
type VoteResult struct {
	ID uint `gorm:"primaryKey"`

	VoteSessionID uint        `gorm:"index;not null"`
	VoteSession   VoteSession `gorm:"constraint:OnDelete:CASCADE"`

	EntryID int `gorm:"not null"`
	Points  int `gorm:"not null"`
}

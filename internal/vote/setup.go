package vote

import (
	"fmt"

	"github.com/SlpAus/csd-vote-backend/internal/platform/database"
)

// PrimeDB 负责初始化vote模块的数据库部分
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&VoteSession{}, &VoteResult{}); err != nil {
		return fmt.Errorf("无法迁移投票表: %w", err)
	}
	fmt.Println("投票数据库表迁移成功。")
	return nil
}

// PrimeModule 是vote模块的初始化总入口
// 先迁移数据库，再预热Redis中的token重放缓存
func PrimeModule() error {
	if err := PrimeDB(); err != nil {
		return err
	}

	if database.IsRedisHealthy() {
		if err := InitializeTokenCache(); err != nil {
			return err
		}
	} else {
		fmt.Println("Redis不可用，跳过token缓存预热，预检查将直接查询数据库。")
	}

	return nil
}

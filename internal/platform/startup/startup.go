package startup

import (
	"fmt"

	"github.com/SlpAus/csd-vote-backend/internal/vote"
)

// InitializeApplication 是应用首次启动时执行的总入口
func InitializeApplication() error {
	fmt.Println("开始应用首次初始化...")

	if err := vote.PrimeModule(); err != nil {
		return err
	}

	fmt.Println("应用初始化完成！")
	return nil
}

// RebuildCache 是一个专门用于在运行时热重建Redis缓存的函数
// 健康检查器在检测到Redis重启后调用它
func RebuildCache() error {
	fmt.Println("开始缓存热重建...")

	if err := vote.RecoverTokenCache(); err != nil {
		return err
	}

	fmt.Println("缓存热重建完成。")
	return nil
}

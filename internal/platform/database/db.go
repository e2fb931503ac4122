package database

import (
	"fmt"
	"log"
	"os"

	"github.com/SlpAus/csd-vote-backend/internal/platform/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库实例，供项目其他部分使用
var DB *gorm.DB

// InitDB 初始化数据库连接
// 默认使用SQLite；当配置中提供了Postgres DSN时，使用Postgres
func InitDB(cfg config.DatabaseConfig) {
	var err error

	// GORM日志配置
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 0,
			LogLevel:      logger.Silent, // 在生产环境中可以设为Silent
			Colorful:      true,
		},
	)

	gormCfg := &gorm.Config{
		Logger: newLogger,
		// 投票会话的token_hash唯一约束依赖此项返回可识别的重复键错误
		TranslateError: true,
	}

	if cfg.Postgres.DSN != "" {
		DB, err = gorm.Open(postgres.Open(cfg.Postgres.DSN), gormCfg)
	} else {
		DB, err = gorm.Open(sqlite.Open(cfg.Sqlite.Path), gormCfg)
	}

	if err != nil {
		fmt.Println("连接数据库失败", err)
		panic(err)
	}

	fmt.Println("数据库连接成功！")
}

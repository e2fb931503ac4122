package api

import (
	"net/http"

	"github.com/SlpAus/csd-vote-backend/internal/ballot"
	"github.com/SlpAus/csd-vote-backend/internal/platform/config"
	"github.com/SlpAus/csd-vote-backend/internal/vote"
	"github.com/gin-gonic/gin"
)

// defaultSubmitPath 是选票描述中未指定apiUrl时的提交路径
const defaultSubmitPath = "/api/vote"

// SetupRoutes 注册项目的所有API路由
// 提交路径取自选票描述文件，与客户端渲染所用的是同一份配置
func SetupRoutes(router *gin.Engine, cfg config.BallotConfig) error {
	descriptor, err := ballot.Load(cfg.DescriptorPath)
	if err != nil {
		return err
	}

	path := descriptor.APIPath
	if path == "" {
		path = defaultSubmitPath
	}

	// 只接受POST；其他方法由HandleMethodNotAllowed统一返回405
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	router.POST(path, vote.SubmitVote)

	return nil
}

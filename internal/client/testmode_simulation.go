//go:build simulation

package client

// simulationBuild 只在带 -tags simulation 的构建中为true
// 这种构建用于在没有可用后端时演练界面的终态流程，绝不应部署到生产环境
const simulationBuild = true

//go:build !simulation

package client

// simulationBuild 在普通构建下恒为false
// 因此"提交失败视为成功"的分支在生产二进制中不可达，
// 即使选票描述里把testMode设成了true
const simulationBuild = false

package eligibility

import (
	"time"

	"github.com/SlpAus/csd-vote-backend/internal/ballot"
)

// Store 是资格证明存储位置的抽象
// 两个实例分别对应浏览器的持久存储和cookie
type Store interface {
	// Get 返回键对应的值；键不存在时第二个返回值为false
	Get(key string) (string, bool)
	// Set 写入一个值；expires为零值时表示不过期
	Set(key, value string, expires time.Time) error
	// Available 报告存储当前是否可用
	Available() bool
}

// DenyReason 是资格检查拒绝放行的原因
type DenyReason string

const (
	// DenyStorageRequired 表示持久存储不可用，无法防止重复投票
	DenyStorageRequired DenyReason = "storage required"
	// DenyVotingClosed 表示当前没有激活的投票窗口
	DenyVotingClosed DenyReason = "voting closed"
	// DenyAlreadyVoted 表示本设备在当前窗口内已经投过票
	DenyAlreadyVoted DenyReason = "already voted"
)

// Decision 是一次资格检查的结果
type Decision struct {
	Allowed bool
	Reason  DenyReason
	// Period 是检查时激活的投票窗口，仅在找到窗口时非nil
	Period *ballot.VotingPeriod
}

// Gate 是客户端的投票资格门
// 它只依赖本地可重算的输入，不发起网络请求；服务端会独立重做等价校验
type Gate struct {
	Durable Store
	Cookie  Store
	Periods []ballot.VotingPeriod
	Signals Signals
}

// Check 按固定的优先级顺序评估投票资格
// 拒绝时界面不应渲染选票
func (g *Gate) Check(now time.Time) Decision {
	// 1. 两个存储位置都必须可用，否则无法记录资格证明
	if g.Durable == nil || g.Cookie == nil || !g.Durable.Available() || !g.Cookie.Available() {
		return Decision{Reason: DenyStorageRequired}
	}

	// 2. 必须存在激活的投票窗口（重叠时按声明顺序取第一个）
	var period *ballot.VotingPeriod
	for i := range g.Periods {
		if g.Periods[i].Contains(now) {
			period = &g.Periods[i]
			break
		}
	}
	if period == nil {
		return Decision{Reason: DenyVotingClosed}
	}

	// 3. 两处证明一致且匹配当前窗口和指纹时，视为已投票
	if g.hasVoted(period) {
		return Decision{Reason: DenyAlreadyVoted, Period: period}
	}

	return Decision{Allowed: true, Period: period}
}

// hasVoted 实现双存储的"AND"校验
// 任一存储缺失、两处不一致或证明无法解析，都保守地按未投票处理；
// 这不会放纵重复投票，因为服务端的token约束仍然兜底
func (g *Gate) hasVoted(period *ballot.VotingPeriod) bool {
	durableValue, okDurable := g.Durable.Get(ProofKey)
	cookieValue, okCookie := g.Cookie.Get(ProofKey)

	if !okDurable || !okCookie || durableValue != cookieValue {
		return false
	}

	proof, err := DecodeProof(durableValue)
	if err != nil {
		return false
	}

	return proof.Matches(period.Start, g.Signals)
}

// MarkVoted 在投票成功后把资格证明写入两个存储位置
// cookie一侧在窗口结束时过期，持久存储一侧长期保留
func (g *Gate) MarkVoted(period *ballot.VotingPeriod) error {
	encoded := NewProof(period.Start, g.Signals).Encode()

	if err := g.Durable.Set(ProofKey, encoded, time.Time{}); err != nil {
		return err
	}
	return g.Cookie.Set(ProofKey, encoded, period.End)
}

package eligibility

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// ProofKey 是资格证明在两个存储位置共用的键名
const ProofKey = "csd-uv"

// Proof 是投票完成后留在客户端的资格证明
// 它同时写入持久存储和一个在窗口结束时过期的cookie，两处必须一致才算数
type Proof struct {
	// PeriodStart 是投下这一票时激活窗口的开始时间（RFC3339）
	PeriodStart string `json:"p"`
	// Fingerprint 是投票时计算出的设备指纹
	Fingerprint string `json:"f"`
}

// NewProof 为一个投票窗口和一组环境信号构造资格证明
func NewProof(periodStart time.Time, signals Signals) Proof {
	return Proof{
		PeriodStart: periodStart.Format(time.RFC3339),
		Fingerprint: Fingerprint(signals),
	}
}

// Encode 将证明序列化为可直接写入存储的字符串
func (p Proof) Encode() string {
	data, _ := json.Marshal(p)
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeProof 从存储中的字符串还原证明
func DecodeProof(s string) (Proof, error) {
	var p Proof
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, err
	}
	return p, nil
}

// Matches 判断证明是否对应给定的窗口开始时间和当前指纹
func (p Proof) Matches(periodStart time.Time, signals Signals) bool {
	return p.PeriodStart == periodStart.Format(time.RFC3339) &&
		p.Fingerprint == Fingerprint(signals)
}

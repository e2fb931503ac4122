package eligibility

import "encoding/base64"

// Signals 是用于计算设备指纹的稳定环境信号
// 这些信号低熵且可被伪造，指纹只是提高随意重复投票的门槛，不是安全边界
type Signals struct {
	UserAgent string
	Timezone  string
}

// Fingerprint 根据环境信号确定性地计算设备指纹
// 相同的信号永远产生相同的指纹，服务端只保存它的摘要
func Fingerprint(s Signals) string {
	return base64.StdEncoding.EncodeToString([]byte(s.UserAgent + "|" + s.Timezone))
}

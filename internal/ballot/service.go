package ballot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultTimezone 是未配置时区时对窗口时间串使用的时区
const defaultTimezone = "America/Chicago"

// rawDescriptor 是ballot.json反序列化用的中间结构
// 投票窗口在文件中是成对的时间字符串，解析后才变成VotingPeriod
type rawDescriptor struct {
	Entries       []Entry    `mapstructure:"entries"`
	Points        []int      `mapstructure:"points"`
	VotingPeriods [][]string `mapstructure:"votingPeriods"`
	APIURL        string     `mapstructure:"apiUrl"`
	TestMode      bool       `mapstructure:"testMode"`
	Timezone      string     `mapstructure:"timezone"`
}

// Load 读取并校验一份选票描述文件
// 提交流程在每个请求上调用它，以保证服务器始终以磁盘上的配置为权威
func Load(path string) (*Descriptor, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取选票描述文件: %w", err)
	}

	var raw rawDescriptor
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("无法解析选票描述文件: %w", err)
	}

	return buildDescriptor(&raw)
}

// buildDescriptor 将中间结构转换为可用的Descriptor并校验不变量
func buildDescriptor(raw *rawDescriptor) (*Descriptor, error) {
	if len(raw.Entries) == 0 {
		return nil, errors.New("选票描述缺少条目")
	}
	if len(raw.Points) == 0 {
		return nil, errors.New("选票描述缺少积分表")
	}

	tz := raw.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 '%s': %w", tz, err)
	}

	d := &Descriptor{
		Entries:  raw.Entries,
		Points:   PointsLadder(raw.Points),
		APIPath:  raw.APIURL,
		TestMode: raw.TestMode,
		Timezone: tz,
	}

	for i, pair := range raw.VotingPeriods {
		if len(pair) != 2 {
			return nil, fmt.Errorf("投票窗口 #%d 不是[开始,结束]对", i)
		}
		start, err := parsePeriodTime(pair[0], loc)
		if err != nil {
			return nil, fmt.Errorf("投票窗口 #%d 的开始时间无效: %w", i, err)
		}
		end, err := parsePeriodTime(pair[1], loc)
		if err != nil {
			return nil, fmt.Errorf("投票窗口 #%d 的结束时间无效: %w", i, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("投票窗口 #%d 的结束时间早于开始时间", i)
		}
		d.VotingPeriods = append(d.VotingPeriods, VotingPeriod{Start: start, End: end})
	}

	return d, nil
}

// parsePeriodTime 解析窗口边界的时间字符串
// 与前端行为保持一致：先剔除所有空白字符，再按RFC3339或本地时间格式解析
func parsePeriodTime(s string, loc *time.Location) (time.Time, error) {
	compact := strings.Join(strings.Fields(s), "")
	if compact == "" {
		return time.Time{}, errors.New("时间字符串为空")
	}

	if t, err := time.Parse(time.RFC3339, compact); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", compact, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", compact, loc)
}

package ballot

import "time"

// Entry 定义了一个可以被排序的候选条目
// 条目集合由部署配置固定，投票中出现未知ID会被整票拒绝
type Entry struct {
	ID   int    `mapstructure:"id" json:"id"`
	Name string `mapstructure:"name" json:"name"`
}

// VotingPeriod 定义了一个允许提交投票的时间窗口
type VotingPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains 判断给定时刻是否落在本窗口内（边界包含）
func (p VotingPeriod) Contains(now time.Time) bool {
	return !now.Before(p.Start) && !now.After(p.End)
}

// PointsLadder 是按名次排列的积分表
// 下标0是第1名的积分，最后一项是所有未排序条目的保底积分
type PointsLadder []int

// UnrankedPoints 返回未排序条目的保底积分
func (l PointsLadder) UnrankedPoints() int {
	return l[len(l)-1]
}

// PointsFor 计算处于某个位置的条目应得的积分
// 只有被标记为已排序的条目才按名次取分，名次超出积分表长度时取保底积分
func (l PointsLadder) PointsFor(position int, ranked bool) int {
	if !ranked {
		return l.UnrankedPoints()
	}
	if position >= 0 && position < len(l) {
		return l[position]
	}
	return l.UnrankedPoints()
}

// Descriptor 是完整的选票描述，与ballot.json的结构一一对应
// 服务器和客户端各自从同一份文件独立加载；服务器绝不信任客户端回传的配置
type Descriptor struct {
	Entries       []Entry      `json:"entries"`
	Points        PointsLadder `json:"points"`
	VotingPeriods []VotingPeriod
	APIPath       string `json:"apiUrl"`
	TestMode      bool   `json:"testMode"`
	Timezone      string `json:"timezone"`
}

// ActivePeriod 返回当前时刻处于激活状态的投票窗口
// 如果配置中的窗口有重叠，按声明顺序取第一个匹配的窗口
func (d *Descriptor) ActivePeriod(now time.Time) *VotingPeriod {
	for i := range d.VotingPeriods {
		if d.VotingPeriods[i].Contains(now) {
			return &d.VotingPeriods[i]
		}
	}
	return nil
}

// HasEntry 判断一个条目ID是否属于配置的条目集合
func (d *Descriptor) HasEntry(id int) bool {
	for _, e := range d.Entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

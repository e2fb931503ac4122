package ranking

import (
	"fmt"

	"github.com/SlpAus/csd-vote-backend/internal/ballot"
)

// RankedVote 是快照中单个条目的状态
// 条目在快照中的位置就是它当前的显示顺序
type RankedVote struct {
	EntryID int
	Ranked  bool
}

// Session 维护一次投票过程中条目的显示顺序和已排序标记
// 它是显式传递的会话对象，排序状态不放在任何包级变量里
type Session struct {
	order  []int
	ranked map[int]bool
	ladder ballot.PointsLadder
}

// NewSession 按配置中的条目顺序创建一个新的排序会话
func NewSession(entries []ballot.Entry, ladder ballot.PointsLadder) *Session {
	order := make([]int, len(entries))
	for i, e := range entries {
		order[i] = e.ID
	}
	return &Session{
		order:  order,
		ranked: make(map[int]bool),
		ladder: ladder,
	}
}

// indexOf 返回条目在当前顺序中的位置
func (s *Session) indexOf(id int) int {
	for i, v := range s.order {
		if v == id {
			return i
		}
	}
	return -1
}

// DragTo 模拟一次拖拽：把条目移动到目标位置并标记为已排序
// 这与界面上"任何一次拖拽结束都会把条目放进排序区"的行为一致
func (s *Session) DragTo(id, index int) error {
	if err := s.MoveTo(id, index); err != nil {
		return err
	}
	s.ranked[id] = true
	return nil
}

// MoveTo 把条目移动到目标位置，不改变它的排序标记
func (s *Session) MoveTo(id, index int) error {
	from := s.indexOf(id)
	if from < 0 {
		return fmt.Errorf("未知的条目ID: %d", id)
	}
	if index < 0 || index >= len(s.order) {
		return fmt.Errorf("目标位置越界: %d", index)
	}

	// 先摘除再插入，保持其余条目的相对顺序
	s.order = append(s.order[:from], s.order[from+1:]...)
	s.order = append(s.order[:index], append([]int{id}, s.order[index:]...)...)
	return nil
}

// AnyRanked 报告是否至少有一个条目被放进了排序区
func (s *Session) AnyRanked() bool {
	return len(s.ranked) > 0
}

// Snapshot 按当前显示顺序输出每个条目的{ID, 是否已排序}
// 它是纯读取操作：没有排序变化时反复调用，结果完全一致
func (s *Session) Snapshot() []RankedVote {
	votes := make([]RankedVote, len(s.order))
	for i, id := range s.order {
		votes[i] = RankedVote{EntryID: id, Ranked: s.ranked[id]}
	}
	return votes
}

// PointsPreview 按当前顺序计算每个条目将获得的积分
// 它复用服务端同一套积分表算法，保证界面预览与最终计分一致
func (s *Session) PointsPreview() []int {
	points := make([]int, len(s.order))
	for i, id := range s.order {
		points[i] = s.ladder.PointsFor(i, s.ranked[id])
	}
	return points
}

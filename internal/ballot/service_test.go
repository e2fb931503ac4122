package ballot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDescriptor 把一份选票描述写入临时文件并返回路径
func writeDescriptor(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ballot.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validDescriptor = `{
	"entries": [
		{"id": 1, "name": "A"},
		{"id": 2, "name": "B"},
		{"id": 3, "name": "C"}
	],
	"points": [10, 6, 3, 1],
	"votingPeriods": [
		["2026-01-01T00:00:00", "2026-01-14T23:59:59"],
		["2026-06-01T00:00:00", "2026-06-14T23:59:59"]
	],
	"apiUrl": "/api/vote",
	"testMode": false,
	"timezone": "UTC"
}`

func TestLoad(t *testing.T) {
	t.Run("ValidDescriptor", func(t *testing.T) {
		d, err := Load(writeDescriptor(t, validDescriptor))
		require.NoError(t, err)

		assert.Len(t, d.Entries, 3)
		assert.Equal(t, PointsLadder([]int{10, 6, 3, 1}), d.Points)
		assert.Len(t, d.VotingPeriods, 2)
		assert.Equal(t, "/api/vote", d.APIPath)
		assert.False(t, d.TestMode)

		// 窗口时间按配置时区解析
		start := d.VotingPeriods[0].Start
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), start.UTC())
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("EmptyEntries", func(t *testing.T) {
		_, err := Load(writeDescriptor(t, `{"entries": [], "points": [1], "votingPeriods": []}`))
		assert.Error(t, err)
	})

	t.Run("EmptyLadder", func(t *testing.T) {
		_, err := Load(writeDescriptor(t, `{"entries": [{"id":1,"name":"A"}], "points": [], "votingPeriods": []}`))
		assert.Error(t, err)
	})

	t.Run("MalformedPeriod", func(t *testing.T) {
		_, err := Load(writeDescriptor(t, `{
			"entries": [{"id":1,"name":"A"}],
			"points": [1],
			"votingPeriods": [["2026-01-01T00:00:00"]]
		}`))
		assert.Error(t, err)
	})

	t.Run("PeriodWithStrayWhitespace", func(t *testing.T) {
		// 与前端一致：解析前剔除时间串里的空白字符
		d, err := Load(writeDescriptor(t, `{
			"entries": [{"id":1,"name":"A"}],
			"points": [1],
			"votingPeriods": [[" 2026-01-01T00:00:00 ", "2026-01-02T00:00:00"]],
			"timezone": "UTC"
		}`))
		require.NoError(t, err)
		require.Len(t, d.VotingPeriods, 1)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), d.VotingPeriods[0].Start.UTC())
	})
}

func TestActivePeriod(t *testing.T) {
	d, err := Load(writeDescriptor(t, validDescriptor))
	require.NoError(t, err)

	t.Run("InsideFirstWindow", func(t *testing.T) {
		p := d.ActivePeriod(time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC))
		require.NotNil(t, p)
		assert.Equal(t, d.VotingPeriods[0], *p)
	})

	t.Run("BoundariesInclusive", func(t *testing.T) {
		assert.NotNil(t, d.ActivePeriod(d.VotingPeriods[0].Start))
		assert.NotNil(t, d.ActivePeriod(d.VotingPeriods[0].End))
	})

	t.Run("OutsideAllWindows", func(t *testing.T) {
		assert.Nil(t, d.ActivePeriod(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("OverlapFirstMatchWins", func(t *testing.T) {
		overlap := &Descriptor{
			VotingPeriods: []VotingPeriod{
				{Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
				{Start: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)},
			},
		}
		p := overlap.ActivePeriod(time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC))
		require.NotNil(t, p)
		assert.Equal(t, overlap.VotingPeriods[0], *p)
	})
}

func TestPointsLadder(t *testing.T) {
	ladder := PointsLadder([]int{10, 6, 3, 1})

	t.Run("RankedWithinLadder", func(t *testing.T) {
		assert.Equal(t, 10, ladder.PointsFor(0, true))
		assert.Equal(t, 6, ladder.PointsFor(1, true))
		assert.Equal(t, 3, ladder.PointsFor(2, true))
	})

	t.Run("RankedBeyondLadder", func(t *testing.T) {
		// 名次超出积分表长度时取保底积分
		assert.Equal(t, 1, ladder.PointsFor(4, true))
		assert.Equal(t, 1, ladder.PointsFor(100, true))
	})

	t.Run("Unranked", func(t *testing.T) {
		assert.Equal(t, 1, ladder.PointsFor(0, false))
		assert.Equal(t, 1, ladder.PointsFor(2, false))
	})
}

func TestHasEntry(t *testing.T) {
	d := &Descriptor{Entries: []Entry{{ID: 1}, {ID: 2}}}
	assert.True(t, d.HasEntry(1))
	assert.True(t, d.HasEntry(2))
	assert.False(t, d.HasEntry(999))
}

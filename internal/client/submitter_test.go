package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SlpAus/csd-vote-backend/internal/ballot"
	"github.com/SlpAus/csd-vote-backend/internal/eligibility"
	"github.com/SlpAus/csd-vote-backend/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenStore 模拟不可用的存储
type brokenStore struct{}

func (brokenStore) Get(string) (string, bool)           { return "", false }
func (brokenStore) Set(string, string, time.Time) error { return nil }
func (brokenStore) Available() bool                     { return false }

func openDescriptor() *ballot.Descriptor {
	return &ballot.Descriptor{
		Entries: []ballot.Entry{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}},
		Points:  ballot.PointsLadder([]int{10, 6, 1}),
		VotingPeriods: []ballot.VotingPeriod{{
			Start: time.Now().Add(-time.Hour),
			End:   time.Now().Add(time.Hour),
		}},
		APIPath: "/api/vote",
	}
}

func newTestGate(d *ballot.Descriptor) *eligibility.Gate {
	return &eligibility.Gate{
		Durable: eligibility.NewMemoryStore(),
		Cookie:  eligibility.NewMemoryStore(),
		Periods: d.VotingPeriods,
		Signals: eligibility.Signals{UserAgent: "test-agent", Timezone: "UTC"},
	}
}

// newTestSubmitter 构造一个已度过最短停留时间的提交器
func newTestSubmitter(cfg Config) *Submitter {
	s := NewSubmitter(cfg)
	s.startedAt = time.Now().Add(-10 * time.Second)
	return s
}

func rankedVotes() []ranking.RankedVote {
	return []ranking.RankedVote{
		{EntryID: 2, Ranked: true},
		{EntryID: 1, Ranked: false},
		{EntryID: 3, Ranked: false},
	}
}

func TestSubmitPreconditions(t *testing.T) {
	d := openDescriptor()

	t.Run("VotingClosed", func(t *testing.T) {
		closed := openDescriptor()
		closed.VotingPeriods = []ballot.VotingPeriod{{
			Start: time.Now().Add(-2 * time.Hour),
			End:   time.Now().Add(-time.Hour),
		}}
		s := newTestSubmitter(Config{Gate: newTestGate(closed), Descriptor: closed})
		err := s.Submit(context.Background(), rankedVotes(), "")
		assert.ErrorIs(t, err, ErrVotingClosed)
	})

	t.Run("StorageUnavailable", func(t *testing.T) {
		gate := newTestGate(d)
		gate.Durable = brokenStore{}
		s := newTestSubmitter(Config{Gate: gate, Descriptor: d})
		err := s.Submit(context.Background(), rankedVotes(), "")
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("HoneypotTripped", func(t *testing.T) {
		s := newTestSubmitter(Config{Gate: newTestGate(d), Descriptor: d, Honeypot: "555-1234"})
		err := s.Submit(context.Background(), rankedVotes(), "")
		assert.ErrorIs(t, err, ErrHoneypotTripped)
	})

	t.Run("TooSoon", func(t *testing.T) {
		// 未经过最短停留时间的新提交器
		s := NewSubmitter(Config{Gate: newTestGate(d), Descriptor: d})
		err := s.Submit(context.Background(), rankedVotes(), "")
		assert.ErrorIs(t, err, ErrTooSoon)
	})

	t.Run("NothingRanked", func(t *testing.T) {
		s := newTestSubmitter(Config{Gate: newTestGate(d), Descriptor: d})
		votes := []ranking.RankedVote{{EntryID: 1}, {EntryID: 2}, {EntryID: 3}}
		err := s.Submit(context.Background(), votes, "")
		assert.ErrorIs(t, err, ErrNothingRanked)
	})

	t.Run("MultiTabLock", func(t *testing.T) {
		gate := newTestGate(d)
		require.NoError(t, gate.Durable.Set(LockKey, "1", time.Time{}))
		s := newTestSubmitter(Config{Gate: gate, Descriptor: d})
		err := s.Submit(context.Background(), rankedVotes(), "")
		assert.ErrorIs(t, err, ErrAlreadyVoted)
	})
}

func TestSubmitSuccess(t *testing.T) {
	d := openDescriptor()
	gate := newTestGate(d)

	var requests int64
	var received wirePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	s := newTestSubmitter(Config{
		Endpoint:   server.URL + d.APIPath,
		Gate:       gate,
		Descriptor: d,
	})

	require.NoError(t, s.Submit(context.Background(), rankedVotes(), "60601"))
	assert.True(t, s.Voted())
	assert.EqualValues(t, 1, atomic.LoadInt64(&requests))

	// 请求载荷：顺序保留、token是一次性随机值、指纹可重算
	require.Len(t, received.Votes, 3)
	assert.Equal(t, wireVote{ID: 2, Voted: true}, received.Votes[0])
	assert.Equal(t, "60601", received.Zip)
	assert.NotEmpty(t, received.Token)
	assert.Equal(t, eligibility.Fingerprint(gate.Signals), received.Fingerprint)

	// 成功后：两处资格证明一致，跨标签页锁已设置
	durableProof, ok := gate.Durable.Get(eligibility.ProofKey)
	require.True(t, ok)
	cookieProof, ok := gate.Cookie.Get(eligibility.ProofKey)
	require.True(t, ok)
	assert.Equal(t, durableProof, cookieProof)

	_, locked := gate.Durable.Get(LockKey)
	assert.True(t, locked)

	// 终态：不允许再次提交，也不再发出网络请求
	err := s.Submit(context.Background(), rankedVotes(), "60601")
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.EqualValues(t, 1, atomic.LoadInt64(&requests))

	// 资格门现在拒绝本设备再次投票
	decision := gate.Check(time.Now())
	assert.False(t, decision.Allowed)
	assert.Equal(t, eligibility.DenyAlreadyVoted, decision.Reason)
}

func TestSubmitServerErrorIsRetryable(t *testing.T) {
	d := openDescriptor()
	gate := newTestGate(d)

	var failFirst int64 = 1
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.SwapInt64(&failFirst, 0) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "Service unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	s := newTestSubmitter(Config{Endpoint: server.URL + d.APIPath, Gate: gate, Descriptor: d})

	// 第一次失败：错误可重试，单发锁已释放
	err := s.Submit(context.Background(), rankedVotes(), "")
	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.True(t, submitErr.Retryable())
	assert.False(t, s.Voted())

	// 第二次重试成功
	require.NoError(t, s.Submit(context.Background(), rankedVotes(), ""))
	assert.True(t, s.Voted())
}

func TestSubmitConflictIsNotRetryable(t *testing.T) {
	d := openDescriptor()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error": "Token already used"}`))
	}))
	defer server.Close()

	s := newTestSubmitter(Config{Endpoint: server.URL + d.APIPath, Gate: newTestGate(d), Descriptor: d})

	err := s.Submit(context.Background(), rankedVotes(), "")
	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, http.StatusConflict, submitErr.StatusCode)
	// 冲突意味着投票已在别处成功，盲目重试没有意义
	assert.False(t, submitErr.Retryable())
}

func TestSubmitTransportError(t *testing.T) {
	d := openDescriptor()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // 立即关闭，制造连接错误

	s := newTestSubmitter(Config{Endpoint: server.URL + d.APIPath, Gate: newTestGate(d), Descriptor: d})

	err := s.Submit(context.Background(), rankedVotes(), "")
	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, 0, submitErr.StatusCode)
	assert.True(t, submitErr.Retryable())

	// 传输失败后允许重试
	assert.False(t, s.Voted())
	err = s.Submit(context.Background(), rankedVotes(), "")
	assert.NotErrorIs(t, err, ErrSubmissionInFlight)
}

func TestSubmitErrorMessages(t *testing.T) {
	transport := &SubmitError{Message: "connection refused"}
	assert.Contains(t, transport.Error(), "连接错误")

	rejected := &SubmitError{StatusCode: 400, Message: "Invalid entry"}
	assert.Contains(t, rejected.Error(), "Invalid entry")
	assert.False(t, rejected.Retryable())
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/SlpAus/csd-vote-backend/internal/ballot"
	"github.com/SlpAus/csd-vote-backend/internal/eligibility"
	"github.com/SlpAus/csd-vote-backend/internal/ranking"
	"github.com/google/uuid"
)

// LockKey 是"本浏览器已提交"标志在持久存储中的键名
// 它独立于资格证明，用于跨标签页阻止二次提交
const LockKey = "csd-vote-lock"

// minDwellTime 是从客户端启动到允许提交的最短间隔，用于拦截秒提交的机器人
const minDwellTime = 3 * time.Second

// 本地前置检查失败时返回的错误，全部不产生网络请求
var (
	ErrVotingClosed       = errors.New("当前没有激活的投票窗口")
	ErrSubmissionInFlight = errors.New("已有一次提交正在进行")
	ErrStorageUnavailable = errors.New("持久存储不可用")
	ErrHoneypotTripped    = errors.New("诱饵字段非空，提交被拒绝")
	ErrTooSoon            = errors.New("距页面加载时间过短，提交被拒绝")
	ErrNothingRanked      = errors.New("至少要对一个条目排序")
	ErrAlreadyVoted       = errors.New("本浏览器已经提交过投票")
)

// SubmitError 表示服务器拒绝或传输失败
type SubmitError struct {
	// StatusCode 为0表示请求未到达服务器（传输错误）
	StatusCode int
	Message    string
}

func (e *SubmitError) Error() string {
	if e.StatusCode == 0 {
		return "连接错误: " + e.Message
	}
	return fmt.Sprintf("服务器拒绝 (%d): %s", e.StatusCode, e.Message)
}

// Retryable 报告用户是否应当重试这次提交
// 重复token意味着投票已在别处成功，重试没有意义
func (e *SubmitError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// wirePayload 是提交请求的线上结构
type wirePayload struct {
	Votes       []wireVote `json:"votes"`
	Zip         string     `json:"zip"`
	Token       string     `json:"token"`
	Fingerprint string     `json:"fingerprint"`
}

type wireVote struct {
	ID    int  `json:"id"`
	Voted bool `json:"voted"`
}

// wireResponse 是服务器响应的线上结构
type wireResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Config 是构造Submitter所需的全部依赖
type Config struct {
	// Endpoint 是提交接口的完整URL
	Endpoint string
	// Gate 提供资格检查和证明写入
	Gate *eligibility.Gate
	// Descriptor 是客户端本地加载的选票描述（仅用于本地校验，服务端不信任它）
	Descriptor *ballot.Descriptor
	// HTTPClient 可选；默认带10秒超时
	HTTPClient *http.Client
	// Honeypot 是界面上诱饵字段的当前值，正常用户永远留空
	Honeypot string
}

// Submitter 负责一次投票会话的打包与提交
// 每个实例对应一次页面加载：token是新生成的一次性随机值，不是身份标识
type Submitter struct {
	mu sync.Mutex

	endpoint   string
	gate       *eligibility.Gate
	descriptor *ballot.Descriptor
	httpClient *http.Client
	honeypot   string

	token     string
	startedAt time.Time

	inFlight bool
	voted    bool
}

// NewSubmitter 创建一个新的提交器并生成本次会话的一次性token
func NewSubmitter(cfg Config) *Submitter {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Submitter{
		endpoint:   cfg.Endpoint,
		gate:       cfg.Gate,
		descriptor: cfg.Descriptor,
		httpClient: httpClient,
		honeypot:   cfg.Honeypot,
		token:      uuid.NewString(),
		startedAt:  time.Now(),
	}
}

// Voted 报告提交器是否已进入终态（投票成功）
func (s *Submitter) Voted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voted
}

// checkPreconditions 执行全部本地前置检查并占用单发锁
// 任何一项失败都直接返回错误，绝不发起网络请求
func (s *Submitter) checkPreconditions(votes []ranking.RankedVote, now time.Time) (*ballot.VotingPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.voted {
		return nil, ErrAlreadyVoted
	}
	if s.inFlight {
		return nil, ErrSubmissionInFlight
	}

	period := s.descriptor.ActivePeriod(now)
	if period == nil {
		return nil, ErrVotingClosed
	}

	if !s.gate.Durable.Available() || !s.gate.Cookie.Available() {
		return nil, ErrStorageUnavailable
	}
	if s.honeypot != "" {
		return nil, ErrHoneypotTripped
	}
	if now.Sub(s.startedAt) < minDwellTime {
		return nil, ErrTooSoon
	}

	anyRanked := false
	for _, v := range votes {
		if v.Ranked {
			anyRanked = true
			break
		}
	}
	if !anyRanked {
		return nil, ErrNothingRanked
	}

	// 跨标签页锁：任何一个标签页成功提交后，其余标签页都不得再提交
	if _, locked := s.gate.Durable.Get(LockKey); locked {
		return nil, ErrAlreadyVoted
	}

	s.inFlight = true
	return period, nil
}

// Submit 打包当前排序结果并提交给服务器
// 成功后提交器进入终态；失败时释放单发锁，由调用方决定是否重试
func (s *Submitter) Submit(ctx context.Context, votes []ranking.RankedVote, zip string) error {
	period, err := s.checkPreconditions(votes, time.Now())
	if err != nil {
		return err
	}

	submitErr := s.post(ctx, votes, zip)
	if submitErr != nil {
		// 模拟构建下允许把失败当作成功，用于在没有后端的情况下验证界面终态
		if !(simulationBuild && s.descriptor.TestMode) {
			s.mu.Lock()
			s.inFlight = false
			s.mu.Unlock()
			return submitErr
		}
		fmt.Printf("模拟模式: 提交失败被视为成功 (%v)\n", submitErr)
	}

	// 成功路径：记录资格证明，设置跨标签页锁，进入终态
	if err := s.gate.MarkVoted(period); err != nil {
		fmt.Printf("警告: 资格证明写入失败: %v\n", err)
	}
	if err := s.gate.Durable.Set(LockKey, "1", time.Time{}); err != nil {
		fmt.Printf("警告: 跨标签页锁写入失败: %v\n", err)
	}

	s.mu.Lock()
	s.voted = true
	s.inFlight = false
	s.mu.Unlock()
	return nil
}

// post 执行唯一的一次网络请求并把结果映射为SubmitError
func (s *Submitter) post(ctx context.Context, votes []ranking.RankedVote, zip string) *SubmitError {
	payload := wirePayload{
		Votes:       make([]wireVote, len(votes)),
		Zip:         zip,
		Token:       s.token,
		Fingerprint: eligibility.Fingerprint(s.gate.Signals),
	}
	for i, v := range votes {
		payload.Votes[i] = wireVote{ID: v.EntryID, Voted: v.Ranked}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &SubmitError{Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return &SubmitError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &SubmitError{Message: err.Error()}
	}
	defer resp.Body.Close()

	var wire wireResponse
	_ = json.NewDecoder(resp.Body).Decode(&wire)

	if resp.StatusCode != http.StatusOK || !wire.Success {
		msg := wire.Error
		if msg == "" {
			msg = resp.Status
		}
		return &SubmitError{StatusCode: resp.StatusCode, Message: msg}
	}

	return nil
}

package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pscheid92/voteban/internal/adapter/metrics"
	"github.com/pscheid92/voteban/internal/domain"
)

// --- Versioned in-memory stores ---

type memVotingRepo struct {
	mu      sync.Mutex
	records map[string]domain.Voting
	// beforePut runs before the version check; tests use it to inject concurrent writers.
	beforePut func(v *domain.Voting)
	puts      int
}

func newMemVotingRepo() *memVotingRepo {
	return &memVotingRepo{records: make(map[string]domain.Voting)}
}

func (r *memVotingRepo) Get(_ context.Context, pollID string) (*domain.Voting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.records[pollID]
	if !ok {
		return nil, domain.ErrVotingNotFound
	}
	return v.Clone(), nil
}

func (r *memVotingRepo) Put(_ context.Context, v *domain.Voting) error {
	if r.beforePut != nil {
		r.beforePut(v)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts++
	if r.records[v.PollID].Version != v.Version {
		return domain.ErrConflict
	}
	v.Version++
	r.records[v.PollID] = *v.Clone()
	return nil
}

func (r *memVotingRepo) Delete(_ context.Context, pollID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, pollID)
	return nil
}

// bump simulates a concurrent writer by bumping the stored version.
func (r *memVotingRepo) bump(pollID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.records[pollID]
	v.Version++
	r.records[pollID] = v
}

type memUserStatsRepo struct {
	mu      sync.Mutex
	records map[string]domain.UserStats
	getErr  error
}

func newMemUserStatsRepo() *memUserStatsRepo {
	return &memUserStatsRepo{records: make(map[string]domain.UserStats)}
}

func (r *memUserStatsRepo) Get(_ context.Context, chatID, userID int64) (*domain.UserStats, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.records[domain.UserStatsKey(chatID, userID)]
	if !ok {
		return nil, domain.ErrUserStatsNotFound
	}
	return &s, nil
}

func (r *memUserStatsRepo) Put(_ context.Context, s *domain.UserStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := domain.UserStatsKey(s.ChatID, s.UserID)
	if r.records[key].Version != s.Version {
		return domain.ErrConflict
	}
	s.Version++
	r.records[key] = *s
	return nil
}

func (r *memUserStatsRepo) Delete(_ context.Context, chatID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, domain.UserStatsKey(chatID, userID))
	return nil
}

func (r *memUserStatsRepo) seed(chatID, userID, count int64) {
	r.records[domain.UserStatsKey(chatID, userID)] = domain.UserStats{ChatID: chatID, UserID: userID, MessageCount: count, Version: 1}
}

// --- Chat API ---

type forwardCall struct{ To, From, MessageID int64 }
type deleteCall struct{ ChatID, MessageID int64 }
type sendCall struct {
	ChatID int64
	Text   string
}

type mockChat struct {
	mu       sync.Mutex
	calls    []string
	sent     []sendCall
	forwards []forwardCall
	deletes  []deleteCall
	bans     []int64
	left     []int64
	polls    []string

	sendMessageFn     func(chatID int64, text string) (int64, error)
	sendPollFn        func(chatID int64, question string, options []string) (domain.SentPoll, error)
	getMemberStatusFn func(chatID, userID int64) (domain.MemberStatus, error)
	banMemberFn       func(chatID, userID int64) error
	deleteMessageFn   func(chatID, messageID int64) error
	forwardMessageFn  func(toChatID, fromChatID, messageID int64) error
	leaveChatFn       func(chatID int64) error
}

func (m *mockChat) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *mockChat) SendMessage(_ context.Context, chatID int64, text string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("send:%d", chatID))
	m.sent = append(m.sent, sendCall{ChatID: chatID, Text: text})
	if m.sendMessageFn != nil {
		return m.sendMessageFn(chatID, text)
	}
	return 900 + int64(len(m.sent)), nil
}

func (m *mockChat) SendPoll(_ context.Context, chatID int64, question string, options []string) (domain.SentPoll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("poll:%d", chatID))
	m.polls = append(m.polls, question)
	if m.sendPollFn != nil {
		return m.sendPollFn(chatID, question, options)
	}
	return domain.SentPoll{PollID: "poll-1", MessageID: 500}, nil
}

func (m *mockChat) GetMemberStatus(_ context.Context, chatID, userID int64) (domain.MemberStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("status:%d", userID))
	if m.getMemberStatusFn != nil {
		return m.getMemberStatusFn(chatID, userID)
	}
	return domain.MemberMember, nil
}

func (m *mockChat) BanMember(_ context.Context, chatID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("ban:%d", userID))
	m.bans = append(m.bans, userID)
	if m.banMemberFn != nil {
		return m.banMemberFn(chatID, userID)
	}
	return nil
}

func (m *mockChat) DeleteMessage(_ context.Context, chatID, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("delete:%d", messageID))
	m.deletes = append(m.deletes, deleteCall{ChatID: chatID, MessageID: messageID})
	if m.deleteMessageFn != nil {
		return m.deleteMessageFn(chatID, messageID)
	}
	return nil
}

func (m *mockChat) ForwardMessage(_ context.Context, toChatID, fromChatID, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("forward:%d", messageID))
	m.forwards = append(m.forwards, forwardCall{To: toChatID, From: fromChatID, MessageID: messageID})
	if m.forwardMessageFn != nil {
		return m.forwardMessageFn(toChatID, fromChatID, messageID)
	}
	return nil
}

func (m *mockChat) LeaveChat(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("leave:%d", chatID))
	m.left = append(m.left, chatID)
	if m.leaveChatFn != nil {
		return m.leaveChatFn(chatID)
	}
	return nil
}

// --- Other ports ---

type mockClassifier struct {
	classifyFn func(ctx context.Context, text string) (domain.Verdict, error)
	texts      []string
}

func (m *mockClassifier) Classify(ctx context.Context, text string) (domain.Verdict, error) {
	m.texts = append(m.texts, text)
	if m.classifyFn != nil {
		return m.classifyFn(ctx, text)
	}
	return domain.Verdict{Class: domain.ClassNotSpam}, nil
}

type mockScheduler struct {
	scheduleFn func(ctx context.Context, chatID int64, messageIDs []int64, delay time.Duration) error
	scheduled  []domain.PendingCleanup
}

func (m *mockScheduler) Schedule(ctx context.Context, chatID int64, messageIDs []int64, delay time.Duration) error {
	m.scheduled = append(m.scheduled, domain.PendingCleanup{ChatID: chatID, MessageIDs: messageIDs, DueAt: time.Time{}.Add(delay)})
	if m.scheduleFn != nil {
		return m.scheduleFn(ctx, chatID, messageIDs, delay)
	}
	return nil
}

type mockArchive struct {
	archiveFn func(ctx context.Context, v *domain.Voting) error
	archived  []string
}

func (m *mockArchive) Archive(ctx context.Context, v *domain.Voting) error {
	m.archived = append(m.archived, v.PollID)
	if m.archiveFn != nil {
		return m.archiveFn(ctx, v)
	}
	return nil
}

type mockVotingStarter struct {
	startVotingFn func(ctx context.Context, p domain.StartVotingParams) (*domain.Voting, error)
	started       []domain.StartVotingParams
}

func (m *mockVotingStarter) StartVoting(ctx context.Context, p domain.StartVotingParams) (*domain.Voting, error) {
	m.started = append(m.started, p)
	if m.startVotingFn != nil {
		return m.startVotingFn(ctx, p)
	}
	return &domain.Voting{PollID: p.PollID}, nil
}

type mockQueue struct {
	mu        sync.Mutex
	enqueueFn func(ctx context.Context, c domain.PendingCleanup) error
	claimFn   func(ctx context.Context, now time.Time, limit int) ([]domain.PendingCleanup, error)
	enqueued  []domain.PendingCleanup
	claims    int
}

func (m *mockQueue) Enqueue(ctx context.Context, c domain.PendingCleanup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued = append(m.enqueued, c)
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, c)
	}
	return nil
}

func (m *mockQueue) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.PendingCleanup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims++
	if m.claimFn != nil {
		return m.claimFn(ctx, now, limit)
	}
	return nil, nil
}

type mockLease struct {
	tryAcquireFn func(ctx context.Context) (bool, error)
	renewFn      func(ctx context.Context) error
	releaseFn    func(ctx context.Context) error
	renewals     int
	released     bool
}

func (m *mockLease) TryAcquire(ctx context.Context) (bool, error) {
	if m.tryAcquireFn != nil {
		return m.tryAcquireFn(ctx)
	}
	return true, nil
}

func (m *mockLease) Renew(ctx context.Context) error {
	m.renewals++
	if m.renewFn != nil {
		return m.renewFn(ctx)
	}
	return nil
}

func (m *mockLease) Release(ctx context.Context) error {
	m.released = true
	if m.releaseFn != nil {
		return m.releaseFn(ctx)
	}
	return nil
}

func (m *mockLease) TTL() time.Duration {
	return 30 * time.Second
}

// --- Metrics ---

func newTestVoteMetrics() *metrics.VoteMetrics {
	return metrics.NewVoteMetrics(prometheus.NewRegistry())
}

func newTestIntakeMetrics() *metrics.IntakeMetrics {
	return metrics.NewIntakeMetrics(prometheus.NewRegistry())
}

func newTestCleanupMetrics() *metrics.CleanupMetrics {
	return metrics.NewCleanupMetrics(prometheus.NewRegistry())
}

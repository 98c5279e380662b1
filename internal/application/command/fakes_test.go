package command

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codequest-hub/codequest-progression/internal/domain/catalog"
	"github.com/codequest-hub/codequest-progression/internal/domain/challenge"
	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/internal/domain/skilltree"
	"github.com/codequest-hub/codequest-progression/pkg/timeutil"
)

// In-memory fakes implementing the domain repository interfaces. They mirror
// the store-level guarantees the handlers rely on: atomic XP increments,
// uniqueness constraints reported as shared.ErrAlreadyExists, and one-shot
// completion transitions.

const testUser = shared.UserID("6f1b1f60-0000-4000-8000-000000000002")

// ─────────────────────────────────────────────────────────────────────────────
// Progress
// ─────────────────────────────────────────────────────────────────────────────

type fakeProgressRepo struct {
	progress map[shared.UserID]*progression.UserProgress
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{progress: make(map[shared.UserID]*progression.UserProgress)}
}

func (f *fakeProgressRepo) GetByUserID(_ context.Context, userID shared.UserID) (*progression.UserProgress, error) {
	p, ok := f.progress[userID]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return p.Clone(), nil
}

func (f *fakeProgressRepo) AddXP(_ context.Context, userID shared.UserID, amount int) (*progression.UserProgress, error) {
	if amount <= 0 {
		return nil, shared.ErrInvalidXPAmount
	}

	p, ok := f.progress[userID]
	if !ok {
		p = progression.NewUserProgress(userID)
		f.progress[userID] = p
	}
	cachedLevel := p.Level
	p.XP = p.XP.Add(amount)

	out := p.Clone()
	out.Level = cachedLevel
	return out, nil
}

func (f *fakeProgressRepo) SetLevelCache(_ context.Context, userID shared.UserID, level shared.Level) error {
	p, ok := f.progress[userID]
	if !ok {
		return shared.ErrProgressNotFound
	}
	p.Level = level
	return nil
}

func (f *fakeProgressRepo) UpdateStreak(_ context.Context, userID shared.UserID, state progression.StreakState) error {
	p, ok := f.progress[userID]
	if !ok {
		p = progression.NewUserProgress(userID)
		f.progress[userID] = p
	}
	p.CurrentStreak = state.Current
	p.BestStreak = state.Best
	p.LastActiveDate = state.LastActiveDate
	return nil
}

func (f *fakeProgressRepo) IncrementTotalSolved(_ context.Context, userID shared.UserID) error {
	p, ok := f.progress[userID]
	if !ok {
		return shared.ErrProgressNotFound
	}
	p.TotalSolved++
	return nil
}

func (f *fakeProgressRepo) TopByXP(_ context.Context, limit int) ([]*progression.UserProgress, error) {
	all := make([]*progression.UserProgress, 0, len(f.progress))
	for _, p := range f.progress {
		all = append(all, p.Clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].XP > all[j].XP })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeProgressRepo) Count(_ context.Context) (int, error) {
	return len(f.progress), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Ledger
// ─────────────────────────────────────────────────────────────────────────────

type fakeLedgerRepo struct {
	entries []*progression.LedgerEntry
}

func (f *fakeLedgerRepo) Append(_ context.Context, entry *progression.LedgerEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLedgerRepo) ListByUser(_ context.Context, userID shared.UserID, limit int) ([]*progression.LedgerEntry, error) {
	var out []*progression.LedgerEntry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) ListByUserSince(_ context.Context, userID shared.UserID, since time.Time) ([]*progression.LedgerEntry, error) {
	var out []*progression.LedgerEntry
	for _, e := range f.entries {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) SumByUser(_ context.Context, userID shared.UserID) (int, error) {
	sum := 0
	for _, e := range f.entries {
		if e.UserID == userID {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (f *fakeLedgerRepo) byReason(reason progression.Reason) []*progression.LedgerEntry {
	var out []*progression.LedgerEntry
	for _, e := range f.entries {
		if e.Reason == reason {
			out = append(out, e)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog
// ─────────────────────────────────────────────────────────────────────────────

type attemptKey struct {
	user     shared.UserID
	question shared.QuestionID
}

type fakeCatalog struct {
	mu        sync.Mutex
	questions map[shared.QuestionID]*catalog.Question
	topics    map[shared.TopicID]*catalog.Topic
	passed    map[attemptKey]bool
	recorded  []catalog.AttemptFact
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		questions: make(map[shared.QuestionID]*catalog.Question),
		topics:    make(map[shared.TopicID]*catalog.Topic),
		passed:    make(map[attemptKey]bool),
	}
}

func (f *fakeCatalog) addQuestion(q *catalog.Question) {
	f.questions[q.ID] = q
	if _, ok := f.topics[q.TopicID]; !ok && q.TopicID != "" {
		f.topics[q.TopicID] = &catalog.Topic{ID: q.TopicID, Title: string(q.TopicID)}
	}
}

func (f *fakeCatalog) GetQuestion(_ context.Context, id shared.QuestionID) (*catalog.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, shared.ErrQuestionNotFound
	}
	return q, nil
}

func (f *fakeCatalog) ListActiveQuestions(_ context.Context) ([]*catalog.Question, error) {
	ids := make([]string, 0, len(f.questions))
	for id := range f.questions {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	var out []*catalog.Question
	for _, id := range ids {
		if q := f.questions[shared.QuestionID(id)]; q.IsActive {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListActiveByDifficulty(ctx context.Context, min, max catalog.Difficulty) ([]*catalog.Question, error) {
	active, _ := f.ListActiveQuestions(ctx)
	var out []*catalog.Question
	for _, q := range active {
		if q.Difficulty >= min && q.Difficulty <= max {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetTopic(_ context.Context, id shared.TopicID) (*catalog.Topic, error) {
	t, ok := f.topics[id]
	if !ok {
		return nil, shared.ErrTopicNotFound
	}
	return t, nil
}

func (f *fakeCatalog) CountActiveQuestions(_ context.Context, topicID shared.TopicID) (int, error) {
	count := 0
	for _, q := range f.questions {
		if q.TopicID == topicID && q.IsActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeCatalog) hasPassed(userID shared.UserID, questionID shared.QuestionID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passed[attemptKey{userID, questionID}]
}

func (f *fakeCatalog) CountDistinctPassed(_ context.Context, userID shared.UserID, topicID shared.TopicID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for key, ok := range f.passed {
		if !ok || key.user != userID {
			continue
		}
		if q, exists := f.questions[key.question]; exists && q.TopicID == topicID && q.IsActive {
			count++
		}
	}
	return count, nil
}

// RecordAttempt mirrors the sticky-pass upsert: the pass flag flips at most
// once per pair, and only the write that flips it reports a new pass.
func (f *fakeCatalog) RecordAttempt(_ context.Context, fact catalog.AttemptFact) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recorded = append(f.recorded, fact)
	key := attemptKey{fact.UserID, fact.QuestionID}
	if fact.Status != catalog.AttemptPassed {
		return false, nil
	}
	if f.passed[key] {
		return false, nil
	}
	f.passed[key] = true
	return true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Skill tree
// ─────────────────────────────────────────────────────────────────────────────

type unlockKey struct {
	user shared.UserID
	node shared.NodeID
}

type fakeSkillRepo struct {
	nodes   map[shared.NodeID]*skilltree.SkillNode
	unlocks map[unlockKey]*skilltree.SkillUnlock
}

func newFakeSkillRepo() *fakeSkillRepo {
	return &fakeSkillRepo{
		nodes:   make(map[shared.NodeID]*skilltree.SkillNode),
		unlocks: make(map[unlockKey]*skilltree.SkillUnlock),
	}
}

func (f *fakeSkillRepo) addNode(n *skilltree.SkillNode) { f.nodes[n.ID] = n }

func (f *fakeSkillRepo) GetByID(_ context.Context, nodeID shared.NodeID) (*skilltree.SkillNode, error) {
	n, ok := f.nodes[nodeID]
	if !ok {
		return nil, shared.ErrNodeNotFound
	}
	return n, nil
}

func (f *fakeSkillRepo) ListAll(_ context.Context) ([]*skilltree.SkillNode, error) {
	out := make([]*skilltree.SkillNode, 0, len(f.nodes))
	for _, n := range f.nodes {
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeSkillRepo) ListByTopic(_ context.Context, topicID shared.TopicID) ([]*skilltree.SkillNode, error) {
	var out []*skilltree.SkillNode
	for _, n := range f.nodes {
		if n.TopicRef != nil && *n.TopicRef == topicID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeSkillRepo) Get(_ context.Context, userID shared.UserID, nodeID shared.NodeID) (*skilltree.SkillUnlock, error) {
	u, ok := f.unlocks[unlockKey{userID, nodeID}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (f *fakeSkillRepo) ListByUser(_ context.Context, userID shared.UserID) ([]*skilltree.SkillUnlock, error) {
	var out []*skilltree.SkillUnlock
	for key, u := range f.unlocks {
		if key.user == userID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeSkillRepo) Create(_ context.Context, unlock *skilltree.SkillUnlock) error {
	key := unlockKey{unlock.UserID, unlock.NodeID}
	if _, exists := f.unlocks[key]; exists {
		return shared.ErrAlreadyExists
	}
	f.unlocks[key] = unlock
	return nil
}

func (f *fakeSkillRepo) UpdateProgress(_ context.Context, userID shared.UserID, nodeID shared.NodeID, progress float64) error {
	u, ok := f.unlocks[unlockKey{userID, nodeID}]
	if !ok {
		return shared.ErrNotFound
	}
	u.Progress = progress
	return nil
}

func (f *fakeSkillRepo) MarkCompleted(_ context.Context, userID shared.UserID, nodeID shared.NodeID) (bool, error) {
	u, ok := f.unlocks[unlockKey{userID, nodeID}]
	if !ok {
		return false, shared.ErrNotFound
	}
	if u.CompletedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	u.CompletedAt = &now
	u.Progress = 1
	return true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Daily challenges
// ─────────────────────────────────────────────────────────────────────────────

type fakeChallengeRepo struct {
	byDate map[time.Time]*challenge.DailyChallenge
	byID   map[uuid.UUID]*challenge.DailyChallenge
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{
		byDate: make(map[time.Time]*challenge.DailyChallenge),
		byID:   make(map[uuid.UUID]*challenge.DailyChallenge),
	}
}

func (f *fakeChallengeRepo) GetByDate(_ context.Context, day time.Time) (*challenge.DailyChallenge, error) {
	c, ok := f.byDate[timeutil.StartOfDay(day)]
	if !ok {
		return nil, shared.ErrChallengeNotFound
	}
	return c, nil
}

func (f *fakeChallengeRepo) GetByID(_ context.Context, id uuid.UUID) (*challenge.DailyChallenge, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, shared.ErrChallengeNotFound
	}
	return c, nil
}

func (f *fakeChallengeRepo) Create(_ context.Context, c *challenge.DailyChallenge) error {
	day := timeutil.StartOfDay(c.Date)
	if _, exists := f.byDate[day]; exists {
		return shared.ErrAlreadyExists
	}
	f.byDate[day] = c
	f.byID[c.ID] = c
	return nil
}

type completionKey struct {
	user      shared.UserID
	challenge uuid.UUID
}

type fakeCompletionRepo struct {
	completions map[completionKey]*challenge.DailyChallengeCompletion
	challenges  *fakeChallengeRepo
}

func newFakeCompletionRepo(challenges *fakeChallengeRepo) *fakeCompletionRepo {
	return &fakeCompletionRepo{
		completions: make(map[completionKey]*challenge.DailyChallengeCompletion),
		challenges:  challenges,
	}
}

func (f *fakeCompletionRepo) Exists(_ context.Context, userID shared.UserID, challengeID uuid.UUID) (bool, error) {
	_, ok := f.completions[completionKey{userID, challengeID}]
	return ok, nil
}

func (f *fakeCompletionRepo) Create(_ context.Context, completion *challenge.DailyChallengeCompletion) error {
	key := completionKey{completion.UserID, completion.ChallengeID}
	if _, exists := f.completions[key]; exists {
		return shared.ErrAlreadyExists
	}
	f.completions[key] = completion
	return nil
}

func (f *fakeCompletionRepo) ListDatesSince(_ context.Context, userID shared.UserID, since time.Time) ([]time.Time, error) {
	var out []time.Time
	for key, c := range f.completions {
		if key.user != userID {
			continue
		}
		ch, ok := f.challenges.byID[c.ChallengeID]
		if !ok {
			continue
		}
		if !ch.Date.Before(timeutil.StartOfDay(since)) {
			out = append(out, ch.Date)
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Events
// ─────────────────────────────────────────────────────────────────────────────

type capturePublisher struct {
	events []shared.Event
}

func (p *capturePublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) byType(t shared.EventType) []shared.Event {
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

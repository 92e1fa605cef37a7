package engagement

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/reclamacidade/internal/complaint"
	"github.com/gestaozabele/reclamacidade/internal/identity"
	"github.com/gestaozabele/reclamacidade/internal/notify"
)

type voteKey struct{ user, complaint uuid.UUID }

type badgeKey struct{ user, badge uuid.UUID }

type rankKey struct {
	city        string
	user        uuid.UUID
	month, year int
}

type memState struct {
	users      map[uuid.UUID]identity.User
	complaints map[uuid.UUID]complaint.Complaint
	votes      map[voteKey]time.Time
	accounts   map[uuid.UUID]Account
	history    []HistoryEntry
	badges     map[uuid.UUID]Badge
	userBadges map[badgeKey]time.Time
	rankings   map[rankKey]RankingEntry
}

func newMemState() *memState {
	return &memState{
		users:      map[uuid.UUID]identity.User{},
		complaints: map[uuid.UUID]complaint.Complaint{},
		votes:      map[voteKey]time.Time{},
		accounts:   map[uuid.UUID]Account{},
		badges:     map[uuid.UUID]Badge{},
		userBadges: map[badgeKey]time.Time{},
		rankings:   map[rankKey]RankingEntry{},
	}
}

func (s *memState) clone() *memState {
	return &memState{
		users:      maps.Clone(s.users),
		complaints: maps.Clone(s.complaints),
		votes:      maps.Clone(s.votes),
		accounts:   maps.Clone(s.accounts),
		history:    append([]HistoryEntry(nil), s.history...),
		badges:     maps.Clone(s.badges),
		userBadges: maps.Clone(s.userBadges),
		rankings:   maps.Clone(s.rankings),
	}
}

// memStore serializa transações e só publica o estado de trabalho no commit,
// reproduzindo o rollback e as chaves únicas do schema.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// failOn força erro no método indicado.
	failOn map[string]error
	// beforeInsertVote simula outro pedido gravando o mesmo voto antes deste.
	beforeInsertVote func(st *memState, userID, complaintID uuid.UUID)
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), failOn: map[string]error{}}
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(ctx, &memTx{st: work, store: m}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) addUser(u identity.User) {
	m.state.users[u.ID] = u
}

func (m *memStore) addComplaint(c complaint.Complaint) {
	m.state.complaints[c.ID] = c
}

type memTx struct {
	st    *memState
	store *memStore
}

func (t *memTx) fail(op string) error {
	return t.store.failOn[op]
}

func (t *memTx) GetUser(_ context.Context, id uuid.UUID) (identity.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return identity.User{}, ErrNotFound
	}
	return u, nil
}

func (t *memTx) GetComplaint(_ context.Context, id uuid.UUID) (complaint.Complaint, error) {
	c, ok := t.st.complaints[id]
	if !ok {
		return complaint.Complaint{}, ErrNotFound
	}
	return c, nil
}

func (t *memTx) LockComplaint(ctx context.Context, id uuid.UUID) (complaint.Complaint, error) {
	return t.GetComplaint(ctx, id)
}

func (t *memTx) SetComplaintStatus(_ context.Context, id uuid.UUID, status complaint.Status, resolvedAt *time.Time) error {
	if err := t.fail("SetComplaintStatus"); err != nil {
		return err
	}
	c, ok := t.st.complaints[id]
	if !ok {
		return ErrNotFound
	}
	if (status == complaint.StatusResolved) != (resolvedAt != nil) {
		return errors.New("complaints_resolved_at_chk")
	}
	c.Status = status
	c.ResolvedAt = resolvedAt
	t.st.complaints[id] = c
	return nil
}

func (t *memTx) CountComplaints(_ context.Context, ownerID uuid.UUID) (int, error) {
	n := 0
	for _, c := range t.st.complaints {
		if c.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) CountResolvedComplaints(_ context.Context, ownerID uuid.UUID) (int, error) {
	n := 0
	for _, c := range t.st.complaints {
		if c.OwnerID == ownerID && c.Status == complaint.StatusResolved {
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteVote(_ context.Context, userID, complaintID uuid.UUID) (bool, error) {
	k := voteKey{userID, complaintID}
	if _, ok := t.st.votes[k]; !ok {
		return false, nil
	}
	delete(t.st.votes, k)
	return true, nil
}

func (t *memTx) InsertVote(_ context.Context, userID, complaintID uuid.UUID, at time.Time) error {
	if err := t.fail("InsertVote"); err != nil {
		return err
	}
	if hook := t.store.beforeInsertVote; hook != nil {
		hook(t.st, userID, complaintID)
	}
	k := voteKey{userID, complaintID}
	if _, ok := t.st.votes[k]; ok {
		return ErrDuplicate
	}
	t.st.votes[k] = at
	return nil
}

func (t *memTx) CountVotes(_ context.Context, complaintID uuid.UUID) (int, error) {
	n := 0
	for k := range t.st.votes {
		if k.complaint == complaintID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) CountUserVotes(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for k := range t.st.votes {
		if k.user == userID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) LockAccount(_ context.Context, userID uuid.UUID) (Account, error) {
	acc, ok := t.st.accounts[userID]
	if !ok {
		acc = Account{UserID: userID, Level: 1}
		t.st.accounts[userID] = acc
	}
	return acc, nil
}

func (t *memTx) GetAccount(_ context.Context, userID uuid.UUID) (Account, error) {
	acc, ok := t.st.accounts[userID]
	if !ok {
		return Account{UserID: userID, Level: 1}, nil
	}
	return acc, nil
}

func (t *memTx) SaveAccount(_ context.Context, acc Account) error {
	if err := t.fail("SaveAccount"); err != nil {
		return err
	}
	t.st.accounts[acc.UserID] = acc
	return nil
}

func (t *memTx) AppendHistory(_ context.Context, entry HistoryEntry) error {
	if err := t.fail("AppendHistory"); err != nil {
		return err
	}
	if entry.Action == ActionComplaintCreated && entry.ComplaintID != nil {
		if awarded, _ := t.ComplaintAwarded(context.Background(), *entry.ComplaintID, entry.Action); awarded {
			return ErrDuplicate
		}
	}
	entry.ID = int64(len(t.st.history) + 1)
	t.st.history = append(t.st.history, entry)
	return nil
}

func (t *memTx) ComplaintAwarded(_ context.Context, complaintID uuid.UUID, action Action) (bool, error) {
	for _, h := range t.st.history {
		if h.Action == action && h.ComplaintID != nil && *h.ComplaintID == complaintID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) RecentHistory(_ context.Context, userID uuid.UUID, limit int) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for i := len(t.st.history) - 1; i >= 0 && len(out) < limit; i-- {
		if t.st.history[i].UserID == userID {
			out = append(out, t.st.history[i])
		}
	}
	return out, nil
}

func (t *memTx) ListBadges(_ context.Context, category BadgeCategory) ([]Badge, error) {
	var out []Badge
	for _, b := range t.st.badges {
		if b.Active && (category == "" || b.Category == category) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *memTx) UpsertBadge(_ context.Context, b Badge) (Badge, error) {
	for id, existing := range t.st.badges {
		if existing.Name == b.Name {
			b.ID = id
		}
	}
	t.st.badges[b.ID] = b
	return b, nil
}

func (t *memTx) HasBadge(_ context.Context, userID, badgeID uuid.UUID) (bool, error) {
	_, ok := t.st.userBadges[badgeKey{userID, badgeID}]
	return ok, nil
}

func (t *memTx) InsertUserBadge(_ context.Context, userID, badgeID uuid.UUID, at time.Time) (bool, error) {
	if err := t.fail("InsertUserBadge"); err != nil {
		return false, err
	}
	k := badgeKey{userID, badgeID}
	if _, ok := t.st.userBadges[k]; ok {
		return false, nil
	}
	t.st.userBadges[k] = at
	return true, nil
}

func (t *memTx) ListUserBadges(_ context.Context, userID uuid.UUID) ([]UserBadge, error) {
	out := make([]UserBadge, 0)
	for k, at := range t.st.userBadges {
		if k.user == userID {
			out = append(out, UserBadge{Badge: t.st.badges[k.badge], EarnedAt: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Badge.Name < out[j].Badge.Name })
	return out, nil
}

func (t *memTx) SumPeriodPoints(_ context.Context, city string, from, to time.Time) ([]RankingEntry, error) {
	sums := map[uuid.UUID]int{}
	for _, h := range t.st.history {
		u, ok := t.st.users[h.UserID]
		if !ok || u.City != city || h.CreatedAt.Before(from) || !h.CreatedAt.Before(to) {
			continue
		}
		sums[h.UserID] += h.Delta
	}
	out := make([]RankingEntry, 0, len(sums))
	for id, pts := range sums {
		out = append(out, RankingEntry{City: city, UserID: id, Points: pts})
	}
	return out, nil
}

func (t *memTx) UpsertRanking(_ context.Context, e RankingEntry, _ time.Time) error {
	if err := t.fail("UpsertRanking"); err != nil {
		return err
	}
	t.st.rankings[rankKey{e.City, e.UserID, e.Month, e.Year}] = e
	return nil
}

func (t *memTx) ListRanking(_ context.Context, city string, month, year, limit int) ([]RankingEntry, error) {
	out := make([]RankingEntry, 0)
	for k, e := range t.st.rankings {
		if k.city == city && k.month == month && k.year == year {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return bytes.Compare(out[i].UserID[:], out[j].UserID[:]) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) GetRanking(_ context.Context, city string, userID uuid.UUID, month, year int) (RankingEntry, error) {
	e, ok := t.st.rankings[rankKey{city, userID, month, year}]
	if !ok {
		return RankingEntry{}, ErrNotFound
	}
	return e, nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingEmitter) Emit(_ context.Context, events ...notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recordingEmitter) kinds() map[notify.Kind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[notify.Kind]int{}
	for _, ev := range r.events {
		out[ev.Kind]++
	}
	return out
}

type stubCache struct {
	entries     map[string][]RankingEntry
	invalidated []string
}

func newStubCache() *stubCache {
	return &stubCache{entries: map[string][]RankingEntry{}}
}

func cacheKey(city string, month, year int) string {
	return fmt.Sprintf("%s|%d|%d", city, month, year)
}

func (c *stubCache) Load(_ context.Context, city string, month, year int) ([]RankingEntry, bool) {
	e, ok := c.entries[cacheKey(city, month, year)]
	return e, ok
}

func (c *stubCache) Store(_ context.Context, city string, month, year int, entries []RankingEntry) {
	c.entries[cacheKey(city, month, year)] = entries
}

func (c *stubCache) Invalidate(_ context.Context, city string, month, year int) error {
	key := cacheKey(city, month, year)
	delete(c.entries, key)
	c.invalidated = append(c.invalidated, key)
	return nil
}

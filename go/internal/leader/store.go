package leader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mcdev12/arena/go/internal/models"
)

// ErrRecordExists is returned by Store.Insert when another holder created
// the record first.
var ErrRecordExists = errors.New("leader record already exists")

// Store is the shared record replicas compete for. All writes are
// conditional; none hold a lock across calls.
type Store interface {
	// Get returns the record, or nil when none exists yet.
	Get(ctx context.Context, leaderID string) (*models.LeaderRecord, error)
	// Insert creates the record. It returns ErrRecordExists if it is already there.
	Insert(ctx context.Context, rec models.LeaderRecord) error
	// ClaimIfStale makes holderKey the holder if the current holder's last
	// heartbeat is at or before staleBefore, and reports whether it did.
	ClaimIfStale(ctx context.Context, leaderID, holderKey string, now, staleBefore time.Time) (bool, error)
	// Touch moves lastActiveAt to now if holderKey still holds the record.
	Touch(ctx context.Context, leaderID, holderKey string, now time.Time) (bool, error)
}

// Notification is pushed whenever a record's holder changes.
type Notification struct {
	LeaderID  string `json:"leader_id"`
	HolderKey string `json:"holder_key"`
}

// Feed delivers holder changes for one leader id.
type Feed interface {
	Subscribe(leaderID string, fn func(Notification)) (unsubscribe func())
}

// MemoryStore is a Store and Feed for a single process.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]models.LeaderRecord
	subs    *subscribers
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.LeaderRecord),
		subs:    newSubscribers(),
	}
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Feed  = (*MemoryStore)(nil)
)

func (m *MemoryStore) Get(_ context.Context, leaderID string) (*models.LeaderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[leaderID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) Insert(_ context.Context, rec models.LeaderRecord) error {
	m.mu.Lock()
	if _, ok := m.records[rec.LeaderID]; ok {
		m.mu.Unlock()
		return ErrRecordExists
	}
	m.records[rec.LeaderID] = rec
	m.mu.Unlock()

	m.subs.publish(Notification{LeaderID: rec.LeaderID, HolderKey: rec.HolderKey})
	return nil
}

func (m *MemoryStore) ClaimIfStale(_ context.Context, leaderID, holderKey string, now, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	rec, ok := m.records[leaderID]
	if !ok || rec.LastActiveAt.After(staleBefore) {
		m.mu.Unlock()
		return false, nil
	}
	changed := rec.HolderKey != holderKey
	m.records[leaderID] = models.LeaderRecord{LeaderID: leaderID, HolderKey: holderKey, LastActiveAt: now}
	m.mu.Unlock()

	if changed {
		m.subs.publish(Notification{LeaderID: leaderID, HolderKey: holderKey})
	}
	return true, nil
}

func (m *MemoryStore) Touch(_ context.Context, leaderID, holderKey string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[leaderID]
	if !ok || rec.HolderKey != holderKey {
		return false, nil
	}
	rec.LastActiveAt = now
	m.records[leaderID] = rec
	return true, nil
}

func (m *MemoryStore) Subscribe(leaderID string, fn func(Notification)) func() {
	return m.subs.add(leaderID, fn)
}

// subscribers fans notifications out to callbacks keyed by leader id.
type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[string]map[int]func(Notification)
}

func newSubscribers() *subscribers {
	return &subscribers{fns: make(map[string]map[int]func(Notification))}
}

func (s *subscribers) add(leaderID string, fn func(Notification)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	if s.fns[leaderID] == nil {
		s.fns[leaderID] = make(map[int]func(Notification))
	}
	s.fns[leaderID][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns[leaderID], id)
		if len(s.fns[leaderID]) == 0 {
			delete(s.fns, leaderID)
		}
	}
}

// publish calls every callback for n.LeaderID outside the lock.
func (s *subscribers) publish(n Notification) {
	s.mu.Lock()
	fns := make([]func(Notification), 0, len(s.fns[n.LeaderID]))
	for _, fn := range s.fns[n.LeaderID] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
}

func (s *subscribers) leaderIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.fns))
	for id := range s.fns {
		out = append(out, id)
	}
	return out
}

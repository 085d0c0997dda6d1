package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/crucial707/detector/internal/models"
)

// memStore is an in-memory ResourceStore. Returned resources are copies.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	rows    []models.Resource
	locks   int
	saveErr map[string]error
	// rowLocks lists identifiers read through FindLiveForUpdate.
	rowLocks []string
}

func newMemStore(seed ...models.Resource) *memStore {
	s := &memStore{nextID: 1, saveErr: map[string]error{}}
	for _, r := range seed {
		if r.ID == 0 {
			r.ID = s.nextID
		}
		if r.ID >= s.nextID {
			s.nextID = r.ID + 1
		}
		if r.State == "" {
			r.State = models.StateActive
		}
		s.rows = append(s.rows, r)
	}
	return s
}

func (s *memStore) find(match func(models.Resource) bool) *models.Resource {
	for _, r := range s.rows {
		if r.Deleted == nil && match(r) {
			c := r
			return &c
		}
	}
	return nil
}

func (s *memStore) FindLive(_ context.Context, identifier string) (*models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(r models.Resource) bool { return r.Identifier == identifier }), nil
}

func (s *memStore) FindLiveForUpdate(_ context.Context, identifier string) (*models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowLocks = append(s.rowLocks, identifier)
	return s.find(func(r models.Resource) bool { return r.Identifier == identifier }), nil
}

func (s *memStore) FindLiveByNameURL(_ context.Context, name, url string) (*models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(r models.Resource) bool { return r.Name == name && r.URL == url }), nil
}

func (s *memStore) FindLiveByURL(_ context.Context, url string) (*models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(r models.Resource) bool { return r.URL == url }), nil
}

func (s *memStore) IdentifierExists(_ context.Context, identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.Identifier == identifier {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) LockCreate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks++
	return nil
}

func (s *memStore) Insert(_ context.Context, res *models.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res.ID = s.nextID
	s.nextID++
	s.rows = append(s.rows, *res)
	return nil
}

func (s *memStore) Save(_ context.Context, res *models.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr[res.Identifier]; err != nil {
		return err
	}
	for i := range s.rows {
		if s.rows[i].ID == res.ID {
			s.rows[i] = *res
			return nil
		}
	}
	return errors.New("no such row")
}

func (s *memStore) List(context.Context) ([]models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Resource
	for _, r := range s.rows {
		if r.Deleted == nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// raw returns the stored row for identifier, deleted or not.
func (s *memStore) raw(identifier string) (models.Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.Identifier == identifier {
			return r, true
		}
	}
	return models.Resource{}, false
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// memDependents counts rows per resource and records cascade calls.
type memDependents struct {
	rows  map[int64]int
	calls []int64
}

func newMemDependents(rows map[int64]int) *memDependents {
	if rows == nil {
		rows = map[int64]int{}
	}
	return &memDependents{rows: rows}
}

func (d *memDependents) DeleteByResource(_ context.Context, resourceID int64) (int64, error) {
	d.calls = append(d.calls, resourceID)
	n := d.rows[resourceID]
	delete(d.rows, resourceID)
	return int64(n), nil
}

type memAudit struct {
	entries []models.AuditEntry
}

func (a *memAudit) Log(_ context.Context, entry models.AuditEntry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memAudit) messages() []string {
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Message
	}
	return out
}

// memTx restores the store and audit log when fn fails.
type memTx struct {
	store *memStore
	audit *memAudit
	calls int
}

func (t *memTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	t.store.mu.Lock()
	rows := append([]models.Resource(nil), t.store.rows...)
	nextID := t.store.nextID
	t.store.mu.Unlock()
	entries := append([]models.AuditEntry(nil), t.audit.entries...)

	if err := fn(ctx); err != nil {
		t.store.mu.Lock()
		t.store.rows = rows
		t.store.nextID = nextID
		t.store.mu.Unlock()
		t.audit.entries = entries
		return err
	}
	return nil
}

type opCount struct{ operation, outcome string }

type memRecorder struct {
	ops   map[opCount]int
	audit map[models.Severity]int
}

func newMemRecorder() *memRecorder {
	return &memRecorder{ops: map[opCount]int{}, audit: map[models.Severity]int{}}
}

func (r *memRecorder) ResourceOperation(operation, outcome string) {
	r.ops[opCount{operation, outcome}]++
}

func (r *memRecorder) AuditEntry(severity models.Severity) { r.audit[severity]++ }

// sequence returns a Random func yielding values in order, then repeating the last.
func sequence(values ...string) func() string {
	i := 0
	return func() string {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

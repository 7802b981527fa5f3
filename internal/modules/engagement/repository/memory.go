package repository

import (
	"context"
	"sync"
	"time"

	"anoa.com/engagementledger/internal/entity"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory ReactionStore used by unit tests and local
// development. It mirrors the SQL store's optimistic concurrency: the mutator
// runs against a snapshot, the commit checks a per-key version, and a lost
// insert race coalesces when the surviving row carries the same payload.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[Key]entity.Reaction
	versions map[Key]uint64
	failures []error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[Key]entity.Reaction),
		versions: make(map[Key]uint64),
	}
}

// FailNext makes the next ConditionalWrite return err instead of committing.
// Used to exercise the dispatcher's transient-failure retry.
func (m *MemoryStore) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, err)
}

func (m *MemoryStore) ConditionalWrite(ctx context.Context, key Key, mutate Mutator) (Result, error) {
	m.mu.Lock()
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		m.mu.Unlock()
		return Result{}, err
	}
	m.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		snapshot, version := m.snapshot(key)

		w, err := mutate(snapshot)
		if err != nil {
			return Result{}, err
		}

		res, committed := m.commit(key, version, snapshot, w)
		if committed {
			return res, nil
		}

		// Lost the race. A duplicate insert coalesces with the winner;
		// anything else re-evaluates against the committed row.
		if w.Op == WriteInsert {
			if cur, _ := m.snapshot(key); cur != nil && payloadEqual(cur, w) {
				return Result{Record: cur}, nil
			}
		}
	}
}

func (m *MemoryStore) snapshot(key Key) (*entity.Reaction, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, m.versions[key]
	}
	c := rec
	return &c, m.versions[key]
}

func (m *MemoryStore) commit(key Key, version uint64, existing *entity.Reaction, w Write) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.versions[key] != version {
		return Result{}, false
	}

	now := time.Now()
	switch w.Op {
	case WriteNoop:
		return Result{Record: existing}, true
	case WriteInsert:
		rec := entity.Reaction{
			ID:             uuid.New(),
			ActorID:        key.ActorID,
			TargetKind:     key.TargetKind,
			TargetID:       key.TargetID,
			Family:         key.Family,
			Value:          w.Value,
			ReportCategory: w.Category,
			ReportComment:  w.Comment,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		m.records[key] = rec
		m.versions[key]++
		return Result{Record: &rec}, true
	case WriteReplace:
		rec := m.records[key]
		rec.Value = w.Value
		rec.ReportCategory = w.Category
		rec.ReportComment = w.Comment
		rec.UpdatedAt = now
		m.records[key] = rec
		m.versions[key]++
		return Result{Record: &rec}, true
	case WriteDelete:
		delete(m.records, key)
		m.versions[key]++
		return Result{Deleted: true}, true
	}
	return Result{}, true
}

func (m *MemoryStore) Read(ctx context.Context, key Key) (*entity.Reaction, error) {
	rec, _ := m.snapshot(key)
	return rec, nil
}

func (m *MemoryStore) ReadAllForTarget(ctx context.Context, kind entity.TargetKind, targetID uuid.UUID, family entity.Family) ([]entity.Reaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []entity.Reaction
	for key, rec := range m.records {
		if key.TargetKind != kind || key.TargetID != targetID {
			continue
		}
		if family != "" && key.Family != family {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

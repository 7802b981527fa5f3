package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/engagementledger/internal/entity"
	"anoa.com/engagementledger/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Key addresses exactly one ledger row. The at-most-one-record invariant is
// scoped to this tuple.
type Key struct {
	ActorID    uuid.UUID
	TargetKind entity.TargetKind
	TargetID   uuid.UUID
	Family     entity.Family
}

type WriteOp int

const (
	WriteNoop WriteOp = iota
	WriteInsert
	WriteReplace
	WriteDelete
)

// Write is the effect a mutator asks the store to apply. Value, Category and
// Comment are the record payload for WriteInsert and WriteReplace.
type Write struct {
	Op       WriteOp
	Value    int
	Category entity.ReportCategory
	Comment  string
}

// Mutator computes the next write from the current record. It must be pure:
// the store may evaluate it more than once, against different snapshots,
// before one evaluation commits.
type Mutator func(existing *entity.Reaction) (Write, error)

type Result struct {
	Record  *entity.Reaction
	Deleted bool
}

// ReactionStore is the only way the ledger is written. ConditionalWrite runs
// read-mutate-write as a single atomic unit per key; unmediated writes to the
// backing table reintroduce the check-then-act race this contract closes.
type ReactionStore interface {
	ConditionalWrite(ctx context.Context, key Key, mutate Mutator) (Result, error)
	Read(ctx context.Context, key Key) (*entity.Reaction, error)
	// ReadAllForTarget returns the records for a target, unordered. An empty
	// family selects all families. Used for aggregation only.
	ReadAllForTarget(ctx context.Context, kind entity.TargetKind, targetID uuid.UUID, family entity.Family) ([]entity.Reaction, error)
}

type reactionStore struct {
	db *gorm.DB
}

func NewReactionStore(db *gorm.DB) ReactionStore {
	return &reactionStore{db: db}
}

func (s *reactionStore) ConditionalWrite(ctx context.Context, key Key, mutate Mutator) (Result, error) {
	var attempted Write

	res, err := s.writeOnce(ctx, key, mutate, &attempted)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost an insert race against a concurrent writer on the same key.
		// If the surviving row already carries the state we tried to insert,
		// the request coalesces with the winner; otherwise the mutator is
		// re-evaluated against the committed row.
		if attempted.Op == WriteInsert {
			rec, readErr := s.Read(ctx, key)
			if readErr == nil && rec != nil && payloadEqual(rec, attempted) {
				return Result{Record: rec}, nil
			}
		}
		res, err = s.writeOnce(ctx, key, mutate, &attempted)
	}

	return res, classify(err)
}

func (s *reactionStore) writeOnce(ctx context.Context, key Key, mutate Mutator, attempted *Write) (Result, error) {
	var res Result

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Find with a slice avoids "record not found" log noise from First()
		var rows []entity.Reaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("actor_id = ? AND target_kind = ? AND target_id = ? AND family = ?",
				key.ActorID, key.TargetKind, key.TargetID, key.Family).
			Limit(1).
			Find(&rows).Error; err != nil {
			return err
		}

		var existing *entity.Reaction
		if len(rows) > 0 {
			existing = &rows[0]
		}

		w, err := mutate(existing)
		if err != nil {
			return err
		}
		*attempted = w

		switch w.Op {
		case WriteNoop:
			res = Result{Record: existing}
		case WriteInsert:
			rec := entity.Reaction{
				ActorID:        key.ActorID,
				TargetKind:     key.TargetKind,
				TargetID:       key.TargetID,
				Family:         key.Family,
				Value:          w.Value,
				ReportCategory: w.Category,
				ReportComment:  w.Comment,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			res = Result{Record: &rec}
		case WriteReplace:
			if existing == nil {
				return fmt.Errorf("replace decided on absent record for key %+v", key)
			}
			existing.Value = w.Value
			existing.ReportCategory = w.Category
			existing.ReportComment = w.Comment
			if err := tx.Save(existing).Error; err != nil {
				return err
			}
			res = Result{Record: existing}
		case WriteDelete:
			if existing != nil {
				if err := tx.Delete(existing).Error; err != nil {
					return err
				}
			}
			res = Result{Deleted: true}
		}

		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *reactionStore) Read(ctx context.Context, key Key) (*entity.Reaction, error) {
	var rows []entity.Reaction
	err := s.db.WithContext(ctx).
		Where("actor_id = ? AND target_kind = ? AND target_id = ? AND family = ?",
			key.ActorID, key.TargetKind, key.TargetID, key.Family).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, classify(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *reactionStore) ReadAllForTarget(ctx context.Context, kind entity.TargetKind, targetID uuid.UUID, family entity.Family) ([]entity.Reaction, error) {
	q := s.db.WithContext(ctx).
		Where("target_kind = ? AND target_id = ?", kind, targetID)
	if family != "" {
		q = q.Where("family = ?", family)
	}

	var records []entity.Reaction
	if err := q.Find(&records).Error; err != nil {
		return nil, classify(err)
	}
	return records, nil
}

func payloadEqual(rec *entity.Reaction, w Write) bool {
	return rec.Value == w.Value && rec.ReportCategory == w.Category && rec.ReportComment == w.Comment
}

// classify translates storage failures into the ledger error taxonomy while
// letting mutator errors through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		apperror.ErrValidation,
		apperror.ErrConflict,
		apperror.ErrForbidden,
		apperror.ErrNotFound,
		apperror.ErrStorageUnavailable,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: target does not exist", apperror.ErrNotFound)
	}
	return fmt.Errorf("%w: %v", apperror.ErrStorageUnavailable, err)
}

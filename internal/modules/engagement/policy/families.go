package policy

import (
	"fmt"

	"anoa.com/engagementledger/internal/entity"
	"anoa.com/engagementledger/pkg/apperror"
)

// Toggle is the binary tri-state policy for likes and dislikes: repeating a
// reaction removes it, the opposite reaction replaces it.
type Toggle struct{}

func (Toggle) Family() entity.Family { return entity.FamilyLike }

func (Toggle) Transition(existing *entity.Reaction, in Input) (Decision, error) {
	if in.Sign != entity.SignLiked && in.Sign != entity.SignDisliked {
		return Decision{}, fmt.Errorf("%w: like sign must be %d or %d", apperror.ErrValidation, entity.SignLiked, entity.SignDisliked)
	}

	state := StateLiked
	if in.Sign == entity.SignDisliked {
		state = StateDisliked
	}

	if existing == nil {
		return Decision{Op: OpInsert, Value: in.Sign, State: state}, nil
	}
	if existing.Value == in.Sign {
		// Same reaction again toggles it off
		return Decision{Op: OpDelete, State: StateNone}, nil
	}
	return Decision{Op: OpReplace, Value: in.Sign, State: state}, nil
}

// Presence is the bookmark policy: presence is the value, a second toggle
// removes it.
type Presence struct{}

func (Presence) Family() entity.Family { return entity.FamilyBookmark }

func (Presence) Transition(existing *entity.Reaction, _ Input) (Decision, error) {
	if existing == nil {
		return Decision{Op: OpInsert, State: StateBookmarked}, nil
	}
	return Decision{Op: OpDelete, State: StateNone}, nil
}

// Accumulator is the clap policy: a bounded running total. The ceiling caps
// the stored total, not the per-call delta, so for any sequence of deltas the
// final value is min(Max, sum(deltas)). Hitting the ceiling is not an error;
// further claps are accepted as no-ops.
type Accumulator struct {
	Max int
}

func (Accumulator) Family() entity.Family { return entity.FamilyClap }

func (a Accumulator) Transition(existing *entity.Reaction, in Input) (Decision, error) {
	if in.Delta < 1 {
		return Decision{}, fmt.Errorf("%w: claps must be positive", apperror.ErrValidation)
	}

	if existing == nil {
		return Decision{Op: OpInsert, Value: min(in.Delta, a.Max), State: StateClapped}, nil
	}
	if existing.Value >= a.Max {
		return Decision{Op: OpNoop, Value: existing.Value, State: StateClapped}, nil
	}
	return Decision{Op: OpReplace, Value: min(existing.Value+in.Delta, a.Max), State: StateClapped}, nil
}

// SingleValue is the rating policy: a last-write-wins upsert of a 1..5 star
// value with no history.
type SingleValue struct{}

func (SingleValue) Family() entity.Family { return entity.FamilyRating }

func (SingleValue) Transition(existing *entity.Reaction, in Input) (Decision, error) {
	if in.Stars < 1 || in.Stars > 5 {
		return Decision{}, fmt.Errorf("%w: stars must be between 1 and 5", apperror.ErrValidation)
	}

	if existing == nil {
		return Decision{Op: OpInsert, Value: in.Stars, State: StateRated}, nil
	}
	return Decision{Op: OpReplace, Value: in.Stars, State: StateRated}, nil
}

// DedupAppend is the report policy: append-only and single-shot per actor.
// Once a report exists it is never mutated or deleted.
type DedupAppend struct{}

func (DedupAppend) Family() entity.Family { return entity.FamilyReport }

func (DedupAppend) Transition(existing *entity.Reaction, in Input) (Decision, error) {
	if !in.Category.Valid() {
		return Decision{}, fmt.Errorf("%w: unknown report category %q", apperror.ErrValidation, in.Category)
	}
	if in.Category == entity.ReportOther && in.Comment == "" {
		return Decision{}, fmt.Errorf("%w: a comment is required for category %q", apperror.ErrValidation, entity.ReportOther)
	}

	if existing != nil {
		return Decision{}, fmt.Errorf("%w: already reported by this actor", apperror.ErrConflict)
	}
	return Decision{Op: OpInsert, Category: in.Category, Comment: in.Comment, State: StateReported}, nil
}

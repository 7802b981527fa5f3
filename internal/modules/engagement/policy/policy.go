package policy

import (
	"fmt"

	"anoa.com/engagementledger/internal/entity"
	"anoa.com/engagementledger/pkg/apperror"
)

// Op is the storage effect a transition decided on.
type Op int

const (
	OpNoop Op = iota
	OpInsert
	OpReplace
	OpDelete
)

// State is the post-transition state reported back to the caller.
type State string

const (
	StateNone       State = "none"
	StateLiked      State = "liked"
	StateDisliked   State = "disliked"
	StateBookmarked State = "bookmarked"
	StateClapped    State = "clapped"
	StateRated      State = "rated"
	StateReported   State = "reported"
)

// Input carries the family-dependent request payload. Only the fields of the
// dispatched family are consulted.
type Input struct {
	Sign     int                   // like: entity.SignLiked or entity.SignDisliked
	Delta    int                   // clap: claps to add
	Stars    int                   // rating: 1..5
	Category entity.ReportCategory // report
	Comment  string                // report: mandatory when Category is "other"
}

// Decision is what a transition wants written and what the caller is told.
// Value/Category/Comment are the record payload for OpInsert and OpReplace.
type Decision struct {
	Op       Op
	Value    int
	Category entity.ReportCategory
	Comment  string
	State    State
}

// Policy computes the next record state for one reaction family. Transitions
// are pure: they read only the existing record and the input, never the
// clock or the store, so the conditional write may re-evaluate them against
// a fresher row.
type Policy interface {
	Family() entity.Family
	Transition(existing *entity.Reaction, in Input) (Decision, error)
}

// Set resolves the policy for a family.
type Set map[entity.Family]Policy

func NewSet(clapMax int) Set {
	return Set{
		entity.FamilyLike:     Toggle{},
		entity.FamilyBookmark: Presence{},
		entity.FamilyClap:     Accumulator{Max: clapMax},
		entity.FamilyRating:   SingleValue{},
		entity.FamilyReport:   DedupAppend{},
	}
}

func (s Set) For(f entity.Family) (Policy, error) {
	p, ok := s[f]
	if !ok {
		return nil, fmt.Errorf("%w: unknown reaction family %q", apperror.ErrValidation, f)
	}
	return p, nil
}

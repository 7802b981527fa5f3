package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/engagementledger/internal/entity"
	contentRepo "anoa.com/engagementledger/internal/modules/content/repository"
	engagementDto "anoa.com/engagementledger/internal/modules/engagement/dto"
	"anoa.com/engagementledger/internal/modules/engagement/policy"
	"anoa.com/engagementledger/internal/modules/engagement/repository"
	"anoa.com/engagementledger/pkg/apperror"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
)

// EngagementService is the single entry point for mutating and reading the
// engagement ledger. Every write funnels into the store's conditional write
// with a pure policy transition as the mutator.
type EngagementService interface {
	Apply(ctx context.Context, actorID uuid.UUID, kind entity.TargetKind, targetID uuid.UUID, family entity.Family, in policy.Input) (*engagementDto.ReactionOutcome, error)
	Query(ctx context.Context, kind entity.TargetKind, targetID uuid.UUID, family entity.Family, actorID *uuid.UUID) (*engagementDto.ReactionView, error)
	Overview(ctx context.Context, kind entity.TargetKind, targetID uuid.UUID) (*engagementDto.TargetCounts, error)
}

type engagementService struct {
	store     repository.ReactionStore
	content   contentRepo.ContentRepository
	policies  policy.Set
	cache     *countsCache
	sanitizer *bluemonday.Policy
}

func NewEngagementService(store repository.ReactionStore, content contentRepo.ContentRepository, redisClient *redis.Client, clapMax int) EngagementService {
	return &engagementService{
		store:     store,
		content:   content,
		policies:  policy.NewSet(clapMax),
		cache:     &countsCache{client: redisClient},
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *engagementService) Apply(ctx context.Context, actorID uuid.UUID, kind entity.TargetKind, targetID uuid.UUID, family entity.Family, in policy.Input) (*engagementDto.ReactionOutcome, error) {
	pol, err := s.policies.For(family)
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown target kind %q", apperror.ErrValidation, kind)
	}

	target, err := s.content.FindTarget(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}

	if family == entity.FamilyClap {
		if kind != entity.TargetArticle {
			return nil, fmt.Errorf("%w: claps apply to articles only", apperror.ErrValidation)
		}
		if target.AuthorID == actorID {
			return nil, fmt.Errorf("%w: authors cannot clap their own article", apperror.ErrForbidden)
		}
	}

	if family == entity.FamilyReport {
		in.Comment = strings.TrimSpace(s.sanitizer.Sanitize(in.Comment))
	}

	key := repository.Key{ActorID: actorID, TargetKind: kind, TargetID: targetID, Family: family}

	var decision policy.Decision
	mutate := func(existing *entity.Reaction) (repository.Write, error) {
		d, err := pol.Transition(existing, in)
		if err != nil {
			return repository.Write{}, err
		}
		decision = d
		return repository.Write{
			Op:       writeOp(d.Op),
			Value:    d.Value,
			Category: d.Category,
			Comment:  d.Comment,
		}, nil
	}

	res, err := s.store.ConditionalWrite(ctx, key, mutate)
	if errors.Is(err, apperror.ErrStorageUnavailable) {
		// One transparent retry; the write is idempotent because the mutator
		// is re-evaluated against the latest committed state.
		res, err = s.store.ConditionalWrite(ctx, key, mutate)
	}
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, kind, targetID)

	out := &engagementDto.ReactionOutcome{
		Family: family,
		State:  string(decision.State),
	}
	if res.Record != nil {
		out.Value = res.Record.Value
	}
	if family == entity.FamilyLike || family == entity.FamilyBookmark {
		// Toggle responses carry recomputed counts; failures here must not
		// fail an already committed write.
		if counts, err := s.countsFor(ctx, kind, targetID); err == nil {
			out.Counts = counts
		}
	}
	return out, nil
}

func (s *engagementService) Query(ctx context.Context, kind entity.TargetKind, targetID uuid.UUID, family entity.Family, actorID *uuid.UUID) (*engagementDto.ReactionView, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown target kind %q", apperror.ErrValidation, kind)
	}
	if !family.Valid() {
		return nil, fmt.Errorf("%w: unknown reaction family %q", apperror.ErrValidation, family)
	}
	if _, err := s.content.FindTarget(ctx, kind, targetID); err != nil {
		return nil, err
	}

	counts, err := s.countsFor(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}

	view := &engagementDto.ReactionView{Family: family, Counts: *counts}

	if actorID != nil {
		key := repository.Key{ActorID: *actorID, TargetKind: kind, TargetID: targetID, Family: family}
		rec, err := s.store.Read(ctx, key)
		if errors.Is(err, apperror.ErrStorageUnavailable) {
			rec, err = s.store.Read(ctx, key)
		}
		if err != nil {
			return nil, err
		}
		if rec != nil {
			view.Actor = &engagementDto.ActorReaction{State: string(recordState(rec)), Value: rec.Value}
		}
	}
	return view, nil
}

func (s *engagementService) Overview(ctx context.Context, kind entity.TargetKind, targetID uuid.UUID) (*engagementDto.TargetCounts, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown target kind %q", apperror.ErrValidation, kind)
	}
	if _, err := s.content.FindTarget(ctx, kind, targetID); err != nil {
		return nil, err
	}
	return s.countsFor(ctx, kind, targetID)
}

// countsFor serves the aggregate view cache-aside: hit from Redis, otherwise
// fold from the ledger and repopulate.
func (s *engagementService) countsFor(ctx context.Context, kind entity.TargetKind, targetID uuid.UUID) (*engagementDto.TargetCounts, error) {
	if counts, ok := s.cache.Get(ctx, kind, targetID); ok {
		return counts, nil
	}

	records, err := s.store.ReadAllForTarget(ctx, kind, targetID, "")
	if errors.Is(err, apperror.ErrStorageUnavailable) {
		records, err = s.store.ReadAllForTarget(ctx, kind, targetID, "")
	}
	if err != nil {
		return nil, err
	}

	counts := FoldCounts(records)
	s.cache.Set(ctx, kind, targetID, counts)
	return &counts, nil
}

func writeOp(op policy.Op) repository.WriteOp {
	switch op {
	case policy.OpInsert:
		return repository.WriteInsert
	case policy.OpReplace:
		return repository.WriteReplace
	case policy.OpDelete:
		return repository.WriteDelete
	}
	return repository.WriteNoop
}

func recordState(rec *entity.Reaction) policy.State {
	switch rec.Family {
	case entity.FamilyLike:
		if rec.Value == entity.SignLiked {
			return policy.StateLiked
		}
		return policy.StateDisliked
	case entity.FamilyBookmark:
		return policy.StateBookmarked
	case entity.FamilyClap:
		return policy.StateClapped
	case entity.FamilyRating:
		return policy.StateRated
	case entity.FamilyReport:
		return policy.StateReported
	}
	return policy.StateNone
}

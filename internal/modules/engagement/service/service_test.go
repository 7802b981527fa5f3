package engagement

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"anoa.com/engagementledger/internal/entity"
	contentRepo "anoa.com/engagementledger/internal/modules/content/repository"
	"anoa.com/engagementledger/internal/modules/engagement/policy"
	"anoa.com/engagementledger/internal/modules/engagement/repository"
	"anoa.com/engagementledger/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContent struct {
	targets  map[uuid.UUID]contentRepo.Target
	articles map[string]entity.Article
}

func (f *fakeContent) FindTarget(_ context.Context, kind entity.TargetKind, id uuid.UUID) (*contentRepo.Target, error) {
	t, ok := f.targets[id]
	if !ok || t.Kind != kind {
		return nil, fmt.Errorf("%w: %s %s", apperror.ErrNotFound, kind, id)
	}
	return &t, nil
}

func (f *fakeContent) FindArticleBySlug(_ context.Context, slug string) (*entity.Article, error) {
	a, ok := f.articles[slug]
	if !ok {
		return nil, fmt.Errorf("%w: article %q", apperror.ErrNotFound, slug)
	}
	return &a, nil
}

type fixture struct {
	svc       EngagementService
	store     *repository.MemoryStore
	actorID   uuid.UUID
	authorID  uuid.UUID
	articleID uuid.UUID
	commentID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:     repository.NewMemoryStore(),
		actorID:   uuid.New(),
		authorID:  uuid.New(),
		articleID: uuid.New(),
		commentID: uuid.New(),
	}

	content := &fakeContent{
		targets: map[uuid.UUID]contentRepo.Target{
			f.articleID: {Kind: entity.TargetArticle, ID: f.articleID, AuthorID: f.authorID},
			f.commentID: {Kind: entity.TargetComment, ID: f.commentID, AuthorID: f.authorID},
		},
	}

	f.svc = NewEngagementService(f.store, content, nil, 100)
	return f
}

func (f *fixture) articleKey(family entity.Family) repository.Key {
	return repository.Key{
		ActorID:    f.actorID,
		TargetKind: entity.TargetArticle,
		TargetID:   f.articleID,
		Family:     family,
	}
}

func TestToggleRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyLike, policy.Input{Sign: entity.SignLiked})
	require.NoError(t, err)
	assert.Equal(t, string(policy.StateLiked), out.State)

	rec, err := f.store.Read(ctx, f.articleKey(entity.FamilyLike))
	require.NoError(t, err)
	require.NotNil(t, rec)

	// Liking again removes the reaction
	out, err = f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyLike, policy.Input{Sign: entity.SignLiked})
	require.NoError(t, err)
	assert.Equal(t, string(policy.StateNone), out.State)

	rec, err = f.store.Read(ctx, f.articleKey(entity.FamilyLike))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLikeThenDislikeReplaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyLike, policy.Input{Sign: entity.SignLiked})
	require.NoError(t, err)

	out, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyLike, policy.Input{Sign: entity.SignDisliked})
	require.NoError(t, err)
	assert.Equal(t, string(policy.StateDisliked), out.State)

	records, err := f.store.ReadAllForTarget(ctx, entity.TargetArticle, f.articleID, entity.FamilyLike)
	require.NoError(t, err)
	require.Len(t, records, 1, "like and dislike must never coexist for one actor")
	assert.Equal(t, entity.SignDisliked, records[0].Value)
}

func TestToggleResponseCarriesCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyLike, policy.Input{Sign: entity.SignLiked})
	require.NoError(t, err)
	require.NotNil(t, out.Counts)
	assert.Equal(t, int64(1), out.Counts.Likes)
	assert.Equal(t, int64(0), out.Counts.Dislikes)
}

func TestBookmarkToggles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyBookmark, policy.Input{})
	require.NoError(t, err)
	assert.Equal(t, string(policy.StateBookmarked), out.State)

	out, err = f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyBookmark, policy.Input{})
	require.NoError(t, err)
	assert.Equal(t, string(policy.StateNone), out.State)

	rec, err := f.store.Read(ctx, f.articleKey(entity.FamilyBookmark))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestClapCeilingAcrossCalls(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, delta := range []int{60, 60} {
		_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyClap, policy.Input{Delta: delta})
		require.NoError(t, err)
	}

	rec, err := f.store.Read(ctx, f.articleKey(entity.FamilyClap))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 100, rec.Value, "running total caps at the ceiling, not 120")

	// Clapping at the ceiling is accepted but changes nothing
	out, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyClap, policy.Input{Delta: 5})
	require.NoError(t, err)
	assert.Equal(t, 100, out.Value)

	rec, err = f.store.Read(ctx, f.articleKey(entity.FamilyClap))
	require.NoError(t, err)
	assert.Equal(t, 100, rec.Value)
}

func TestSelfClapForbidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Apply(ctx, f.authorID, entity.TargetArticle, f.articleID, entity.FamilyClap, policy.Input{Delta: 10})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	records, err := f.store.ReadAllForTarget(ctx, entity.TargetArticle, f.articleID, entity.FamilyClap)
	require.NoError(t, err)
	assert.Empty(t, records, "a forbidden clap must not create a record")
}

func TestClapOnCommentRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Apply(ctx, f.actorID, entity.TargetComment, f.commentID, entity.FamilyClap, policy.Input{Delta: 10})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRatingUpsertAndAverage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyRating, policy.Input{Stars: 3})
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyRating, policy.Input{Stars: 5})
	require.NoError(t, err)

	records, err := f.store.ReadAllForTarget(ctx, entity.TargetArticle, f.articleID, entity.FamilyRating)
	require.NoError(t, err)
	require.Len(t, records, 1, "rating is an upsert, no history")
	assert.Equal(t, 5, records[0].Value)

	view, err := f.svc.Query(ctx, entity.TargetArticle, f.articleID, entity.FamilyRating, nil)
	require.NoError(t, err)
	assert.Equal(t, 5.0, view.Counts.AverageRating, "average reflects the replacement, not the mean of 3 and 5")
}

func TestRatingOutOfRangeNeverTouchesStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyRating, policy.Input{Stars: 9})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	rec, err := f.store.Read(ctx, f.articleKey(entity.FamilyRating))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestReportDedup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyReport, policy.Input{Category: entity.ReportSpam})
	require.NoError(t, err)
	assert.Equal(t, string(policy.StateReported), out.State)

	_, err = f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyReport, policy.Input{Category: entity.ReportPlagiarism})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	rec, err := f.store.Read(ctx, f.articleKey(entity.FamilyReport))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, entity.ReportSpam, rec.ReportCategory, "a rejected duplicate must not mutate the stored report")
}

func TestReportOtherRequiresComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyReport, policy.Input{Category: entity.ReportOther})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyReport, policy.Input{Category: entity.ReportOther, Comment: "broken layout"})
	require.NoError(t, err)
}

func TestReportCommentIsSanitized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := policy.Input{Category: entity.ReportOther, Comment: "<b>plagiarised</b> from my blog"}
	_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyReport, in)
	require.NoError(t, err)

	rec, err := f.store.Read(ctx, f.articleKey(entity.FamilyReport))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "plagiarised from my blog", rec.ReportComment)
}

func TestUnknownTargetRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, uuid.New(), entity.FamilyLike, policy.Input{Sign: entity.SignLiked})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUnknownFamilyRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, "wave", policy.Input{})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestTransientStorageFailureRetriedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.FailNext(fmt.Errorf("%w: connection reset", apperror.ErrStorageUnavailable))

	out, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyLike, policy.Input{Sign: entity.SignLiked})
	require.NoError(t, err, "a single transient failure is retried transparently")
	assert.Equal(t, string(policy.StateLiked), out.State)
}

func TestPersistentStorageFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.FailNext(fmt.Errorf("%w: connection reset", apperror.ErrStorageUnavailable))
	f.store.FailNext(fmt.Errorf("%w: connection reset", apperror.ErrStorageUnavailable))

	_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyLike, policy.Input{Sign: entity.SignLiked})
	assert.ErrorIs(t, err, apperror.ErrStorageUnavailable)

	rec, readErr := f.store.Read(ctx, f.articleKey(entity.FamilyLike))
	require.NoError(t, readErr)
	assert.Nil(t, rec, "a failed call must leave no partial state")
}

func TestQueryIncludesActorState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyBookmark, policy.Input{})
	require.NoError(t, err)

	view, err := f.svc.Query(ctx, entity.TargetArticle, f.articleID, entity.FamilyBookmark, &f.actorID)
	require.NoError(t, err)
	require.NotNil(t, view.Actor)
	assert.Equal(t, string(policy.StateBookmarked), view.Actor.State)
	assert.Equal(t, int64(1), view.Counts.Bookmarks)

	// Anonymous view carries counts only
	view, err = f.svc.Query(ctx, entity.TargetArticle, f.articleID, entity.FamilyBookmark, nil)
	require.NoError(t, err)
	assert.Nil(t, view.Actor)
}

func TestOverviewAggregates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	other := uuid.New()
	_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyLike, policy.Input{Sign: entity.SignLiked})
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, other, entity.TargetArticle, f.articleID, entity.FamilyLike, policy.Input{Sign: entity.SignDisliked})
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, other, entity.TargetArticle, f.articleID, entity.FamilyClap, policy.Input{Delta: 40})
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyRating, policy.Input{Stars: 4})
	require.NoError(t, err)

	counts, err := f.svc.Overview(ctx, entity.TargetArticle, f.articleID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Likes)
	assert.Equal(t, int64(1), counts.Dislikes)
	assert.Equal(t, int64(40), counts.Claps)
	assert.Equal(t, 4.0, counts.AverageRating)
}

// After any interleaving of concurrent toggles on one key, the one-record
// invariant holds: never two rows, and a surviving row is in a legal state.
func TestConcurrentTogglesPreserveInvariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const writers = 16
	var wg sync.WaitGroup
	wg.Add(writers)
	start := make(chan struct{})

	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Apply(ctx, f.actorID, entity.TargetArticle, f.articleID, entity.FamilyLike, policy.Input{Sign: entity.SignLiked})
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	records, err := f.store.ReadAllForTarget(ctx, entity.TargetArticle, f.articleID, entity.FamilyLike)
	require.NoError(t, err)
	require.LessOrEqual(t, len(records), 1, "the one-record invariant must survive concurrency")
	if len(records) == 1 {
		assert.Equal(t, entity.SignLiked, records[0].Value)
	}
}

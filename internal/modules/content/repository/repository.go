package repository

import (
	"context"
	"fmt"

	"anoa.com/engagementledger/internal/entity"
	"anoa.com/engagementledger/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Target is the slice of a content item the ledger needs: existence and
// ownership. Content CRUD itself is another service's business.
type Target struct {
	Kind     entity.TargetKind
	ID       uuid.UUID
	AuthorID uuid.UUID
}

type ContentRepository interface {
	FindTarget(ctx context.Context, kind entity.TargetKind, id uuid.UUID) (*Target, error)
	FindArticleBySlug(ctx context.Context, slug string) (*entity.Article, error)
}

type contentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) FindTarget(ctx context.Context, kind entity.TargetKind, id uuid.UUID) (*Target, error) {
	switch kind {
	case entity.TargetArticle:
		var rows []entity.Article
		if err := r.db.WithContext(ctx).
			Select("id", "author_id").
			Where("id = ?", id).
			Limit(1).
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", apperror.ErrStorageUnavailable, err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: article %s", apperror.ErrNotFound, id)
		}
		return &Target{Kind: kind, ID: rows[0].ID, AuthorID: rows[0].AuthorID}, nil
	case entity.TargetComment:
		var rows []entity.Comment
		if err := r.db.WithContext(ctx).
			Select("id", "author_id").
			Where("id = ?", id).
			Limit(1).
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", apperror.ErrStorageUnavailable, err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: comment %s", apperror.ErrNotFound, id)
		}
		return &Target{Kind: kind, ID: rows[0].ID, AuthorID: rows[0].AuthorID}, nil
	}
	return nil, fmt.Errorf("%w: unknown target kind %q", apperror.ErrValidation, kind)
}

func (r *contentRepository) FindArticleBySlug(ctx context.Context, slug string) (*entity.Article, error) {
	var rows []entity.Article
	if err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrStorageUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: article %q", apperror.ErrNotFound, slug)
	}
	return &rows[0], nil
}

package handler

import (
	"fmt"
	"net/http"
	"strings"

	"anoa.com/engagementledger/internal/entity"
	contentRepo "anoa.com/engagementledger/internal/modules/content/repository"
	engagementDto "anoa.com/engagementledger/internal/modules/engagement/dto"
	"anoa.com/engagementledger/internal/modules/engagement/policy"
	engagement "anoa.com/engagementledger/internal/modules/engagement/service"
	"anoa.com/engagementledger/pkg/apperror"
	"anoa.com/engagementledger/pkg/response"
	pkgvalidator "anoa.com/engagementledger/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EngagementHandler struct {
	service engagement.EngagementService
	content contentRepo.ContentRepository
}

func NewEngagementHandler(service engagement.EngagementService, content contentRepo.ContentRepository) *EngagementHandler {
	return &EngagementHandler{service: service, content: content}
}

// resolveArticle maps the route param to an article id, accepting either the
// slug or the raw id (ratings and reports address articles by id). Responds
// and returns false when the slug does not resolve.
func (h *EngagementHandler) resolveArticle(c *gin.Context) (uuid.UUID, bool) {
	ref := c.Param("slug")
	if id, err := uuid.Parse(ref); err == nil {
		return id, true
	}

	article, err := h.content.FindArticleBySlug(c.Request.Context(), ref)
	if err != nil {
		response.Error(c, err)
		return uuid.Nil, false
	}
	return article.ID, true
}

func parseCommentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("comment_id"))
	if err != nil {
		response.Error(c, fmt.Errorf("%w: invalid comment id", apperror.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

func (h *EngagementHandler) applyToggle(c *gin.Context, kind entity.TargetKind, targetID uuid.UUID, sign int) {
	actorID, err := response.GetActorID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	outcome, err := h.service.Apply(c.Request.Context(), actorID, kind, targetID, entity.FamilyLike, policy.Input{Sign: sign})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "reaction updated", outcome)
}

func (h *EngagementHandler) LikeArticle(c *gin.Context) {
	articleID, ok := h.resolveArticle(c)
	if !ok {
		return
	}
	h.applyToggle(c, entity.TargetArticle, articleID, entity.SignLiked)
}

func (h *EngagementHandler) DislikeArticle(c *gin.Context) {
	articleID, ok := h.resolveArticle(c)
	if !ok {
		return
	}
	h.applyToggle(c, entity.TargetArticle, articleID, entity.SignDisliked)
}

func (h *EngagementHandler) LikeComment(c *gin.Context) {
	commentID, ok := parseCommentID(c)
	if !ok {
		return
	}
	h.applyToggle(c, entity.TargetComment, commentID, entity.SignLiked)
}

func (h *EngagementHandler) DislikeComment(c *gin.Context) {
	commentID, ok := parseCommentID(c)
	if !ok {
		return
	}
	h.applyToggle(c, entity.TargetComment, commentID, entity.SignDisliked)
}

func (h *EngagementHandler) ToggleArticleBookmark(c *gin.Context) {
	articleID, ok := h.resolveArticle(c)
	if !ok {
		return
	}
	actorID, err := response.GetActorID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	outcome, err := h.service.Apply(c.Request.Context(), actorID, entity.TargetArticle, articleID, entity.FamilyBookmark, policy.Input{})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "bookmark updated", outcome)
}

func (h *EngagementHandler) ClapArticle(c *gin.Context) {
	articleID, ok := h.resolveArticle(c)
	if !ok {
		return
	}
	actorID, err := response.GetActorID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req engagementDto.ClapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %s", apperror.ErrValidation, pkgvalidator.FormatValidationError(err)))
		return
	}

	outcome, err := h.service.Apply(c.Request.Context(), actorID, entity.TargetArticle, articleID, entity.FamilyClap, policy.Input{Delta: req.Claps})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "claps recorded", outcome)
}

func (h *EngagementHandler) GetArticleClaps(c *gin.Context) {
	articleID, ok := h.resolveArticle(c)
	if !ok {
		return
	}

	view, err := h.service.Query(c.Request.Context(), entity.TargetArticle, articleID, entity.FamilyClap, optionalActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "claps", view)
}

func (h *EngagementHandler) RateArticle(c *gin.Context) {
	articleID, ok := h.resolveArticle(c)
	if !ok {
		return
	}
	actorID, err := response.GetActorID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req engagementDto.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %s", apperror.ErrValidation, pkgvalidator.FormatValidationError(err)))
		return
	}

	outcome, err := h.service.Apply(c.Request.Context(), actorID, entity.TargetArticle, articleID, entity.FamilyRating, policy.Input{Stars: req.Stars})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "rating recorded", outcome)
}

func (h *EngagementHandler) GetArticleRatings(c *gin.Context) {
	articleID, ok := h.resolveArticle(c)
	if !ok {
		return
	}

	view, err := h.service.Query(c.Request.Context(), entity.TargetArticle, articleID, entity.FamilyRating, optionalActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "ratings", view)
}

func (h *EngagementHandler) ReportArticle(c *gin.Context) {
	articleID, ok := h.resolveArticle(c)
	if !ok {
		return
	}
	actorID, err := response.GetActorID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req engagementDto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %s", apperror.ErrValidation, pkgvalidator.FormatValidationError(err)))
		return
	}

	in := policy.Input{
		Category: entity.ReportCategory(strings.ToLower(req.ReportType)),
		Comment:  req.Comment,
	}
	outcome, err := h.service.Apply(c.Request.Context(), actorID, entity.TargetArticle, articleID, entity.FamilyReport, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "report recorded", outcome)
}

func (h *EngagementHandler) GetArticleReactions(c *gin.Context) {
	articleID, ok := h.resolveArticle(c)
	if !ok {
		return
	}

	counts, err := h.service.Overview(c.Request.Context(), entity.TargetArticle, articleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "reactions", counts)
}

func (h *EngagementHandler) GetCommentLikes(c *gin.Context) {
	commentID, ok := parseCommentID(c)
	if !ok {
		return
	}

	view, err := h.service.Query(c.Request.Context(), entity.TargetComment, commentID, entity.FamilyLike, optionalActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "likes", view)
}

// optionalActor resolves the actor for read paths: an explicit userId query
// parameter wins, otherwise the authenticated actor if any.
func optionalActor(c *gin.Context) *uuid.UUID {
	if raw := c.Query("userId"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return &id
		}
		return nil
	}
	if id, err := response.GetActorID(c); err == nil {
		return &id
	}
	return nil
}

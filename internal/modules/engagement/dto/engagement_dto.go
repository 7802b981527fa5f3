package dto

import "anoa.com/engagementledger/internal/entity"

// Write requests, bound from JSON bodies by the delivery layer.

type ClapRequest struct {
	Claps int `json:"claps" binding:"required,min=1"`
}

type RatingRequest struct {
	// Range is enforced by the rating policy so out-of-range stars surface
	// as a Validation error, not a bind failure.
	Stars int `json:"stars" binding:"required"`
}

type ReportRequest struct {
	ReportType string `json:"reportType" binding:"required"`
	Comment    string `json:"comment"`
}

// TargetCounts is the aggregate view of one target across all families.
// RatingSum backs the cached average and is not rendered.
type TargetCounts struct {
	Likes         int64   `json:"likes"`
	Dislikes      int64   `json:"dislikes"`
	Bookmarks     int64   `json:"bookmarks"`
	Claps         int64   `json:"claps"`
	RatingCount   int64   `json:"rating_count"`
	RatingSum     int64   `json:"-"`
	AverageRating float64 `json:"average_rating"`
	Reports       int64   `json:"reports"`
}

// ReactionOutcome reports the result of one Apply call.
type ReactionOutcome struct {
	Family entity.Family `json:"family"`
	State  string        `json:"state"`
	Value  int           `json:"value,omitempty"`
	Counts *TargetCounts `json:"counts,omitempty"`
}

// ActorReaction is the requesting actor's own record state within a view.
type ActorReaction struct {
	State string `json:"state"`
	Value int    `json:"value,omitempty"`
}

// ReactionView is the read-side result of one Query call.
type ReactionView struct {
	Family entity.Family  `json:"family"`
	Counts TargetCounts   `json:"counts"`
	Actor  *ActorReaction `json:"actor,omitempty"`
}

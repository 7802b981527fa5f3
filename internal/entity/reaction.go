package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TargetKind identifies the kind of content item a reaction points at.
type TargetKind string

const (
	TargetArticle TargetKind = "article"
	TargetComment TargetKind = "comment"
)

func (k TargetKind) Valid() bool {
	return k == TargetArticle || k == TargetComment
}

// Family is the category of reaction. Each family has its own transition
// policy; like and dislike share one family with a signed value.
type Family string

const (
	FamilyLike     Family = "like"
	FamilyBookmark Family = "bookmark"
	FamilyClap     Family = "clap"
	FamilyRating   Family = "rating"
	FamilyReport   Family = "report"
)

func (f Family) Valid() bool {
	switch f {
	case FamilyLike, FamilyBookmark, FamilyClap, FamilyRating, FamilyReport:
		return true
	}
	return false
}

// Sign values stored in Reaction.Value for FamilyLike.
const (
	SignLiked    = 1
	SignDisliked = -1
)

// ReportCategory is the closed enumeration of abuse report categories.
type ReportCategory string

const (
	ReportSpam           ReportCategory = "spam"
	ReportPlagiarism     ReportCategory = "plagiarism"
	ReportRulesViolation ReportCategory = "rules_violation"
	ReportOther          ReportCategory = "other"
)

func (c ReportCategory) Valid() bool {
	switch c {
	case ReportSpam, ReportPlagiarism, ReportRulesViolation, ReportOther:
		return true
	}
	return false
}

// Reaction is one row of the engagement ledger: a single user's reaction of
// one family to one content item. The composite unique index carries the
// at-most-one-record invariant; every write goes through the conditional
// write contract in the engagement repository.
type Reaction struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reactions_key,priority:1" json:"actor_id"`
	TargetKind TargetKind `gorm:"size:20;not null;uniqueIndex:idx_reactions_key,priority:2;index:idx_reactions_target,priority:1" json:"target_kind"`
	TargetID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reactions_key,priority:3;index:idx_reactions_target,priority:2" json:"target_id"`
	Family     Family     `gorm:"size:20;not null;uniqueIndex:idx_reactions_key,priority:4;index:idx_reactions_target,priority:3" json:"family"`

	// Value is family-dependent: +1/-1 for like, running total for clap,
	// stars for rating, unused for bookmark and report.
	Value          int            `gorm:"not null;default:0" json:"value"`
	ReportCategory ReportCategory `gorm:"size:30" json:"report_category,omitempty"`
	ReportComment  string         `gorm:"size:500" json:"report_comment,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Reaction) TableName() string {
	return "reactions"
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

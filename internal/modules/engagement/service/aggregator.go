package engagement

import (
	"anoa.com/engagementledger/internal/entity"
	engagementDto "anoa.com/engagementledger/internal/modules/engagement/dto"
)

// FoldCounts computes the derived aggregate view from a target's ledger
// records. Pure and recomputed per call; the Redis layer only caches its
// output.
func FoldCounts(records []entity.Reaction) engagementDto.TargetCounts {
	var counts engagementDto.TargetCounts

	for _, rec := range records {
		switch rec.Family {
		case entity.FamilyLike:
			if rec.Value == entity.SignLiked {
				counts.Likes++
			} else {
				counts.Dislikes++
			}
		case entity.FamilyBookmark:
			counts.Bookmarks++
		case entity.FamilyClap:
			counts.Claps += int64(rec.Value)
		case entity.FamilyRating:
			counts.RatingCount++
			counts.RatingSum += int64(rec.Value)
		case entity.FamilyReport:
			counts.Reports++
		}
	}

	if counts.RatingCount > 0 {
		counts.AverageRating = float64(counts.RatingSum) / float64(counts.RatingCount)
	}
	return counts
}

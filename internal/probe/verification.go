package probe

import (
	"github.com/rotisserie/eris"
)

// verifyRanking checks ordering, rank numbering and totals of one page.
func verifyRanking(r Ranking, limit int) error {
	if len(r.Rankings) > limit {
		return eris.Wrapf(ErrVerification, "%s: %d entries for limit %d", r.Category, len(r.Rankings), limit)
	}
	if r.TotalModels < len(r.Rankings) {
		return eris.Wrapf(ErrVerification, "%s: total %d below page size %d", r.Category, r.TotalModels, len(r.Rankings))
	}
	for i, e := range r.Rankings {
		if e.Rank != i+1 {
			return eris.Wrapf(ErrVerification, "%s: entry %d has rank %d", r.Category, i, e.Rank)
		}
		if e.Score < 0 || e.Score > 100 {
			return eris.Wrapf(ErrVerification, "%s: %s score %.3f out of range", r.Category, e.ModelID, e.Score)
		}
		if e.Confidence < 0 || e.Confidence > 1 {
			return eris.Wrapf(ErrVerification, "%s: %s confidence %.3f out of range", r.Category, e.ModelID, e.Confidence)
		}
		if i == 0 {
			continue
		}
		prev := r.Rankings[i-1]
		if e.Score > prev.Score || (e.Score == prev.Score && e.ModelID < prev.ModelID) {
			return eris.Wrapf(ErrVerification, "%s: entries %d and %d out of order", r.Category, i-1, i)
		}
	}
	return nil
}

// verifyModel checks that a point lookup agrees with the ranking it came from.
func verifyModel(category string, e Entry, ms ModelScores) error {
	if ms.ModelID != e.ModelID {
		return eris.Wrapf(ErrVerification, "lookup of %s returned %s", e.ModelID, ms.ModelID)
	}
	cs, ok := ms.CategoryScores[category]
	if !ok {
		return eris.Wrapf(ErrVerification, "%s: ranked in %s but has no score there", e.ModelID, category)
	}
	if score, _ := cs["score"].(float64); score != e.Score {
		return eris.Wrapf(ErrVerification, "%s: %s score %.3f, ranking says %.3f", e.ModelID, category, score, e.Score)
	}
	return nil
}

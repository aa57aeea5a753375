package payouts

import (
	"math"

	"github.com/tourlink/marketplace/internal/app/domain/month"
	"github.com/tourlink/marketplace/internal/app/domain/score"
	"github.com/tourlink/marketplace/internal/app/domain/settings"
)

// buildScore derives one guide's score row for target month m.
//
// prev1 and prev2 are the guide's rows for m-1 and m-2 (nil when absent). The
// guide's tenure decides how the rolling average blends in:
//   - first scored month: the monthly score stands alone;
//   - second month: the single prior month is the average, blended with fixed
//     0.7/0.3 weights so a new guide's rank is not dominated by one old month;
//   - third month onward: the mean of the priors, blended with the configured
//     weights.
//
// The rank falls out of the blended score against the configured thresholds,
// then decay limiting caps any drop at one tier below the m-1 rank.
func buildScore(guideID string, m month.Month, monthlyScore float64, prev1, prev2 *score.MonthlyGuideScore, cfg settings.Payout) score.MonthlyGuideScore {
	var priors []float64
	if prev1 != nil {
		priors = append(priors, prev1.MonthlyScore)
	}
	if prev2 != nil {
		priors = append(priors, prev2.MonthlyScore)
	}

	var avg3, rankScore float64
	switch len(priors) {
	case 0:
		avg3 = monthlyScore
		rankScore = monthlyScore
	case 1:
		avg3 = priors[0]
		rankScore = 0.7*monthlyScore + 0.3*avg3
	default:
		avg3 = (priors[0] + priors[1]) / 2
		rankScore = cfg.Weights.Monthly*monthlyScore + cfg.Weights.Avg3*avg3
	}

	rank := score.RankFor(rankScore, cfg.RankThresholds)
	if prev1 != nil {
		rank = score.LimitDrop(prev1.Rank, rank)
	}

	return score.MonthlyGuideScore{
		GuideID:      guideID,
		Month:        m.String(),
		MonthlyScore: monthlyScore,
		Avg3Score:    avg3,
		RankScore:    rankScore,
		Rank:         rank,
	}
}

// roundAmount converts a fractional pool share to integer currency units,
// rounding half away from zero.
func roundAmount(x float64) int64 {
	return int64(math.Round(x))
}

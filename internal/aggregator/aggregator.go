package aggregator

import (
	"math"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/metrics"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
	"github.com/shopspring/decimal"
)

// cohort accumulates one slice of the bet list. Currency is summed in
// decimal so that overall == topPicks + otherBets holds exactly.
type cohort struct {
	count   int
	wins    int
	losses  int
	pending int

	wagered        decimal.Decimal
	completedWager decimal.Decimal
	profitLoss     decimal.Decimal
}

func newCohort() cohort {
	return cohort{
		wagered:        decimal.Zero,
		completedWager: decimal.Zero,
		profitLoss:     decimal.Zero,
	}
}

func (c *cohort) add(wager decimal.Decimal, profitLoss decimal.Decimal, wasCorrect *bool) {
	c.count++
	c.wagered = c.wagered.Add(wager)

	if wasCorrect == nil {
		c.pending++
		return
	}

	c.completedWager = c.completedWager.Add(wager)
	c.profitLoss = c.profitLoss.Add(profitLoss)
	if *wasCorrect {
		c.wins++
	} else {
		c.losses++
	}
}

// summary derives the weekly cohort view. Win rate is over resolved bets only.
func (c *cohort) summary() models.CohortSummary {
	pendingWager := c.wagered.Sub(c.completedWager)
	if pendingWager.IsNegative() {
		pendingWager = decimal.Zero
	}

	wagered := c.wagered.InexactFloat64()
	profitLoss := c.profitLoss.InexactFloat64()

	return models.CohortSummary{
		Count:           c.count,
		Wins:            c.wins,
		Losses:          c.losses,
		Pending:         c.pending,
		TotalWagered:    wagered,
		CompletedWager:  c.completedWager.InexactFloat64(),
		PendingWager:    pendingWager.InexactFloat64(),
		TotalProfitLoss: profitLoss,
		ROI:             metrics.ROI(profitLoss, wagered),
		WinRate:         metrics.WinRate(c.wins, c.wins+c.losses),
	}
}

// Weekly computes the cohort summary of one week's recommendations in a
// single pass. An empty or nil list yields all-zero cohorts.
func Weekly(recs []models.Recommendation) models.PerformanceSummary {
	overall, topPicks, otherBets := newCohort(), newCohort(), newCohort()

	for _, rec := range recs {
		wager := decimal.NewFromFloat(sanitizeWager(rec.RecommendedWager))

		profitLoss := decimal.Zero
		if rec.Completed() && rec.ProfitLoss != nil {
			profitLoss = decimal.NewFromFloat(sanitizeAmount(*rec.ProfitLoss))
		}

		overall.add(wager, profitLoss, rec.WasCorrect)
		if rec.IsTopPick {
			topPicks.add(wager, profitLoss, rec.WasCorrect)
		} else {
			otherBets.add(wager, profitLoss, rec.WasCorrect)
		}
	}

	return models.PerformanceSummary{
		Overall:   overall.summary(),
		TopPicks:  topPicks.summary(),
		OtherBets: otherBets.summary(),
	}
}

// AllTime derives the all-time summary from the server snapshot alone.
// Unlike Weekly, win rate here is over total bets (wins = round(winRate * totalBets)),
// and other bets are the overall totals minus the top-pick totals.
func AllTime(s models.PerformanceSnapshot) models.PerformanceSummary {
	overall := snapshotCohort(s.TotalBets, s.TotalWager, s.TotalProfitLoss, s.WinRate)
	topPicks := snapshotCohort(s.TopPicksCount, s.TopPicksWager, s.TopPicksProfitLoss, s.TopPicksWinRate)
	otherBets := subtract(overall, topPicks)

	return models.PerformanceSummary{
		Overall:   overall.allTimeSummary(),
		TopPicks:  topPicks.allTimeSummary(),
		OtherBets: otherBets.allTimeSummary(),
	}
}

// ComputePerformanceSummary is the single entry point used by the presentation
// layer. A nil snapshot means the all-time data could not be fetched; that
// section is left nil rather than zero-filled.
func ComputePerformanceSummary(recs []models.Recommendation, snapshot *models.PerformanceSnapshot, startingBankroll float64) models.DashboardSummary {
	result := models.DashboardSummary{
		Weekly: Weekly(recs),
	}

	if snapshot == nil {
		return result
	}

	allTime := AllTime(*snapshot)
	result.AllTime = &allTime
	result.Bankroll = bankroll(allTime.Overall.TotalProfitLoss, startingBankroll)

	return result
}

func bankroll(profitLoss, starting float64) *models.Bankroll {
	remaining := decimal.NewFromFloat(starting).Add(decimal.NewFromFloat(profitLoss))

	return &models.Bankroll{
		Starting:  starting,
		Remaining: remaining.InexactFloat64(),
		ROI:       metrics.ROI(profitLoss, starting),
		Sign:      string(metrics.ClassifySign(profitLoss)),
	}
}

func snapshotCohort(count int, wager, profitLoss, winRate float64) cohort {
	if count < 0 {
		count = 0
	}

	wins := int(math.Round(normalizeRate(winRate) * float64(count)))
	if wins > count {
		wins = count
	}

	wagered := decimal.NewFromFloat(sanitizeWager(wager))

	// The snapshot only counts settled bets
	return cohort{
		count:          count,
		wins:           wins,
		losses:         count - wins,
		wagered:        wagered,
		completedWager: wagered,
		profitLoss:     decimal.NewFromFloat(sanitizeAmount(profitLoss)),
	}
}

// subtract returns a - b. Counts and wagers are floored at zero when the
// snapshot is internally inconsistent; profit/loss stays signed.
func subtract(a, b cohort) cohort {
	count := a.count - b.count
	if count < 0 {
		count = 0
	}

	wins := a.wins - b.wins
	if wins < 0 {
		wins = 0
	}
	if wins > count {
		wins = count
	}

	wagered := a.wagered.Sub(b.wagered)
	if wagered.IsNegative() {
		wagered = decimal.Zero
	}

	return cohort{
		count:          count,
		wins:           wins,
		losses:         count - wins,
		wagered:        wagered,
		completedWager: wagered,
		profitLoss:     a.profitLoss.Sub(b.profitLoss),
	}
}

func (c *cohort) allTimeSummary() models.CohortSummary {
	s := c.summary()
	s.WinRate = metrics.WinRate(c.wins, c.count)
	return s
}

func sanitizeWager(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func sanitizeAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// normalizeRate accepts either a fraction or a percentage and returns a
// fraction in [0,1]
func normalizeRate(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	if v > 1 {
		v = v / 100
	}
	if v > 1 {
		return 1
	}
	return v
}

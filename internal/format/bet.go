package format

import (
	"fmt"
	"strings"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
)

const (
	unknownGame    = "Unknown Game"
	unknownBet     = "Unknown Bet"
	noReasoning    = "No reasoning provided"
	gameInfoMarker = " @ "
)

// Outcome badge values
const (
	OutcomePending = "PENDING"
	OutcomeWin     = "WIN"
	OutcomeLoss    = "LOSS"
)

// teams splits "Away @ Home" into its two teams
func teams(gameInfo string) (away, home string) {
	parts := strings.SplitN(gameInfo, gameInfoMarker, 2)
	if len(parts) != 2 {
		return gameInfo, gameInfo
	}
	return parts[0], parts[1]
}

func oddsSuffix(odds *int) string {
	if odds == nil || *odds == 0 {
		return ""
	}
	return fmt.Sprintf(" (%s)", AmericanOdds(*odds))
}

// BetDisplay renders the headline of a recommendation card, e.g.
// "Chiefs to Win (+150)", "Bills -3.5 (-110)", "Over 47.5 Points (-105)"
func BetDisplay(rec models.Recommendation) string {
	gameInfo := rec.GameInfo
	if gameInfo == "" {
		gameInfo = unknownGame
	}
	away, home := teams(gameInfo)

	team := away
	if rec.Side == models.SideHome {
		team = home
	}

	switch rec.BetType {
	case models.BetTypeMoneyline:
		return fmt.Sprintf("%s to Win%s", team, oddsSuffix(rec.OddsAtTimeOfBet))

	case models.BetTypeSpread:
		line := ""
		if rec.Line != nil {
			line = fmt.Sprintf(" %+.1f", *rec.Line)
		}
		return fmt.Sprintf("%s%s%s", team, line, oddsSuffix(rec.OddsAtTimeOfBet))

	case models.BetTypeTotal:
		direction := "Under"
		if rec.Side == models.SideOver {
			direction = "Over"
		}
		line := ""
		if rec.Line != nil {
			line = fmt.Sprintf(" %.1f", *rec.Line)
		}
		return fmt.Sprintf("%s%s Points%s", direction, line, oddsSuffix(rec.OddsAtTimeOfBet))
	}

	return unknownBet
}

// Outcome returns the badge text and CSS class for a bet's result
func Outcome(wasCorrect *bool) (status, class string) {
	switch {
	case wasCorrect == nil:
		return OutcomePending, "pending"
	case *wasCorrect:
		return OutcomeWin, "win"
	default:
		return OutcomeLoss, "loss"
	}
}

// Card builds the display view of a recommendation
func Card(rec models.Recommendation) models.RecommendationCard {
	gameInfo := rec.GameInfo
	if gameInfo == "" {
		gameInfo = unknownGame
	}
	reasoning := rec.Reasoning
	if reasoning == "" {
		reasoning = noReasoning
	}

	book := Sportsbook(rec.Sportsbook)
	status, class := Outcome(rec.WasCorrect)

	details := gameInfo
	if gameTime := GameTime(rec.GameTime); gameTime != "" {
		details = fmt.Sprintf("%s • %s", gameInfo, gameTime)
	}

	var toWin string
	if rec.OddsAtTimeOfBet != nil && *rec.OddsAtTimeOfBet != 0 && rec.RecommendedWager > 0 {
		toWin = Currency(ToWin(rec.RecommendedWager, *rec.OddsAtTimeOfBet))
	}

	return models.RecommendationCard{
		ID:              rec.ID,
		BetDisplay:      BetDisplay(rec),
		Sportsbook:      book.Name(),
		SportsbookClass: book.Class(),
		GameDetails:     details,
		IsTopPick:       rec.IsTopPick,
		OutcomeStatus:   status,
		OutcomeClass:    class,
		Confidence:      fmt.Sprintf("%.1f%%", rec.Confidence*100),
		ExpectedValue:   fmt.Sprintf("%.3f", rec.ExpectedValue),
		Kelly:           fmt.Sprintf("%.1f%%", rec.KellyPercentage*100),
		Wager:           Currency(rec.RecommendedWager),
		WagerAmount:     rec.RecommendedWager,
		ToWin:           toWin,
		Reasoning:       reasoning,
	}
}

// Cards builds display views for a week of recommendations, preserving order
func Cards(recs []models.Recommendation) []models.RecommendationCard {
	cards := make([]models.RecommendationCard, 0, len(recs))
	for _, rec := range recs {
		cards = append(cards, Card(rec))
	}
	return cards
}

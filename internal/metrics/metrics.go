package metrics

// Sign classifies a value for display coloring
type Sign string

const (
	Positive Sign = "positive"
	Negative Sign = "negative"
	Neutral  Sign = "neutral"
)

// ROI returns profit/loss as a percentage of the amount wagered.
// A zero wager yields 0; callers that need to suppress the display of an
// undefined ROI must check the wager themselves.
func ROI(profitLoss, wager float64) float64 {
	if wager == 0 {
		return 0
	}
	return (profitLoss / wager) * 100
}

// WinRate returns wins/totalDecided as a fraction in [0,1], or 0 when
// nothing has been decided. The caller chooses the denominator.
func WinRate(wins, totalDecided int) float64 {
	if totalDecided == 0 {
		return 0
	}
	return float64(wins) / float64(totalDecided)
}

// ClassifySign maps a value to its display sign
func ClassifySign(value float64) Sign {
	switch {
	case value > 0:
		return Positive
	case value < 0:
		return Negative
	default:
		return Neutral
	}
}

// WLRecordSign compares wins against losses, independent of profit/loss
func WLRecordSign(wins, losses int) Sign {
	switch {
	case wins > losses:
		return Positive
	case wins < losses:
		return Negative
	default:
		return Neutral
	}
}

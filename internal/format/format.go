package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency formats a dollar amount rounded to whole dollars: $1,235 / -$50
func Currency(amount float64) string {
	rounded := int64(math.Round(amount))
	if rounded < 0 {
		return printer.Sprintf("-$%d", -rounded)
	}
	return printer.Sprintf("$%d", rounded)
}

// Percentage formats a fraction as a whole percentage: 0.554 → 55%
func Percentage(fraction float64) string {
	return fmt.Sprintf("%d%%", int64(math.Round(fraction*100)))
}

// PercentValue formats a value that is already a percentage: -20 → -20.0%
func PercentValue(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// Record formats a win rate with its W-L record: 55% (11-9)
func Record(winRate float64, wins, losses int) string {
	return fmt.Sprintf("%s (%d-%d)", Percentage(winRate), wins, losses)
}

// AmericanOdds formats odds with an explicit sign. Zero means no price.
func AmericanOdds(american int) string {
	if american == 0 {
		return ""
	}
	if american > 0 {
		return fmt.Sprintf("+%d", american)
	}
	return fmt.Sprintf("%d", american)
}

// ToWin returns the profit a winning wager pays at American odds.
// +150 pays 1.5x the stake, -120 pays stake/1.2. Zero odds pay nothing.
func ToWin(wager float64, american int) float64 {
	switch {
	case american > 0:
		return wager * float64(american) / 100
	case american < 0:
		return wager * 100 / float64(-american)
	}
	return 0
}

// GameTime formats an upstream timestamp as "Sep 07, 01:00 PM". Values that
// cannot be parsed are returned unchanged.
func GameTime(value string) string {
	t, ok := parseTime(value)
	if !ok {
		return value
	}
	return t.Format("Jan 02, 03:04 PM")
}

// WeekDates formats the date range of a week: "Sep 04-08, 2025" within a
// month, "Aug 28-Sep 03, 2025" across months, "Week N" if either date is bad
func WeekDates(week int, start, end string) string {
	fallback := fmt.Sprintf("Week %d", week)
	if start == "" || end == "" {
		return fallback
	}

	startDate, ok := parseTime(stripZone(start))
	if !ok {
		return fallback
	}
	endDate, ok := parseTime(stripZone(end))
	if !ok {
		return fallback
	}

	if startDate.Month() == endDate.Month() {
		return fmt.Sprintf("%s-%s, %d", startDate.Format("Jan 02"), endDate.Format("02"), startDate.Year())
	}
	return fmt.Sprintf("%s-%s, %d", startDate.Format("Jan 02"), endDate.Format("Jan 02"), startDate.Year())
}

// stripZone drops a trailing zone designator so week boundaries are read as
// wall-clock dates
func stripZone(value string) string {
	value = strings.SplitN(value, "Z", 2)[0]
	return strings.SplitN(value, "+", 2)[0]
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package models

// RecommendationCard is the display-ready form of a recommendation
type RecommendationCard struct {
	ID              int64   `json:"id"`
	BetDisplay      string  `json:"bet_display"`
	Sportsbook      string  `json:"sportsbook"`
	SportsbookClass string  `json:"sportsbook_class"`
	GameDetails     string  `json:"game_details"`
	IsTopPick       bool    `json:"is_top_pick"`
	OutcomeStatus   string  `json:"outcome_status"`
	OutcomeClass    string  `json:"outcome_class"`
	Confidence      string  `json:"confidence"`
	ExpectedValue   string  `json:"expected_value"`
	Kelly           string  `json:"kelly"`
	Wager           string  `json:"wager"`
	WagerAmount     float64 `json:"wager_amount"`
	ToWin           string  `json:"to_win,omitempty"`
	Reasoning       string  `json:"reasoning"`
}

// WeeklyView is the weekly section of the dashboard
type WeeklyView struct {
	Week            int                  `json:"week"`
	TotalWeeks      int                  `json:"total_weeks"`
	WeekDates       string               `json:"week_dates"`
	Recommendations []RecommendationCard `json:"recommendations"`
	Summary         *PerformanceSummary  `json:"summary"`
	Error           string               `json:"error,omitempty"`
}

// AllTimeView is the all-time section of the dashboard
type AllTimeView struct {
	Summary  *PerformanceSummary `json:"summary"`
	Bankroll *Bankroll           `json:"bankroll"`
	Record   string              `json:"record,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// DashboardView combines both sections. Each section carries its own error so
// one failing fetch never blanks the other.
type DashboardView struct {
	Weekly  WeeklyView  `json:"weekly"`
	AllTime AllTimeView `json:"all_time"`
}

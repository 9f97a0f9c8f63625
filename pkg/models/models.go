package models

// BetType identifies the market a recommendation was made on
type BetType int

const (
	BetTypeMoneyline BetType = 0
	BetTypeSpread    BetType = 1
	BetTypeTotal     BetType = 2
)

// BetSide identifies which side of the market was recommended
type BetSide int

const (
	SideHome  BetSide = 0
	SideAway  BetSide = 1
	SideOver  BetSide = 2
	SideUnder BetSide = 3
)

// Recommendation is a single bet record as served by the Prophet API.
// Field names follow the upstream camelCase wire format.
type Recommendation struct {
	ID               int64    `json:"id"`
	GameInfo         string   `json:"gameInfo"` // "Away @ Home"
	GameTime         string   `json:"gameTime"`
	BetType          BetType  `json:"betType"`
	Side             BetSide  `json:"side"`
	Line             *float64 `json:"line"`
	OddsAtTimeOfBet  *int     `json:"oddsAtTimeOfBet"`
	Sportsbook       string   `json:"sportsbook"`
	Confidence       float64  `json:"confidence"`
	ExpectedValue    float64  `json:"expectedValue"`
	KellyPercentage  float64  `json:"kellyPercentage"`
	Reasoning        string   `json:"reasoning"`
	RecommendedWager float64  `json:"recommendedWager"`
	ProfitLoss       *float64 `json:"profitLoss"`
	WasCorrect       *bool    `json:"wasCorrect"` // nil while pending
	IsTopPick        bool     `json:"isTopPick"`
}

// Completed reports whether the outcome of the bet is known
func (r Recommendation) Completed() bool {
	return r.WasCorrect != nil
}

// RecommendationsResponse is the envelope of GET /api/recommendations/week/{week}
type RecommendationsResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// WeekInfo describes an NFL week as served by the Prophet API
type WeekInfo struct {
	CurrentWeek   int    `json:"currentWeek,omitempty"`
	TotalWeeks    int    `json:"totalWeeks,omitempty"`
	WeekNumber    int    `json:"weekNumber,omitempty"`
	WeekStartDate string `json:"weekStartDate,omitempty"`
	WeekEndDate   string `json:"weekEndDate,omitempty"`
}

// PerformanceSnapshot holds the server-side all-time totals of
// GET /api/analytics/performance
type PerformanceSnapshot struct {
	TotalBets          int     `json:"totalBets"`
	TotalWager         float64 `json:"totalWager"`
	TotalProfitLoss    float64 `json:"totalProfitLoss"`
	WinRate            float64 `json:"winRate"`
	TopPicksCount      int     `json:"topPicksCount"`
	TopPicksWager      float64 `json:"topPicksWager"`
	TopPicksProfitLoss float64 `json:"topPicksProfitLoss"`
	TopPicksWinRate    float64 `json:"topPicksWinRate"`
	RealizedPL         float64 `json:"realizedPl"`
	ROI                float64 `json:"roi"`
}

// CohortSummary is the derived summary of one cohort of bets
type CohortSummary struct {
	Count           int     `json:"count"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	Pending         int     `json:"pending"`
	TotalWagered    float64 `json:"total_wagered"`
	CompletedWager  float64 `json:"completed_wager"`
	PendingWager    float64 `json:"pending_wager"`
	TotalProfitLoss float64 `json:"total_profit_loss"`
	ROI             float64 `json:"roi_pct"`
	WinRate         float64 `json:"win_rate"`
}

// PerformanceSummary partitions bets into top picks and other bets.
// Overall is always the exact sum of the two cohorts.
type PerformanceSummary struct {
	Overall   CohortSummary `json:"overall"`
	TopPicks  CohortSummary `json:"top_picks"`
	OtherBets CohortSummary `json:"other_bets"`
}

// Bankroll is the header view of the all-time performance against a starting bankroll
type Bankroll struct {
	Starting  float64 `json:"starting"`
	Remaining float64 `json:"remaining"`
	ROI       float64 `json:"roi_pct"`
	Sign      string  `json:"sign"`
}

// DashboardSummary is the output of the aggregation core for one page load.
// AllTime and Bankroll are nil when the performance snapshot is unavailable.
type DashboardSummary struct {
	Weekly   PerformanceSummary  `json:"weekly"`
	AllTime  *PerformanceSummary `json:"all_time"`
	Bankroll *Bankroll           `json:"bankroll"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

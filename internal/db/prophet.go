package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
	_ "github.com/lib/pq"
)

// Schema is the subset of the Prophet database read by the dashboard
const Schema = `
CREATE TABLE IF NOT EXISTS nfl_weeks (
	week_number     INTEGER PRIMARY KEY,
	week_start_date TIMESTAMPTZ NOT NULL,
	week_end_date   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS recommendations (
	id                  BIGSERIAL PRIMARY KEY,
	week_number         INTEGER NOT NULL REFERENCES nfl_weeks(week_number),
	game_info           TEXT NOT NULL DEFAULT '',
	game_time           TIMESTAMPTZ,
	bet_type            SMALLINT NOT NULL,
	side                SMALLINT NOT NULL,
	line                DOUBLE PRECISION,
	odds_at_time_of_bet INTEGER,
	sportsbook          TEXT NOT NULL DEFAULT '',
	confidence          DOUBLE PRECISION NOT NULL DEFAULT 0,
	expected_value      DOUBLE PRECISION NOT NULL DEFAULT 0,
	kelly_percentage    DOUBLE PRECISION NOT NULL DEFAULT 0,
	reasoning           TEXT NOT NULL DEFAULT '',
	recommended_wager   DOUBLE PRECISION NOT NULL DEFAULT 0,
	profit_loss         DOUBLE PRECISION,
	was_correct         BOOLEAN,
	is_top_pick         BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_recommendations_week ON recommendations(week_number);
`

// ProphetPostgres reads recommendations and performance totals from the
// Prophet PostgreSQL database
type ProphetPostgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewProphetPostgres creates a new Prophet database client
func NewProphetPostgres(dsn string) (*ProphetPostgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &ProphetPostgres{db: db, now: time.Now}, nil
}

// Ping checks database connectivity
func (p *ProphetPostgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// CheckHealth satisfies the dashboard source health check
func (p *ProphetPostgres) CheckHealth(ctx context.Context) error {
	return p.Ping(ctx)
}

// Migrate creates the tables read by the dashboard if they do not exist
func (p *ProphetPostgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// CurrentWeek returns the week containing now, or the latest week that has
// started. Returns nil, nil if no week has been loaded yet.
func (p *ProphetPostgres) CurrentWeek(ctx context.Context) (*models.WeekInfo, error) {
	query := `
		SELECT
			COALESCE((
				SELECT week_number FROM nfl_weeks
				WHERE week_start_date <= $1
				ORDER BY week_start_date DESC
				LIMIT 1
			), MIN(week_number), 0) as current_week,
			COUNT(*) as total_weeks
		FROM nfl_weeks
	`

	var info models.WeekInfo
	err := p.db.QueryRowContext(ctx, query, p.now().UTC()).Scan(&info.CurrentWeek, &info.TotalWeeks)
	if err != nil {
		return nil, fmt.Errorf("query current week: %w", err)
	}

	if info.TotalWeeks == 0 {
		return nil, nil
	}
	return &info, nil
}

// Week returns the date range of a week. Returns nil, nil if not found.
func (p *ProphetPostgres) Week(ctx context.Context, week int) (*models.WeekInfo, error) {
	query := `
		SELECT week_number, week_start_date, week_end_date
		FROM nfl_weeks
		WHERE week_number = $1
	`

	var (
		info       models.WeekInfo
		start, end time.Time
	)
	err := p.db.QueryRowContext(ctx, query, week).Scan(&info.WeekNumber, &start, &end)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query week: %w", err)
	}

	info.WeekStartDate = start.UTC().Format(time.RFC3339)
	info.WeekEndDate = end.UTC().Format(time.RFC3339)
	return &info, nil
}

// Recommendations returns every recommendation of a week, top picks first
func (p *ProphetPostgres) Recommendations(ctx context.Context, week int) ([]models.Recommendation, error) {
	query := `
		SELECT
			id, game_info, game_time, bet_type, side, line, odds_at_time_of_bet,
			sportsbook, confidence, expected_value, kelly_percentage, reasoning,
			recommended_wager, profit_loss, was_correct, is_top_pick
		FROM recommendations
		WHERE week_number = $1
		ORDER BY is_top_pick DESC, confidence DESC, id
	`

	rows, err := p.db.QueryContext(ctx, query, week)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	recs := []models.Recommendation{}
	for rows.Next() {
		var (
			rec        models.Recommendation
			gameTime   sql.NullTime
			line       sql.NullFloat64
			odds       sql.NullInt64
			profitLoss sql.NullFloat64
			wasCorrect sql.NullBool
		)

		err := rows.Scan(
			&rec.ID, &rec.GameInfo, &gameTime, &rec.BetType, &rec.Side, &line, &odds,
			&rec.Sportsbook, &rec.Confidence, &rec.ExpectedValue, &rec.KellyPercentage, &rec.Reasoning,
			&rec.RecommendedWager, &profitLoss, &wasCorrect, &rec.IsTopPick,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}

		if gameTime.Valid {
			rec.GameTime = gameTime.Time.UTC().Format(time.RFC3339)
		}
		if line.Valid {
			rec.Line = &line.Float64
		}
		if odds.Valid {
			v := int(odds.Int64)
			rec.OddsAtTimeOfBet = &v
		}
		if profitLoss.Valid {
			rec.ProfitLoss = &profitLoss.Float64
		}
		if wasCorrect.Valid {
			rec.WasCorrect = &wasCorrect.Bool
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}

	return recs, nil
}

// Performance aggregates the all-time snapshot over settled recommendations
func (p *ProphetPostgres) Performance(ctx context.Context) (*models.PerformanceSnapshot, error) {
	query := `
		SELECT
			COUNT(*) as total_bets,
			COALESCE(SUM(recommended_wager), 0) as total_wager,
			COALESCE(SUM(COALESCE(profit_loss, 0)), 0) as total_profit_loss,
			COALESCE(
				SUM(CASE WHEN was_correct THEN 1 ELSE 0 END)::float / NULLIF(COUNT(*), 0),
				0
			) as win_rate,
			COALESCE(SUM(CASE WHEN is_top_pick THEN 1 ELSE 0 END), 0) as top_picks_count,
			COALESCE(SUM(CASE WHEN is_top_pick THEN recommended_wager ELSE 0 END), 0) as top_picks_wager,
			COALESCE(SUM(CASE WHEN is_top_pick THEN COALESCE(profit_loss, 0) ELSE 0 END), 0) as top_picks_profit_loss,
			COALESCE(
				SUM(CASE WHEN is_top_pick AND was_correct THEN 1 ELSE 0 END)::float /
				NULLIF(SUM(CASE WHEN is_top_pick THEN 1 ELSE 0 END), 0),
				0
			) as top_picks_win_rate
		FROM recommendations
		WHERE was_correct IS NOT NULL
	`

	snapshot := &models.PerformanceSnapshot{}
	err := p.db.QueryRowContext(ctx, query).Scan(
		&snapshot.TotalBets,
		&snapshot.TotalWager,
		&snapshot.TotalProfitLoss,
		&snapshot.WinRate,
		&snapshot.TopPicksCount,
		&snapshot.TopPicksWager,
		&snapshot.TopPicksProfitLoss,
		&snapshot.TopPicksWinRate,
	)
	if err != nil {
		return nil, fmt.Errorf("query performance: %w", err)
	}

	// Calculate derived metrics
	snapshot.RealizedPL = snapshot.TotalProfitLoss
	if snapshot.TotalWager > 0 {
		snapshot.ROI = (snapshot.TotalProfitLoss / snapshot.TotalWager) * 100
	}

	return snapshot, nil
}

// Close closes the database connection
func (p *ProphetPostgres) Close() error {
	return p.db.Close()
}

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/aggregator"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/format"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
	"golang.org/x/sync/errgroup"
)

// ErrWeekUnavailable is returned when the source cannot tell which week is current
var ErrWeekUnavailable = errors.New("current week unavailable")

// Source is where recommendations and performance totals come from: the
// Prophet API client or the Prophet database
type Source interface {
	CurrentWeek(ctx context.Context) (*models.WeekInfo, error)
	Week(ctx context.Context, week int) (*models.WeekInfo, error)
	Recommendations(ctx context.Context, week int) ([]models.Recommendation, error)
	Performance(ctx context.Context) (*models.PerformanceSnapshot, error)
	CheckHealth(ctx context.Context) error
}

// Service builds dashboard views. It holds no per-request state.
type Service struct {
	source           Source
	startingBankroll float64
}

// NewService creates a new dashboard service
func NewService(source Source, startingBankroll float64) *Service {
	return &Service{
		source:           source,
		startingBankroll: startingBankroll,
	}
}

// CheckHealth reports whether the source is reachable
func (s *Service) CheckHealth(ctx context.Context) error {
	return s.source.CheckHealth(ctx)
}

// CurrentWeek returns the current week and season length
func (s *Service) CurrentWeek(ctx context.Context) (*models.WeekInfo, error) {
	info, err := s.source.CurrentWeek(ctx)
	if err != nil {
		return nil, err
	}
	if info == nil || info.CurrentWeek < 1 {
		return nil, ErrWeekUnavailable
	}
	if info.TotalWeeks < info.CurrentWeek {
		info.TotalWeeks = info.CurrentWeek
	}
	return info, nil
}

// Weekly builds the weekly section for one week
func (s *Service) Weekly(ctx context.Context, week, totalWeeks int) (*models.WeeklyView, error) {
	var (
		info *models.WeekInfo
		recs []models.Recommendation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recs, err = s.source.Recommendations(gctx, week)
		return err
	})
	g.Go(func() error {
		// Dates are cosmetic, a failure falls back to "Week N"
		var err error
		info, err = s.source.Week(gctx, week)
		if err != nil {
			log.Printf("[Dashboard] Week %d dates unavailable: %v", week, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildWeekly(week, totalWeeks, info, recs), nil
}

// AllTime builds the all-time section from the performance snapshot
func (s *Service) AllTime(ctx context.Context) (*models.AllTimeView, error) {
	snapshot, err := s.source.Performance(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, fmt.Errorf("performance snapshot unavailable")
	}
	return s.buildAllTime(snapshot), nil
}

// Dashboard builds both sections concurrently. Each section degrades on its
// own: a failed fetch sets that section's Error and leaves the other intact.
func (s *Service) Dashboard(ctx context.Context, week, totalWeeks int) *models.DashboardView {
	view := &models.DashboardView{}

	var (
		weekly  *models.WeeklyView
		allTime *models.AllTimeView
		wErr    error
		aErr    error
	)

	// Neither goroutine returns an error so one failure never cancels the other
	var g errgroup.Group
	g.Go(func() error {
		weekly, wErr = s.Weekly(ctx, week, totalWeeks)
		return nil
	})
	g.Go(func() error {
		allTime, aErr = s.AllTime(ctx)
		return nil
	})
	g.Wait()

	if wErr != nil {
		log.Printf("[Dashboard] Failed to load week %d: %v", week, wErr)
		view.Weekly = models.WeeklyView{
			Week:            week,
			TotalWeeks:      totalWeeks,
			WeekDates:       format.WeekDates(week, "", ""),
			Recommendations: []models.RecommendationCard{},
			Error:           fmt.Sprintf("Failed to load recommendations: %v", wErr),
		}
	} else {
		view.Weekly = *weekly
	}

	if aErr != nil {
		log.Printf("[Dashboard] Failed to load performance: %v", aErr)
		view.AllTime = models.AllTimeView{
			Error: fmt.Sprintf("Failed to load performance: %v", aErr),
		}
	} else {
		view.AllTime = *allTime
	}

	return view
}

// Static builds the view of every week from 1 to totalWeeks plus the
// all-time section, for the static page. Weeks that fail carry their error.
func (s *Service) Static(ctx context.Context, totalWeeks int) ([]models.WeeklyView, *models.AllTimeView, error) {
	weeks := make([]models.WeeklyView, totalWeeks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range weeks {
		week := i + 1
		g.Go(func() error {
			view, err := s.Weekly(gctx, week, totalWeeks)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				weeks[week-1] = models.WeeklyView{
					Week:            week,
					TotalWeeks:      totalWeeks,
					WeekDates:       format.WeekDates(week, "", ""),
					Recommendations: []models.RecommendationCard{},
					Error:           err.Error(),
				}
				return nil
			}
			weeks[week-1] = *view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	allTime, err := s.AllTime(ctx)
	if err != nil {
		allTime = &models.AllTimeView{Error: err.Error()}
	}

	return weeks, allTime, nil
}

// Neighbours returns the recommendation counts of the weeks either side of
// week. Weeks outside [1, totalWeeks] or that fail to load are left out.
func (s *Service) Neighbours(ctx context.Context, week, totalWeeks int) map[int]int {
	weeks := []int{}
	for _, w := range []int{week - 1, week + 1} {
		if w >= 1 && w <= totalWeeks {
			weeks = append(weeks, w)
		}
	}

	results := make([]int, len(weeks))
	var g errgroup.Group
	for i, w := range weeks {
		g.Go(func() error {
			recs, err := s.source.Recommendations(ctx, w)
			if err != nil {
				results[i] = -1
				return nil
			}
			results[i] = len(recs)
			return nil
		})
	}
	g.Wait()

	counts := make(map[int]int)
	for i, w := range weeks {
		if results[i] >= 0 {
			counts[w] = results[i]
		}
	}
	return counts
}

func buildWeekly(week, totalWeeks int, info *models.WeekInfo, recs []models.Recommendation) *models.WeeklyView {
	var start, end string
	if info != nil {
		start, end = info.WeekStartDate, info.WeekEndDate
	}

	summary := aggregator.Weekly(recs)

	return &models.WeeklyView{
		Week:            week,
		TotalWeeks:      totalWeeks,
		WeekDates:       format.WeekDates(week, start, end),
		Recommendations: format.Cards(recs),
		Summary:         &summary,
	}
}

func (s *Service) buildAllTime(snapshot *models.PerformanceSnapshot) *models.AllTimeView {
	result := aggregator.ComputePerformanceSummary(nil, snapshot, s.startingBankroll)
	overall := result.AllTime.Overall

	return &models.AllTimeView{
		Summary:  result.AllTime,
		Bankroll: result.Bankroll,
		Record:   format.Record(overall.WinRate, overall.Wins, overall.Losses),
	}
}

package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/format"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/metrics"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// DashboardPage is the data of the server-rendered dashboard
type DashboardPage struct {
	View    *models.DashboardView
	HasPrev bool
	HasNext bool
}

// StaticPage is the data of the self-contained page that embeds every week
type StaticPage struct {
	CurrentWeek int
	TotalWeeks  int
	Weeks       []models.WeeklyView
	AllTime     *models.AllTimeView
}

// Renderer executes the dashboard templates
type Renderer struct {
	templates *template.Template
}

// New parses the embedded templates
func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Dashboard writes the dashboard page for one week
func (r *Renderer) Dashboard(w io.Writer, page DashboardPage) error {
	return r.templates.ExecuteTemplate(w, "dashboard.html", page)
}

// Static writes the static page. The first week shown is CurrentWeek; the
// embedded data lets the page navigate without a server.
func (r *Renderer) Static(w io.Writer, page StaticPage) error {
	data, err := json.Marshal(struct {
		CurrentWeek int                 `json:"current_week"`
		TotalWeeks  int                 `json:"total_weeks"`
		Weeks       []models.WeeklyView `json:"weeks"`
		AllTime     *models.AllTimeView `json:"all_time"`
	}{page.CurrentWeek, page.TotalWeeks, page.Weeks, page.AllTime})
	if err != nil {
		return fmt.Errorf("encode static data: %w", err)
	}

	var current *models.WeeklyView
	for i := range page.Weeks {
		if page.Weeks[i].Week == page.CurrentWeek {
			current = &page.Weeks[i]
		}
	}
	if current == nil {
		current = &models.WeeklyView{Week: page.CurrentWeek, TotalWeeks: page.TotalWeeks}
	}

	view := &models.DashboardView{Weekly: *current}
	if page.AllTime != nil {
		view.AllTime = *page.AllTime
	}

	return r.templates.ExecuteTemplate(w, "static.html", struct {
		DashboardPage
		CurrentWeek int
		Weeks       []models.WeeklyView
		Data        template.JS
	}{
		DashboardPage: DashboardPage{View: view},
		CurrentWeek:   page.CurrentWeek,
		Weeks:         page.Weeks,
		// json.Marshal escapes <, > and & so the payload cannot close the script tag
		Data: template.JS(data),
	})
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"currency":   format.Currency,
		"percentage": format.Percentage,
		"pct":        format.PercentValue,
		"sign": func(v float64) string {
			return string(metrics.ClassifySign(v))
		},
		"recordSign": func(c models.CohortSummary) string {
			return string(metrics.WLRecordSign(c.Wins, c.Losses))
		},
		// realized renders "$P&L (win rate%)"; the rate covers resolved bets only
		"realized": func(c models.CohortSummary) string {
			return fmt.Sprintf("%s (%s)", format.Currency(c.TotalProfitLoss), format.Percentage(c.WinRate))
		},
		"prevWeek": func(week int) int { return week - 1 },
		"nextWeek": func(week int) int { return week + 1 },
	}
}

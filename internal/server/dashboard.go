package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gkobilansky/ab-goat/internal/dashboard"
	"github.com/gkobilansky/ab-goat/internal/report"
	"github.com/gkobilansky/ab-goat/internal/stats"
	"github.com/gkobilansky/ab-goat/internal/store"
)

const (
	chartWidth  = 720
	chartHeight = 380
	runsPerPage = 100
)

// Dashboard template data structures
type layoutData struct {
	Title   string
	CSS     template.CSS
	Content template.HTML
}

type queryData struct {
	Heading   string
	Warehouse string
	Query     string
	Columns   []string
	Selection stats.Selection
	Warning   string
	Error     string
	Result    *resultData
}

type resultData struct {
	RunID         string
	Rows          int
	SampleColumns []string
	SampleRows    [][]string

	Bars              *report.BarChart
	LiftLine          string
	ConversionMessage string

	Chi        *chiData
	ChiMessage string

	Posterior          *report.LineChart
	PosteriorMessage   string
	ProbTreatmentBeats string
}

type chiData struct {
	Statistic        string
	PValue           string
	DegreesOfFreedom int
	Interpretation   string
	Significant      bool
}

type runsData struct {
	Runs []runListItem
}

type runListItem struct {
	ID         string
	ShortID    string
	CreatedAt  string
	Assignment string
	Rows       int
	Lift       string
	PValue     string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// Handle logout
	if r.URL.Query().Get("logout") == "1" {
		http.SetCookie(w, &http.Cookie{
			Name:   tokenCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	s.renderDashboard(w, "Query", "query.html", s.newQueryData())
}

func (s *Server) handleDashboardQuery(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	data := s.newQueryData()
	data.Query = r.PostForm.Get("query")
	data.Selection = stats.Selection{
		Event1:     r.PostForm.Get("event1"),
		Event2:     r.PostForm.Get("event2"),
		Assignment: r.PostForm.Get("assignment"),
	}

	if strings.TrimSpace(data.Query) == "" {
		data.Warning = "Please enter a query."
		s.renderDashboard(w, "Query", "query.html", data)
		return
	}

	rep, err := report.Query(r.Context(), s.runner, data.Query, data.Selection, s.arms)
	if err != nil {
		s.logger.Error("query failed", "error", err)
		data.Error = fmt.Sprintf("An error occurred: %v", err)
		s.renderDashboard(w, "Query", "query.html", data)
		return
	}

	run := rep.Run(data.Query)
	if err := s.store.CreateRun(r.Context(), run); err != nil {
		s.logger.Warn("failed to save run", "error", err)
		run.ID = ""
	}

	data.Columns = rep.Sample.Columns()
	data.Result = s.newResultData(rep, run.ID)
	s.renderDashboard(w, "Query", "query.html", data)
}

func (s *Server) handleDashboardRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), runsPerPage)
	if err != nil {
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	}

	items := make([]runListItem, len(runs))
	for i, run := range runs {
		items[i] = runListItem{
			ID:         run.ID,
			ShortID:    shortID(run.ID),
			CreatedAt:  run.CreatedAt.Format("Jan 2, 2006 15:04"),
			Assignment: run.Assignment,
			Rows:       run.Rows,
			Lift:       formatOptional(run.Lift, report.FormatPercent),
			PValue:     formatOptional(run.PValue, func(p float64) string { return fmt.Sprintf("%.4f", p) }),
		}
	}

	s.renderDashboard(w, "Runs", "runs.html", runsData{Runs: items})
}

// handleDashboardRun re-renders a saved run. The query goes back through
// the runner, so a fresh cache entry is reused.
func (s *Server) handleDashboardRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}

	data := s.newQueryData()
	data.Query = run.Query
	data.Selection = report.Selection(run)

	rep, err := report.Query(r.Context(), s.runner, run.Query, data.Selection, s.arms)
	if err != nil {
		s.logger.Error("re-running saved query failed", "run", run.ID, "error", err)
		data.Error = fmt.Sprintf("An error occurred: %v", err)
		s.renderDashboard(w, "Run "+shortID(run.ID), "query.html", data)
		return
	}

	data.Columns = rep.Sample.Columns()
	data.Result = s.newResultData(rep, run.ID)
	s.renderDashboard(w, "Run "+shortID(run.ID), "query.html", data)
}

func (s *Server) newQueryData() queryData {
	return queryData{
		Heading:   "A/B Test Analysis Dashboard",
		Warehouse: "BigQuery",
	}
}

func (s *Server) newResultData(rep *report.Report, runID string) *resultData {
	res := &resultData{
		RunID:             runID,
		Rows:              rep.Rows,
		SampleColumns:     rep.Sample.Columns(),
		Bars:              report.Bars(rep),
		LiftLine:          rep.LiftLine(),
		ConversionMessage: rep.Message(stats.ComponentConversion),
		ChiMessage:        rep.Message(stats.ComponentChiSquared),
		Posterior:         report.PosteriorChart(rep, chartWidth, chartHeight),
		PosteriorMessage:  rep.Message(stats.ComponentPosterior),
	}

	for i := 0; i < rep.Sample.Len(); i++ {
		row := make([]string, len(res.SampleColumns))
		for j, c := range res.SampleColumns {
			row[j] = report.Cell(rep.Sample.Value(i, c))
		}
		res.SampleRows = append(res.SampleRows, row)
	}

	if c := rep.ChiSquared; c != nil {
		res.Chi = &chiData{
			Statistic:        fmt.Sprintf("%.4f", c.Statistic),
			PValue:           fmt.Sprintf("%.4f", c.PValue),
			DegreesOfFreedom: c.DegreesOfFreedom,
			Interpretation:   c.Interpretation(),
			Significant:      c.Significant(),
		}
	}

	if p := rep.Posterior; p != nil {
		res.ProbTreatmentBeats = fmt.Sprintf("Probability %s beats %s: %.1f%%",
			s.arms.Treatment, s.arms.Control, p.ProbTreatmentBeats*100)
	}

	return res
}

func (s *Server) renderDashboard(w http.ResponseWriter, title, contentTemplate string, data any) {
	// Load CSS
	cssBytes, err := dashboard.Assets.ReadFile("assets/style.css")
	if err != nil {
		http.Error(w, "Failed to load styles", http.StatusInternalServerError)
		return
	}

	// Load and execute content template
	contentTmpl, err := template.ParseFS(dashboard.Templates, "templates/"+contentTemplate)
	if err != nil {
		http.Error(w, "Failed to parse template", http.StatusInternalServerError)
		return
	}

	var contentBuf bytes.Buffer
	if err := contentTmpl.Execute(&contentBuf, data); err != nil {
		s.logger.Error("failed to render template", "template", contentTemplate, "error", err)
		http.Error(w, fmt.Sprintf("Failed to render template: %v", err), http.StatusInternalServerError)
		return
	}

	// Load and execute layout template
	layoutTmpl, err := template.ParseFS(dashboard.Templates, "templates/layout.html")
	if err != nil {
		http.Error(w, "Failed to parse layout", http.StatusInternalServerError)
		return
	}

	layout := layoutData{
		Title:   title,
		CSS:     template.CSS(cssBytes),
		Content: template.HTML(contentBuf.String()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := layoutTmpl.Execute(w, layout); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatOptional(v *float64, format func(float64) string) string {
	if v == nil {
		return "-"
	}
	return format(*v)
}

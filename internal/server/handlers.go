package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gkobilansky/ab-goat/internal/report"
	"github.com/gkobilansky/ab-goat/internal/stats"
	"github.com/gkobilansky/ab-goat/internal/warehouse"
)

type HealthResponse struct {
	Status        string `json:"status"`
	RunsCount     int    `json:"runs_count"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountRuns(r.Context())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Get database size
	var dbSize int64
	row := s.store.DB().QueryRowContext(r.Context(), "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	if err := row.Scan(&dbSize); err != nil {
		// Fall back to the file size
		if info, statErr := os.Stat(s.store.Path()); statErr == nil {
			dbSize = info.Size()
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		RunsCount:     count,
		DBSizeBytes:   dbSize,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Query      string `json:"query"`
	Event1     string `json:"event1"`
	Event2     string `json:"event2"`
	Assignment string `json:"assignment"`
}

// AnalyzeResponse reports each component, or the reason it is absent.
type AnalyzeResponse struct {
	RunID      string                `json:"run_id,omitempty"`
	Rows       int                   `json:"rows"`
	Columns    []string              `json:"columns"`
	Conversion *apiConversion        `json:"conversion"`
	Lift       *float64              `json:"lift"`
	ChiSquared *apiChiSquared        `json:"chi_squared"`
	Posterior  *apiPosterior         `json:"posterior"`
	Absent     map[string]apiAbsence `json:"absent,omitempty"`
}

type apiConversion struct {
	Records []apiConversionRecord `json:"records"`
}

type apiConversionRecord struct {
	Group     string  `json:"group"`
	Count     int     `json:"count"`
	Successes int     `json:"successes"`
	Rate      float64 `json:"rate"`
	CILower   float64 `json:"ci_lower"`
	CIUpper   float64 `json:"ci_upper"`
}

type apiChiSquared struct {
	Statistic        float64 `json:"statistic"`
	PValue           float64 `json:"p_value"`
	DegreesOfFreedom int     `json:"degrees_of_freedom"`
	Corrected        bool    `json:"corrected"`
	Significant      bool    `json:"significant"`
	Interpretation   string  `json:"interpretation"`
}

type apiPosterior struct {
	ProbTreatmentBeats float64    `json:"prob_treatment_beats"`
	Curves             []apiCurve `json:"curves"`
}

type apiCurve struct {
	Arm   string  `json:"arm"`
	Label string  `json:"label"`
	A     float64 `json:"a"`
	B     float64 `json:"b"`
	Mean  float64 `json:"mean"`
}

type apiAbsence struct {
	Reason  stats.Reason `json:"reason"`
	Detail  string       `json:"detail"`
	Message string       `json:"message"`
}

func (s *Server) handleAnalyzeAPI(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Please enter a query.")
		return
	}

	sel := stats.Selection{Event1: req.Event1, Event2: req.Event2, Assignment: req.Assignment}
	rep, err := report.Query(r.Context(), s.runner, req.Query, sel, s.arms)
	if errors.Is(err, warehouse.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("api query failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	run := rep.Run(req.Query)
	if err := s.store.CreateRun(r.Context(), run); err != nil {
		s.logger.Warn("failed to save run", "error", err)
		run.ID = ""
	}

	writeJSON(w, http.StatusOK, newAnalyzeResponse(rep, run.ID))
}

func newAnalyzeResponse(rep *report.Report, runID string) AnalyzeResponse {
	resp := AnalyzeResponse{
		RunID:   runID,
		Rows:    rep.Rows,
		Columns: rep.Sample.Columns(),
	}
	if resp.Columns == nil {
		resp.Columns = []string{}
	}

	if c := rep.Conversion; c != nil {
		resp.Conversion = &apiConversion{Records: make([]apiConversionRecord, len(c.Records))}
		for i, rec := range c.Records {
			resp.Conversion.Records[i] = apiConversionRecord(rec)
		}
	}
	if lift, ok := rep.Lift(); ok {
		resp.Lift = &lift
	}
	if c := rep.ChiSquared; c != nil {
		resp.ChiSquared = &apiChiSquared{
			Statistic:        c.Statistic,
			PValue:           c.PValue,
			DegreesOfFreedom: c.DegreesOfFreedom,
			Corrected:        c.Corrected,
			Significant:      c.Significant(),
			Interpretation:   c.Interpretation(),
		}
	}
	if p := rep.Posterior; p != nil {
		resp.Posterior = &apiPosterior{ProbTreatmentBeats: p.ProbTreatmentBeats}
		for _, c := range p.Curves {
			resp.Posterior.Curves = append(resp.Posterior.Curves, apiCurve{
				Arm:   c.Arm,
				Label: c.Label(),
				A:     c.A,
				B:     c.B,
				Mean:  c.Mean(),
			})
		}
	}

	for _, c := range report.Components() {
		reason := rep.Reason(c)
		if reason == stats.ReasonNone {
			continue
		}
		if resp.Absent == nil {
			resp.Absent = make(map[string]apiAbsence)
		}
		resp.Absent[string(c)] = apiAbsence{
			Reason:  reason,
			Detail:  reason.Detail(),
			Message: rep.Message(c),
		}
	}

	return resp
}

type apiRun struct {
	ID         string   `json:"id"`
	Query      string   `json:"query"`
	Event1     string   `json:"event1"`
	Event2     string   `json:"event2"`
	Assignment string   `json:"assignment"`
	Rows       int      `json:"rows"`
	Lift       *float64 `json:"lift"`
	PValue     *float64 `json:"p_value"`
	CreatedAt  string   `json:"created_at"`
}

func (s *Server) handleRunsAPI(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), runsPerPage)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load runs")
		return
	}

	items := make([]apiRun, len(runs))
	for i, run := range runs {
		items[i] = apiRun{
			ID:         run.ID,
			Query:      run.Query,
			Event1:     run.Event1,
			Event2:     run.Event2,
			Assignment: run.Assignment,
			Rows:       run.Rows,
			Lift:       run.Lift,
			PValue:     run.PValue,
			CreatedAt:  run.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": items})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

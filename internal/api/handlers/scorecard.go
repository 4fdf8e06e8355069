package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/internal/s3_publish"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
	"github.com/wonny/ecfr-scorecard/pkg/redis"
)

// Reader is the read side of the serving store
type Reader interface {
	CurrentSnapshot(ctx context.Context) (*contracts.Snapshot, error)
	Agencies(ctx context.Context, snapshotID string) ([]contracts.Agency, error)
	Agency(ctx context.Context, snapshotID, slug string) (*s3_publish.AgencyDetail, error)
	Corrections(ctx context.Context, snapshotID string, filter s3_publish.CorrectionFilter) ([]contracts.Correction, int, error)
	Metrics(ctx context.Context, snapshotID string) ([]contracts.AgencyMetric, error)
	Scorecards(ctx context.Context, snapshotID string) ([]contracts.Scorecard, error)
	Trends(ctx context.Context, snapshotID string) (*contracts.Trends, error)
	Runs(ctx context.Context, limit int) ([]contracts.RunRecord, error)
}

// ScorecardHandler serves the published snapshot read-only
// ⭐ SSOT: scorecard API handlers live in this struct only
type ScorecardHandler struct {
	reader Reader
	cache  *redis.Cache
	logger *logger.Logger
}

// NewScorecardHandler creates a new scorecard handler
func NewScorecardHandler(reader Reader, cache *redis.Cache, log *logger.Logger) *ScorecardHandler {
	return &ScorecardHandler{
		reader: reader,
		cache:  cache,
		logger: log,
	}
}

// CorrectionsPage is one page of a correction listing
type CorrectionsPage struct {
	SnapshotID  string                 `json:"snapshot_id"`
	Total       int                    `json:"total"`
	Limit       int                    `json:"limit"`
	Offset      int                    `json:"offset"`
	Corrections []contracts.Correction `json:"corrections"`
}

// snapshot resolves the current pointer and writes the error response when there is none
func (h *ScorecardHandler) snapshot(w http.ResponseWriter, r *http.Request) (*contracts.Snapshot, bool) {
	snapshot, err := h.reader.CurrentSnapshot(r.Context())
	if errors.Is(err, contracts.ErrNoSnapshot) {
		respondError(w, http.StatusServiceUnavailable, "No snapshot has been published yet")
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve current snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to resolve current snapshot")
		return nil, false
	}
	return snapshot, true
}

// fail maps reader errors to responses
func (h *ScorecardHandler) fail(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, s3_publish.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.WithError(err).Errorf("Failed to get %s", what)
	respondError(w, http.StatusInternalServerError, "Failed to retrieve "+what)
}

// GetSnapshot returns the current snapshot metadata
// GET /api/snapshot
func (h *ScorecardHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// GetAgencies returns every agency of the current snapshot
// GET /api/agencies
func (h *ScorecardHandler) GetAgencies(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	agencies, err := redis.GetOrSet(r.Context(), h.cache, redis.SnapshotKey(snapshot.ID, "agencies", nil), redis.TTLLong,
		func() ([]contracts.Agency, error) {
			return h.reader.Agencies(r.Context(), snapshot.ID)
		})
	if err != nil {
		h.fail(w, err, "agencies")
		return
	}
	respondJSON(w, http.StatusOK, agencies)
}

// GetAgency returns one agency with references, metric and scorecard
// GET /api/agencies/{slug}
func (h *ScorecardHandler) GetAgency(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	slug := mux.Vars(r)["slug"]

	detail, err := redis.GetOrSet(r.Context(), h.cache, redis.SnapshotKey(snapshot.ID, "agency:"+slug, nil), redis.TTLLong,
		func() (*s3_publish.AgencyDetail, error) {
			return h.reader.Agency(r.Context(), snapshot.ID, slug)
		})
	if err != nil {
		h.fail(w, err, "agency")
		return
	}

	if detail.Metric != nil {
		m := presentMetric(*detail.Metric)
		detail.Metric = &m
	}
	respondJSON(w, http.StatusOK, detail)
}

// GetAgencyCorrections lists corrections attributed to one agency
// GET /api/agencies/{slug}/corrections?year=&title=&limit=&offset=
func (h *ScorecardHandler) GetAgencyCorrections(w http.ResponseWriter, r *http.Request) {
	h.listCorrections(w, r, mux.Vars(r)["slug"])
}

// GetCorrections lists corrections across agencies
// GET /api/corrections?year=&title=&limit=&offset=
func (h *ScorecardHandler) GetCorrections(w http.ResponseWriter, r *http.Request) {
	h.listCorrections(w, r, "")
}

func (h *ScorecardHandler) listCorrections(w http.ResponseWriter, r *http.Request, slug string) {
	filter, err := parseCorrectionFilter(r, slug)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	key := redis.SnapshotKey(snapshot.ID, "corrections", filterParams(filter))
	page, err := redis.GetOrSet(r.Context(), h.cache, key, redis.TTLLong, func() (*CorrectionsPage, error) {
		corrections, total, err := h.reader.Corrections(r.Context(), snapshot.ID, filter)
		if err != nil {
			return nil, err
		}
		if corrections == nil {
			corrections = []contracts.Correction{}
		}
		return &CorrectionsPage{
			SnapshotID:  snapshot.ID,
			Total:       total,
			Limit:       filter.Limit,
			Offset:      filter.Offset,
			Corrections: corrections,
		}, nil
	})
	if err != nil {
		h.fail(w, err, "corrections")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GetMetrics returns every agency metric
// GET /api/metrics
func (h *ScorecardHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	metrics, err := redis.GetOrSet(r.Context(), h.cache, redis.SnapshotKey(snapshot.ID, "metrics", nil), redis.TTLLong,
		func() ([]contracts.AgencyMetric, error) {
			return h.reader.Metrics(r.Context(), snapshot.ID)
		})
	if err != nil {
		h.fail(w, err, "metrics")
		return
	}

	out := make([]contracts.AgencyMetric, len(metrics))
	for i, m := range metrics {
		out[i] = presentMetric(m)
	}
	respondJSON(w, http.StatusOK, out)
}

// GetScorecard returns the ranked scorecard
// GET /api/scorecard
func (h *ScorecardHandler) GetScorecard(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	cards, err := redis.GetOrSet(r.Context(), h.cache, redis.SnapshotKey(snapshot.ID, "scorecard", nil), redis.TTLLong,
		func() ([]contracts.Scorecard, error) {
			return h.reader.Scorecards(r.Context(), snapshot.ID)
		})
	if err != nil {
		h.fail(w, err, "scorecard")
		return
	}
	respondJSON(w, http.StatusOK, cards)
}

// GetTrends returns the yearly, by-title and monthly trend tables
// GET /api/trends
func (h *ScorecardHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	trends, err := redis.GetOrSet(r.Context(), h.cache, redis.SnapshotKey(snapshot.ID, "trends", nil), redis.TTLLong,
		func() (*contracts.Trends, error) {
			return h.reader.Trends(r.Context(), snapshot.ID)
		})
	if err != nil {
		h.fail(w, err, "trends")
		return
	}
	respondJSON(w, http.StatusOK, trends)
}

// GetRuns returns the pipeline run history. Never cached.
// GET /api/runs?limit=
func (h *ScorecardHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit == 0 || limit > 100 {
		limit = 20
	}

	runs, err := h.reader.Runs(r.Context(), limit)
	if err != nil {
		h.fail(w, err, "pipeline runs")
		return
	}
	if runs == nil {
		runs = []contracts.RunRecord{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func parseCorrectionFilter(r *http.Request, slug string) (s3_publish.CorrectionFilter, error) {
	filter := s3_publish.CorrectionFilter{AgencySlug: slug}

	var err error
	if filter.Year, err = queryInt(r, "year"); err != nil {
		return filter, err
	}
	if filter.Title, err = queryInt(r, "title"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		return filter, err
	}
	return filter.Normalize(), nil
}

// filterParams renders a normalized filter for the cache key
func filterParams(f s3_publish.CorrectionFilter) url.Values {
	v := url.Values{}
	if f.AgencySlug != "" {
		v.Set("agency", f.AgencySlug)
	}
	if f.Year != 0 {
		v.Set("year", strconv.Itoa(f.Year))
	}
	if f.Title != 0 {
		v.Set("title", strconv.Itoa(f.Title))
	}
	v.Set("limit", strconv.Itoa(f.Limit))
	v.Set("offset", strconv.Itoa(f.Offset))
	return v
}

// presentMetric rounds RVI to 2 dp and lag to 1 dp
func presentMetric(m contracts.AgencyMetric) contracts.AgencyMetric {
	m.RVI = roundPtr(m.RVI, 2)
	m.AvgCorrectionLagDays = roundPtr(m.AvgCorrectionLagDays, 1)
	return m
}

// Package api serves the filter pipeline, request options, exports, and
// credit balances over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/gst-filter/internal/credit"
	"github.com/sells-group/gst-filter/internal/export"
	"github.com/sells-group/gst-filter/internal/geo"
	"github.com/sells-group/gst-filter/internal/hsn"
	"github.com/sells-group/gst-filter/internal/metrics"
	"github.com/sells-group/gst-filter/internal/model"
	"github.com/sells-group/gst-filter/internal/pipeline"
	"github.com/sells-group/gst-filter/internal/pivot"
	"github.com/sells-group/gst-filter/internal/snapshot"
)

// SessionHeader carries the caller's credit session.
const SessionHeader = "X-Session-ID"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Service runs filters and lists request options.
type Service interface {
	Filter(ctx context.Context, f model.RequestFilter) (*pipeline.Result, error)
	Options(ctx context.Context) (*pipeline.Options, error)
}

// Handler wires HTTP endpoints to the filter service.
type Handler struct {
	service Service
	ledger  *credit.Ledger
	metrics *metrics.Metrics
	runs    *runStore
}

// New constructs a handler. m may be nil.
func New(service Service, ledger *credit.Ledger, m *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		ledger:  ledger,
		metrics: m,
		runs:    newRunStore(defaultRunCapacity),
	}
}

// Register mounts the endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/options", h.HandleOptions)
	r.Post("/filter", h.HandleFilter)
	r.Post("/export", h.HandleExport)
	r.Get("/credits", h.HandleCredits)
}

// FilterRequest is the POST /filter body.
type FilterRequest struct {
	HSNCodes      []string `json:"hsn_codes"`
	States        []string `json:"states"`
	Cities        []string `json:"cities"`
	BusinessTypes []string `json:"business_types"`
	Slabs         []string `json:"slabs"`
	Level         string   `json:"level"`
	Shapes        []string `json:"shapes"`
	Preview       int      `json:"preview"`
}

// ToFilter normalises the request into a model.RequestFilter. HSN codes
// may be sent as separate entries or as one comma-separated string.
func (req FilterRequest) ToFilter() (model.RequestFilter, error) {
	level, err := model.ParseScopeLevel(req.Level)
	if err != nil {
		return model.RequestFilter{}, err
	}
	return model.RequestFilter{
		HSNPrefixes:   hsn.ParsePrefixes(strings.Join(req.HSNCodes, ",")),
		States:        req.States,
		Cities:        req.Cities,
		BusinessTypes: req.BusinessTypes,
		Slabs:         req.Slabs,
		Level:         level,
		Shapes:        req.Shapes,
	}, nil
}

// FilterResponse is the POST /filter reply.
type FilterResponse struct {
	RunID      string                 `json:"run_id"`
	Total      int                    `json:"total"`
	Preview    []model.Record         `json:"preview"`
	ByLocation *pivot.Crosstab        `json:"by_location"`
	ByHSN      *pivot.Crosstab        `json:"by_hsn"`
	Stages     []pipeline.StageResult `json:"stages"`
}

// ExportRequest is the POST /export body.
type ExportRequest struct {
	RunID  string `json:"run_id"`
	Format string `json:"format"`
}

// CreditsResponse is the GET /credits reply.
type CreditsResponse struct {
	SessionID string `json:"session_id"`
	Balance   int    `json:"balance"`
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleOptions handles GET /options. An optional state query parameter
// (repeatable) narrows the city list.
func (h *Handler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options(r.Context())
	if err != nil {
		zap.L().Error("options failed", zap.Error(err))
		writeError(w, err)
		return
	}
	if states := r.URL.Query()["state"]; len(states) > 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"states":         opts.States,
			"cities":         opts.CitiesFor(states),
			"business_types": opts.BusinessTypes,
			"slabs":          opts.Slabs,
		})
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// HandleFilter handles POST /filter.
func (h *Handler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req FilterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	f, err := req.ToFilter()
	if err != nil {
		h.metrics.ObserveFilter(modeOf(req.Level), metrics.OutcomeInvalid, time.Since(start), 0)
		writeError(w, err)
		return
	}

	res, err := h.service.Filter(r.Context(), f)
	if err != nil {
		h.metrics.ObserveFilter(modeOf(req.Level), outcomeOf(err), time.Since(start), 0)
		zap.L().Warn("filter failed", zap.String("level", req.Level), zap.Error(err))
		writeError(w, err)
		return
	}

	h.runs.put(res)
	for _, st := range res.Stages {
		h.metrics.ObserveStage(st.Name, time.Duration(st.Duration)*time.Microsecond)
	}
	h.metrics.ObserveFilter(modeOf(req.Level), metrics.OutcomeOK, time.Since(start), res.Total())

	writeJSON(w, http.StatusOK, FilterResponse{
		RunID:      res.RunID,
		Total:      res.Total(),
		Preview:    res.Preview(req.Preview),
		ByLocation: res.ByLocation,
		ByHSN:      res.ByHSN,
		Stages:     res.Stages,
	})
}

// HandleExport handles POST /export. The session is charged one credit
// per exported record, once per run.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get(SessionHeader)
	if session == "" {
		writeErrorStatus(w, http.StatusBadRequest, SessionHeader+" header is required")
		return
	}

	var req ExportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	res, ok := h.runs.get(req.RunID)
	if !ok {
		writeErrorStatus(w, http.StatusNotFound, "unknown or expired run_id")
		return
	}

	balance, err := h.ledger.Charge(session, res.RunID, res.Total())
	if err != nil {
		zap.L().Info("export refused",
			zap.String("session", session),
			zap.String("run_id", res.RunID),
			zap.Int("records", res.Total()),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}
	h.metrics.IncrementExport(string(format), res.Total())

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
	w.Header().Set("X-Credits-Remaining", strconv.Itoa(balance))
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, format, res.Records); err != nil {
		zap.L().Error("export write failed", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

// HandleCredits handles GET /credits. A request without a session is
// assigned a new ID; the ledger only records it once an export is charged.
func (h *Handler) HandleCredits(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get(SessionHeader)
	if session == "" {
		session = uuid.NewString()
	}
	w.Header().Set(SessionHeader, session)
	writeJSON(w, http.StatusOK, CreditsResponse{SessionID: session, Balance: h.ledger.Balance(session)})
}

func modeOf(level string) string {
	if l, err := model.ParseScopeLevel(level); err == nil && l.Geographic() {
		return string(l)
	}
	return "snapshot"
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, geo.ErrNoShapes):
		return metrics.OutcomeNoShapes
	case errors.Is(err, geo.ErrNoRecords):
		return metrics.OutcomeNoRecords
	case errors.Is(err, model.ErrInvalidScope), errors.Is(err, pipeline.ErrInvalidFilter):
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, model.ErrInvalidScope),
		errors.Is(err, pipeline.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, geo.ErrNoShapes), errors.Is(err, geo.ErrNoRecords):
		return http.StatusNotFound
	case errors.Is(err, credit.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, credit.ErrAlreadyExported):
		return http.StatusConflict
	case errors.Is(err, snapshot.ErrEmptySnapshot):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("invalid request body")

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

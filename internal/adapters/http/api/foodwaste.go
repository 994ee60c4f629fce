package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/wastesync/internal/adapters/sink"
	service "github.com/okian/wastesync/internal/app"
	"github.com/okian/wastesync/internal/domain/model"
	"github.com/okian/wastesync/internal/domain/normalize"
	"github.com/okian/wastesync/internal/ingest"
)

const (
	defaultHours = 24
	defaultLimit = 100
	// maxHours keeps the window well inside time.Duration.
	maxHours = 24 * 366
)

// FoodWasteHandler serves sync and read requests for food-waste records.
type FoodWasteHandler struct {
	deps     Dependencies
	maxLimit int
	now      func() time.Time
}

// NewFoodWasteHandler creates a new food-waste handler.
func NewFoodWasteHandler(deps Dependencies, maxLimit int) *FoodWasteHandler {
	return &FoodWasteHandler{deps: deps, maxLimit: maxLimit, now: time.Now}
}

type recentResponse struct {
	Since   time.Time            `json:"since"`
	Records []model.StoredRecord `json:"records"`
}

type aggregateResponse struct {
	Since  time.Time       `json:"since"`
	Totals []service.Total `json:"totals"`
}

// HandlePost handles POST /food-waste?location=&session_id=&async=true.
func (h *FoodWasteHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_food_waste"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	q := r.URL.Query()
	async := false
	if v := q.Get("async"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		async = b
	}

	obs, err := ingest.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	opts := []service.SyncOption{
		service.WithLocation(q.Get("location")),
		service.WithSessionID(q.Get("session_id")),
	}
	if async {
		res, err := h.deps.SyncAsync(r.Context(), obs, opts...)
		if err != nil {
			writeSyncError(w, op, err)
			return
		}
		writeJSON(w, http.StatusAccepted, res)
		return
	}
	res, err := h.deps.Sync(r.Context(), obs, opts...)
	if err != nil {
		writeSyncError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRecent handles GET /food-waste/recent?hours=24&limit=100.
func (h *FoodWasteHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_recent"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	since, err := h.since(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	rows, err := h.deps.Recent(r.Context(), since, limit)
	if err != nil {
		writeReadError(w, op, err)
		return
	}
	if rows == nil {
		rows = []model.StoredRecord{}
	}
	writeJSON(w, http.StatusOK, recentResponse{Since: since, Records: rows})
}

// HandleAggregate handles GET /food-waste/aggregate?hours=24.
func (h *FoodWasteHandler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_aggregate"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	since, err := h.since(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	totals, err := h.deps.Aggregate(r.Context(), since)
	if err != nil {
		writeReadError(w, op, err)
		return
	}
	if totals == nil {
		totals = []service.Total{}
	}
	writeJSON(w, http.StatusOK, aggregateResponse{Since: since, Totals: totals})
}

func (h *FoodWasteHandler) since(r *http.Request) (time.Time, error) {
	hours := float64(defaultHours)
	if v := r.URL.Query().Get("hours"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return time.Time{}, err
		}
		if !(f > 0) {
			return time.Time{}, errors.New("hours must be positive")
		}
		if f > maxHours {
			return time.Time{}, fmt.Errorf("hours must be at most %d", maxHours)
		}
		hours = f
	}
	return h.now().Add(-time.Duration(hours * float64(time.Hour))).UTC(), nil
}

func writeSyncError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, normalize.ErrDataFormat):
		writeError(w, http.StatusBadRequest, "data_format", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNoRecords):
		writeError(w, http.StatusBadRequest, "no_records", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, model.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, "invalid_record", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrNoSink):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusBadGateway, "sink_error", WrapKind(op, ErrUpstream, err))
	}
}

func writeReadError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, sink.ErrUnsupported):
		writeError(w, http.StatusNotImplemented, "unsupported", Wrap(op, err))
	case errors.Is(err, service.ErrNoSink):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusBadGateway, "sink_error", WrapKind(op, ErrUpstream, err))
	}
}

// Package api exposes the HTTP ingestion and query surface of the telemetry
// service.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"example.com/telemetry/internal/auth"
	"example.com/telemetry/internal/domain"
	"example.com/telemetry/internal/observability"
	"example.com/telemetry/internal/persistence"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux. Every route is registered both
// bare and under /api; fielded device firmware posts to either.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	for _, prefix := range []string{"", "/api"} {
		mux.HandleFunc(prefix+"/sensor-data", h.sensorData)
		mux.HandleFunc(prefix+"/sensor-data/history", h.sensorDataHistory)
		mux.HandleFunc(prefix+"/gps-data", h.gpsData)
		mux.HandleFunc(prefix+"/gps-data/history", h.gpsDataHistory)
		mux.HandleFunc(prefix+"/location", h.location)
		mux.HandleFunc(prefix+"/location/", h.locationByDevice)
		mux.HandleFunc(prefix+"/data", h.compositeData)
	}
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) sensorData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	var req SensorDataRequest
	h.ingest(w, r, domain.KindMotion, &req)
}

func (h *Handler) gpsData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	var req GPSDataRequest
	h.ingest(w, r, domain.KindGPS, &req)
}

func (h *Handler) location(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	var req LocationRequest
	h.ingest(w, r, domain.KindLocation, &req)
}

// ingestRequest is implemented by the per-kind payload types.
type ingestRequest interface {
	Validate() error
	Input(authenticatedDevice string) domain.IngestInput
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, kind domain.Kind, req ingestRequest) {
	if err := DecodeBody(r.Body, req); err != nil {
		h.rejectIngest(w, kind, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.rejectIngest(w, kind, err)
		return
	}

	authenticatedDevice := ""
	if claims, ok := auth.FromContext(r.Context()); ok {
		authenticatedDevice = claims.DeviceID
	}

	reading, err := h.service.Ingest(r.Context(), req.Input(authenticatedDevice))
	if err != nil {
		h.rejectIngest(w, kind, err)
		return
	}

	writeJSON(w, http.StatusCreated, toView(*reading))
}

func (h *Handler) rejectIngest(w http.ResponseWriter, kind domain.Kind, err error) {
	switch {
	case errors.Is(err, domain.ErrDeviceMismatch):
		observability.RecordReadingRejected(string(kind), "device_mismatch")
		writeMessage(w, http.StatusForbidden, "Device ID mismatch")
	case domain.IsValidation(err):
		observability.RecordReadingRejected(string(kind), "validation")
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnparsableBody):
		observability.RecordReadingRejected(string(kind), "validation")
		writeError(w, http.StatusBadRequest, "unable to parse body")
	default:
		log.Printf("ingest %s failed: %v", kind, err)
		writeError(w, http.StatusInternalServerError, "storage failure")
	}
}

func (h *Handler) compositeData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if strings.TrimSpace(deviceID) == "" {
		writeError(w, http.StatusBadRequest, "missing device_id parameter")
		return
	}

	latest, err := h.service.Composite(r.Context(), deviceID, domain.KindMotion, domain.KindGPS)
	if err != nil {
		log.Printf("composite query for %s failed: %v", deviceID, err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	var view CompositeView
	if reading := latest[domain.KindMotion]; reading != nil {
		motion := toMotionView(*reading)
		view.SensorData = &motion
	}
	if reading := latest[domain.KindGPS]; reading != nil {
		gps := toGPSView(*reading)
		view.GPSData = &gps
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) sensorDataHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, domain.KindMotion, r.URL.Query().Get("device_id"))
}

func (h *Handler) gpsDataHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, domain.KindGPS, r.URL.Query().Get("device_id"))
}

// locationByDevice serves GET /location/<device_id> and
// GET /location/<device_id>/history.
func (h *Handler) locationByDevice(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	rest := strings.TrimPrefix(path, "/location/")

	if deviceID, isHistory := strings.CutSuffix(rest, "/history"); isHistory {
		h.history(w, r, domain.KindLocation, deviceID)
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, http.StatusBadRequest, "missing device id")
		return
	}

	reading, err := h.service.Latest(r.Context(), domain.KindLocation, rest)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Device not found")
			return
		}
		log.Printf("latest location for %s failed: %v", rest, err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	writeJSON(w, http.StatusOK, toLocationView(*reading))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, kind domain.Kind, deviceID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}
	if strings.TrimSpace(deviceID) == "" {
		writeError(w, http.StatusBadRequest, "missing device_id parameter")
		return
	}

	query := r.URL.Query()

	filter := domain.HistoryFilter{}
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}

	start, err := persistence.ParseTime(query.Get("start_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time")
		return
	}
	end, err := persistence.ParseTime(query.Get("end_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time")
		return
	}
	filter.Start = start
	filter.End = end

	readings, err := h.service.History(r.Context(), kind, deviceID, filter)
	if err != nil {
		log.Printf("%s history for %s failed: %v", kind, deviceID, err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	items := make([]any, 0, len(readings))
	for _, reading := range readings {
		items = append(items, toView(reading))
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

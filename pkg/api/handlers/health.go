package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/dittoftp/pkg/server"
)

// StatusProvider reports the FTP server state. *server.Supervisor implements it.
type StatusProvider interface {
	Status() server.Status
}

// Pinger checks a backing store. The user store implements it.
type Pinger interface {
	Healthcheck(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the process running?
//   - Readiness probe: Is the FTP server accepting connections?
//   - Status: Connection, passive port and user store details
type HealthHandler struct {
	status StatusProvider
	store  Pinger
}

// NewHealthHandler creates a new health handler. Either argument may be nil,
// in which case readiness reports unhealthy.
func NewHealthHandler(status StatusProvider, store Pinger) *HealthHandler {
	return &HealthHandler{status: status, store: store}
}

// StoreHealth is the result of one store check.
type StoreHealth struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// StatusResponse is the payload of GET /health/status.
type StatusResponse struct {
	Server server.Status `json:"server"`
	Store  StoreHealth   `json:"store"`
}

// Liveness handles GET /health.
//
// Always 200 while the HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "dittoftp",
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 200 when the FTP listener is up and the user store answers,
// 503 Service Unavailable otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("server not initialized", nil))
		return
	}

	st := h.status.Status()
	if !st.Running {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("ftp server not running", st))
		return
	}

	if health := h.checkStore(r.Context()); health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("user store unavailable: "+health.Error, st))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(st))
}

// Status handles GET /health/status - detailed status.
//
// Returns 200 when every component is healthy, 503 when any is not. The body
// always carries the full report.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	var resp StatusResponse
	if h.status != nil {
		resp.Server = h.status.Status()
	}
	resp.Store = h.checkStore(r.Context())

	switch {
	case !resp.Server.Running:
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("ftp server not running", resp))
	case resp.Store.Status != "healthy":
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("user store unavailable", resp))
	default:
		writeJSON(w, http.StatusOK, healthyResponse(resp))
	}
}

func (h *HealthHandler) checkStore(ctx context.Context) StoreHealth {
	if h.store == nil {
		return StoreHealth{Status: "unhealthy", Error: "store not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := h.store.Healthcheck(ctx)
	health := StoreHealth{Status: "healthy", Latency: time.Since(start).String()}
	if err != nil {
		health.Status = "unhealthy"
		health.Error = err.Error()
	}
	return health
}

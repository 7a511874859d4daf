// Package health holds the client side view of the /health/status payload.
package health

// StatusResponse mirrors GET /health/status.
type StatusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Server struct {
			Running           bool `json:"running"`
			Port              int  `json:"port"`
			ActiveConnections int  `json:"active_connections"`
			PassivePortsInUse int  `json:"passive_ports_in_use"`
			PassivePortsTotal int  `json:"passive_ports_total"`
			Users             int  `json:"users"`
		} `json:"server"`
		Store struct {
			Status  string `json:"status"`
			Error   string `json:"error,omitempty"`
			Latency string `json:"latency,omitempty"`
		} `json:"store"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Healthy reports whether both the FTP server and the user store are up.
func (r *StatusResponse) Healthy() bool {
	return r.Data.Server.Running && r.Data.Store.Status == "healthy"
}

package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittoftp/pkg/metrics"
)

// ftpMetrics is the Prometheus implementation of metrics.FTPMetrics.
type ftpMetrics struct {
	connectionsAccepted    prometheus.Counter
	connectionsRejected    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
	activeConnections      prometheus.Gauge

	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	loginsTotal     *prometheus.CounterVec

	transfersTotal   *prometheus.CounterVec
	transferBytes    *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec

	passivePortsLeased prometheus.Gauge
	eventsDropped      *prometheus.CounterVec
}

// NewFTPMetrics creates FTP metrics on the process-wide registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewFTPMetrics() metrics.FTPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return NewFTPMetricsWith(metrics.GetRegistry())
}

// NewFTPMetricsWith registers FTP metrics on reg.
func NewFTPMetricsWith(reg prometheus.Registerer) metrics.FTPMetrics {
	f := promauto.With(reg)

	return &ftpMetrics{
		connectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "dittoftp_connections_accepted_total",
			Help: "Total control connections accepted",
		}),
		connectionsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "dittoftp_connections_rejected_total",
			Help: "Total control connections rejected because the connection limit was reached",
		}),
		connectionsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "dittoftp_connections_closed_total",
			Help: "Total control connections closed",
		}),
		connectionsForceClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "dittoftp_connections_force_closed_total",
			Help: "Total control connections force-closed at shutdown",
		}),
		activeConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "dittoftp_connections_active",
			Help: "Current number of control connections",
		}),
		commandsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoftp_commands_total",
				Help: "Total FTP commands by verb and reply class",
			},
			[]string{"verb", "reply_class"},
		),
		commandDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittoftp_command_duration_milliseconds",
				Help: "Duration of FTP commands in milliseconds, including data transfers",
				Buckets: []float64{
					0.1,   // in-memory replies (PWD, SYST)
					1,     // metadata operations
					10,    // small listings
					100,   // small transfers
					1000,  // 1s
					10000, // 10s - large transfers
					60000, // 1m
				},
			},
			[]string{"verb"},
		),
		loginsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoftp_logins_total",
				Help: "Total login attempts by result",
			},
			[]string{"result"},
		),
		transfersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoftp_transfers_total",
				Help: "Total data channel transfers by direction and status",
			},
			[]string{"direction", "status"},
		),
		transferBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoftp_transfer_bytes_total",
				Help: "Total bytes moved over data connections",
			},
			[]string{"direction"},
		),
		transferDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittoftp_transfer_duration_seconds",
				Help:    "Duration of data channel transfers in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"direction"},
		),
		passivePortsLeased: f.NewGauge(prometheus.GaugeOpts{
			Name: "dittoftp_passive_ports_leased",
			Help: "Current number of leased passive data ports",
		}),
		eventsDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoftp_events_dropped_total",
				Help: "Supervisor events dropped because the consumer was too slow",
			},
			[]string{"type"},
		),
	}
}

func (m *ftpMetrics) RecordConnectionAccepted()    { m.connectionsAccepted.Inc() }
func (m *ftpMetrics) RecordConnectionRejected()    { m.connectionsRejected.Inc() }
func (m *ftpMetrics) RecordConnectionClosed()      { m.connectionsClosed.Inc() }
func (m *ftpMetrics) RecordConnectionForceClosed() { m.connectionsForceClosed.Inc() }

func (m *ftpMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *ftpMetrics) RecordCommand(verb, replyClass string, duration time.Duration) {
	m.commandsTotal.WithLabelValues(verb, replyClass).Inc()
	m.commandDuration.WithLabelValues(verb).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *ftpMetrics) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.loginsTotal.WithLabelValues(result).Inc()
}

func (m *ftpMetrics) RecordTransfer(direction string, bytes int64, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.transfersTotal.WithLabelValues(direction, status).Inc()
	if bytes > 0 {
		m.transferBytes.WithLabelValues(direction).Add(float64(bytes))
	}
	m.transferDuration.WithLabelValues(direction).Observe(duration.Seconds())
}

func (m *ftpMetrics) SetPassivePortsLeased(count int) {
	m.passivePortsLeased.Set(float64(count))
}

func (m *ftpMetrics) RecordEventDropped(eventType string) {
	m.eventsDropped.WithLabelValues(eventType).Inc()
}

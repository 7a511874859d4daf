package metrics

import "time"

// FTPMetrics provides observability for the FTP adapter.
//
// Pass nil to disable metrics collection; the adapter checks for nil before
// every call.
//
//	m := prometheus.NewFTPMetrics()  // nil unless metrics.InitRegistry was called
//	adapter, err := ftp.New(cfg, ftp.Options{Users: users, Metrics: m})
type FTPMetrics interface {
	// Connection lifecycle, driven by the shared accept loop.
	RecordConnectionAccepted()
	RecordConnectionRejected()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)

	// RecordCommand records one processed control command.
	//   - verb: upper-case FTP verb, "OTHER" for unknown verbs
	//   - replyClass: "1xx" .. "5xx" of the final reply
	RecordCommand(verb, replyClass string, duration time.Duration)

	// RecordLogin records a PASS attempt.
	RecordLogin(success bool)

	// RecordTransfer records a finished data channel transfer.
	//   - direction: "download", "upload" or "listing"
	RecordTransfer(direction string, bytes int64, duration time.Duration, success bool)

	// SetPassivePortsLeased updates the number of leased passive ports.
	SetPassivePortsLeased(count int)

	// RecordEventDropped counts supervisor events dropped because the consumer lagged.
	RecordEventDropped(eventType string)
}

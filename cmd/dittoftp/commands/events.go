package commands

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/server"
)

// forwardEvents drains the supervisor event stream until it is closed. When
// w is non-nil every event is written to it as one JSON line. The first
// EventError is reported on failed; later ones are only logged.
func forwardEvents(events <-chan server.Event, w io.Writer, failed chan<- error) {
	var enc *json.Encoder
	if w != nil {
		enc = json.NewEncoder(w)
		enc.SetEscapeHTML(false)
	}

	for ev := range events {
		if enc != nil {
			if err := enc.Encode(ev); err != nil {
				logger.Debug("event sink write failed", logger.Err(err))
			}
		}

		switch ev.Type {
		case server.EventCtl:
			logger.Debug("control", "remote", ev.Remote, "line", ev.Line)
		case server.EventError:
			select {
			case failed <- errors.New(ev.Message):
			default:
			}
		}
	}
}

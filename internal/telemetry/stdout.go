package telemetry

import (
	"fmt"

	"github.com/rjboer/GoBaseband/internal/logging"
	"github.com/rjboer/GoBaseband/internal/message"
)

// StdoutReporter logs every event through the provided logger. Periodic
// statistics go to debug; packets and completions go to info.
type StdoutReporter struct {
	logger logging.Logger
}

// NewStdoutReporter builds a stdout reporter with the provided logger.
func NewStdoutReporter(logger logging.Logger) StdoutReporter {
	if logger == nil {
		logger = logging.Default()
	}
	return StdoutReporter{logger: logger}
}

func (r StdoutReporter) Report(e Event) {
	fields := []logging.Field{
		{Key: "subsystem", Value: "telemetry"},
		{Key: "kind", Value: e.Kind},
	}
	switch m := e.Payload.(type) {
	case message.ChannelStatistics:
		fields = append(fields, logging.Field{Key: "max_db", Value: m.MaxDB})
		r.logger.Debug("channel statistics", fields...)
	case message.AudioStatistics:
		fields = append(fields,
			logging.Field{Key: "rms_db", Value: m.RMSDB},
			logging.Field{Key: "max_db", Value: m.MaxDB},
		)
		r.logger.Debug("audio statistics", fields...)
	case message.RSSIStatistics:
		fields = append(fields,
			logging.Field{Key: "min", Value: m.Min},
			logging.Field{Key: "max", Value: m.Max},
			logging.Field{Key: "avg", Value: m.Avg()},
		)
		r.logger.Debug("rssi statistics", fields...)
	case message.BasebandStatistics:
		fields = append(fields,
			logging.Field{Key: "baseband_us", Value: m.BasebandTicks},
			logging.Field{Key: "main_us", Value: m.MainTicks},
			logging.Field{Key: "saturation", Value: m.Saturation},
		)
		if m.Saturation {
			r.logger.Warn("baseband saturated", fields...)
			return
		}
		r.logger.Debug("baseband statistics", fields...)
	case message.ChannelSpectrum:
		fields = append(fields, logging.Field{Key: "bins", Value: len(m.DB)})
		r.logger.Debug("channel spectrum", fields...)
	case message.FSKPacket:
		fields = append(fields,
			logging.Field{Key: "payload", Value: fmt.Sprintf("%x", m.Payload)},
			logging.Field{Key: "bits", Value: m.BitsReceived},
		)
		r.logger.Info("fsk packet", fields...)
	case message.TXDone:
		fields = append(fields, logging.Field{Key: "progress", Value: m.Progress})
		r.logger.Info("transmit progress", fields...)
	default:
		r.logger.Debug("baseband event", fields...)
	}
}

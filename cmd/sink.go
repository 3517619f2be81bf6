package cmd

import (
	"fmt"

	"github.com/cossteam/busline/config"
	"github.com/cossteam/busline/pkg/bus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logSinkConfig configures the "log" sink.
type logSinkConfig struct {
	Level string `mapstructure:"level"`
}

// stdoutSinkConfig configures the "stdout" sink.
type stdoutSinkConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// buildSink turns a configured subscription into a message handler. The
// default sink logs each message.
func buildSink(logger *zap.Logger, sc config.Subscription) (bus.Handler, error) {
	switch sc.Sink {
	case "", "log":
		spec := logSinkConfig{Level: "info"}
		if err := sc.LoadSinkConfig(&spec); err != nil {
			return nil, err
		}
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(spec.Level)); err != nil {
			return nil, err
		}
		return func(m *bus.Message) error {
			logger.Log(level, "message",
				zap.String("topic", sc.Topic),
				zap.Int64("id", m.ID),
				zap.Any("payload", m.Payload))
			return nil
		}, nil

	case "stdout":
		var spec stdoutSinkConfig
		if err := sc.LoadSinkConfig(&spec); err != nil {
			return nil, err
		}
		return func(m *bus.Message) error {
			_, err := fmt.Printf("%s%v\n", spec.Prefix, m.Payload)
			return err
		}, nil

	default:
		return nil, fmt.Errorf("unknown sink %q for topic %q", sc.Sink, sc.Topic)
	}
}

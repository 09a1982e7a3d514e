package eqstate

import (
	"github.com/eqplus/eqplus/internal/domain"
	"github.com/eqplus/eqplus/internal/logger"
)

// Sink receives committed edits for the processing engine.
type Sink interface {
	AddFilter(f domain.Filter) error
	ModifyFilter(f domain.Filter) error
	RemoveFilter(id string) error
	ModifyPreamp(db float64) error
}

// LogSink records every edit in the log. It stands in for the engine when
// none is attached.
type LogSink struct {
	log *logger.LoggerContext
}

// NewLogSink tags every entry with target, typically the engine config
// directory.
func NewLogSink(target string) *LogSink {
	return &LogSink{log: logger.WithFields(logger.String("sink", "log"), logger.String("target", target))}
}

func (s *LogSink) AddFilter(f domain.Filter) error {
	s.log.Info("Filter added", filterFields(f)...)
	return nil
}

func (s *LogSink) ModifyFilter(f domain.Filter) error {
	s.log.Debug("Filter modified", filterFields(f)...)
	return nil
}

func (s *LogSink) RemoveFilter(id string) error {
	s.log.Info("Filter removed", logger.String("id", id))
	return nil
}

func (s *LogSink) ModifyPreamp(db float64) error {
	s.log.Debug("Preamp modified", logger.Float64("preamp", db))
	return nil
}

func filterFields(f domain.Filter) []logger.Field {
	return []logger.Field{
		logger.String("id", f.ID),
		logger.Stringer("type", f.Type),
		logger.Float64("frequency", f.Frequency),
		logger.Float64("gain", f.Gain),
		logger.Float64("q", f.Q),
	}
}

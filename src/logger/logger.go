package logger

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
)

// Init sets the level of the standard logrus logger. An unknown level keeps
// info and logs a warning.
func Init(level string) {
	if level == "" {
		logrus.SetLevel(logrus.InfoLevel)
		return
	}

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.Warnf("logger.Init: unknown level %q, using info", level)
		return
	}

	logrus.SetLevel(lvl)
}

type LogrusLogger struct {
	logger *logrus.Logger
}

func NewLogrusLogger() *LogrusLogger {
	return NewLogrusLoggerFrom(logrus.StandardLogger())
}

func NewLogrusLoggerFrom(logger *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{
		logger: logger,
	}
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Infof(msg, data...)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Warnf(msg, data...)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Errorf(msg, data...)
}

// Bar logs a consolidated bar at info level.
func (l *LogrusLogger) Bar(ctx context.Context, bar eventmodels.ConsolidatedBar) {
	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"symbol": bar.GetSymbol().String(),
		"start":  bar.GetTime(),
		"end":    bar.GetEndTime(),
		"open":   bar.GetOpen(),
		"high":   bar.GetHigh(),
		"low":    bar.GetLow(),
		"close":  bar.GetClose(),
	}).Info("bar consolidated")
}

// Dropped logs an observation that arrived after its bar was emitted.
func (l *LogrusLogger) Dropped(ctx context.Context, event eventmodels.ObservationDroppedEvent) {
	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"symbol":          event.Symbol.String(),
		"time":            event.Time,
		"last_emitted_at": event.LastEmittedAt,
	}).Warn("late observation dropped")
}

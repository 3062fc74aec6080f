package notify

import "WaveSplit/logger"

// Level mirrors the toast variants of the UI shell.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one user-visible workflow outcome.
type Notification struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notifier receives workflow outcomes for user-visible display. How they
// are presented is entirely the sink's business.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to the application log. It is the
// fallback sink when no UI shell is connected.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	switch n.Level {
	case LevelError:
		logger.Warn("workflow notification",
			logger.String("title", n.Title),
			logger.String("message", n.Message))
	default:
		logger.Info("workflow notification",
			logger.String("title", n.Title),
			logger.String("message", n.Message))
	}
}

// Multi fans one notification out to several sinks.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, s := range m {
		s.Notify(n)
	}
}

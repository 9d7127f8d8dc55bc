package watch

import (
	"fmt"
	"log/slog"

	"xlmerge/internal/logging"
)

// Fixed observer messages.
const (
	MessageProcessingExisting = "State: Processing existing files"
	MessageWatching           = "State: Watching folder for new files"
	MessageStopped            = "State: Stopped"
)

// ProcessingNewFile is emitted when a live notification is picked up.
func ProcessingNewFile(path string) string {
	return fmt.Sprintf("State: Processing new file '%s'", path)
}

// MovingNotApplicable is emitted before a non-spreadsheet file is relocated.
func MovingNotApplicable(path string) string {
	return fmt.Sprintf("State: Moving not applicable file '%s'", path)
}

// Consolidating is emitted before a spreadsheet is merged.
func Consolidating(name string) string {
	return fmt.Sprintf("State: Consolidating '%s'", name)
}

// ErrorMessage formats a failure for the observer.
func ErrorMessage(format string, args ...any) string {
	return "Error: " + fmt.Sprintf(format, args...)
}

// Observer receives one-way status messages. Notify must not block for long.
type Observer interface {
	Notify(message string)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(message string)

func (f ObserverFunc) Notify(message string) { f(message) }

// Observers fans a message out to several observers in order.
type Observers []Observer

func (o Observers) Notify(message string) {
	for _, observer := range o {
		if observer != nil {
			observer.Notify(message)
		}
	}
}

// ChannelObserver delivers messages on C and drops them when the consumer
// lags behind by more than the buffer.
type ChannelObserver struct {
	C chan string
}

// NewChannelObserver returns a ChannelObserver with the given buffer size.
func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{C: make(chan string, buffer)}
}

func (o *ChannelObserver) Notify(message string) {
	select {
	case o.C <- message:
	default:
	}
}

// LogObserver records every message at debug level.
func LogObserver(logger *slog.Logger) Observer {
	logger = logging.NewComponentLogger(logger, "observer")
	return ObserverFunc(func(message string) {
		logger.Debug(message, logging.String(logging.FieldEventType, "observer_message"))
	})
}

type nopObserver struct{}

func (nopObserver) Notify(string) {}

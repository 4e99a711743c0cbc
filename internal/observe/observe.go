// Package observe provides structured observability for the bootstrap
// sequence. All orchestration logging flows through an Observer so the
// CLI, tests, and any future reporting layer can consume the same
// event stream.
package observe

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Observer receives log lines and structured events during a run.
type Observer interface {
	// Printf logs a formatted message.
	Printf(format string, v ...interface{})

	// Event emits a structured event.
	Event(event Event)

	// WithFields returns a new Observer that attaches the given fields
	// to every event it emits.
	WithFields(fields map[string]string) Observer
}

// Event represents a structured bootstrap event.
type Event struct {
	Type      EventType
	Phase     string
	Host      string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType identifies the kind of bootstrap event.
type EventType string

const (
	// EventPhaseStarted indicates a phase has started executing.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseSucceeded indicates a phase completed successfully.
	EventPhaseSucceeded EventType = "phase.succeeded"
	// EventPhaseFailed indicates a phase failed.
	EventPhaseFailed EventType = "phase.failed"
	// EventPhaseSkipped indicates a phase was carried over from a prior run.
	EventPhaseSkipped EventType = "phase.skipped"

	// EventCommandDispatched indicates a command was sent to a host.
	EventCommandDispatched EventType = "command.dispatched"
	// EventCommandCompleted indicates a command result was collected.
	EventCommandCompleted EventType = "command.completed"
	// EventCommandRetrying indicates a connectivity retry is scheduled.
	EventCommandRetrying EventType = "command.retrying"

	// EventProbeWaiting indicates a readiness gate is polling.
	EventProbeWaiting EventType = "probe.waiting"
	// EventProbeReady indicates a readiness gate reported ready.
	EventProbeReady EventType = "probe.ready"
	// EventProbeTimedOut indicates a readiness gate gave up.
	EventProbeTimedOut EventType = "probe.timedout"

	// EventCredentialMinted indicates the join credential was created.
	// The credential value itself is never part of the event.
	EventCredentialMinted EventType = "credential.minted"
)

// ConsoleObserver implements Observer on the standard log package.
type ConsoleObserver struct {
	contextFields map[string]string
}

// NewConsoleObserver creates a console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{contextFields: make(map[string]string)}
}

// Printf implements Observer.
func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Fields == nil {
		event.Fields = make(map[string]string)
	}
	for k, v := range o.contextFields {
		if _, exists := event.Fields[k]; !exists {
			event.Fields[k] = v
		}
	}
	log.Print(o.formatEvent(event))
}

// WithFields implements Observer.
func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	merged := make(map[string]string, len(o.contextFields)+len(fields))
	for k, v := range o.contextFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &ConsoleObserver{contextFields: merged}
}

func (o *ConsoleObserver) formatEvent(event Event) string {
	var parts []string
	parts = append(parts, string(event.Type))
	if event.Phase != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Phase))
	}
	if event.Host != "" {
		parts = append(parts, fmt.Sprintf("host=%s", event.Host))
	}
	if event.Message != "" {
		parts = append(parts, event.Message)
	}
	if len(event.Fields) > 0 {
		var fieldParts []string
		for k, v := range event.Fields {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, v))
		}
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(fieldParts, ", ")))
	}
	return strings.Join(parts, " ")
}

// NopObserver discards everything. Useful in tests.
type NopObserver struct{}

// Printf implements Observer.
func (NopObserver) Printf(string, ...interface{}) {}

// Event implements Observer.
func (NopObserver) Event(Event) {}

// WithFields implements Observer.
func (n NopObserver) WithFields(map[string]string) Observer { return n }

package session

// Topic prefixes for terminal events. The session id is appended so
// subscribers can filter on a single terminal.
const (
	dataTopicPrefix = "pty://data/"
	exitTopicPrefix = "pty://exit/"
)

// DataTopic returns the event topic carrying terminal output for a session.
func DataTopic(sessionID string) string {
	return dataTopicPrefix + sessionID
}

// ExitTopic returns the event topic signalling that a session's process has
// exited.
func ExitTopic(sessionID string) string {
	return exitTopicPrefix + sessionID
}

// Event is a terminal lifecycle notification. Data events carry decoded
// output; exit events carry the process exit code.
type Event struct {
	Topic     string `json:"topic"`
	SessionID string `json:"session_id"`
	AgentID   string `json:"agent_id"`
	Data      string `json:"data,omitempty"`
	ExitCode  int    `json:"exit_code,omitempty"`
}

// Sink receives session events. Implementations must not block: the registry
// publishes from per-session reader goroutines and a slow sink would stall
// terminal output. Delivery failures are the sink's problem, not the
// registry's.
type Sink interface {
	Publish(event Event)
}

// noopSink discards all events.
type noopSink struct{}

func (noopSink) Publish(Event) {}

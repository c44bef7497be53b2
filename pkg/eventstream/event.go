package eventstream

import (
	"os"
	"time"

	"github.com/papercomputeco/rtcheck/pkg/realtime"
	"github.com/papercomputeco/rtcheck/pkg/utils"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeCheckCompleted is emitted once a check finishes, whatever its outcome.
	EventTypeCheckCompleted = "rtcheck.check.completed"
)

// CheckCompletedEvent is a transport-neutral event payload for a finished check.
type CheckCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Target        CheckTarget `json:"target"`
	Result        CheckResult `json:"result"`
}

// EventSource identifies where the check ran.
type EventSource struct {
	Project string `json:"project,omitempty"`
	Host    string `json:"host,omitempty"`
	Version string `json:"version"`
}

// CheckTarget describes what was checked. The proxy URL is not recorded
// since it may carry credentials.
type CheckTarget struct {
	URL       string `json:"url"`
	Model     string `json:"model"`
	ViaProxy  bool   `json:"via_proxy"`
	Insecure  bool   `json:"insecure,omitempty"`
	KeySource string `json:"key_source,omitempty"`
}

// CheckResult captures the outcome and timings of the check.
type CheckResult struct {
	Outcome            string    `json:"outcome"`
	Transcript         string    `json:"transcript,omitempty"`
	Fragments          int       `json:"fragments"`
	EventsReceived     int       `json:"events_received"`
	ResponseStatus     string    `json:"response_status,omitempty"`
	ErrorType          string    `json:"error_type,omitempty"`
	ErrorCode          string    `json:"error_code,omitempty"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	CompletedAt        time.Time `json:"completed_at"`
	DurationMs         int64     `json:"duration_ms"`
	TimeToFirstDeltaMs int64     `json:"time_to_first_delta_ms,omitempty"`
}

// NewCheckCompletedEvent builds the event for a finished check.
func NewCheckCompletedEvent(target CheckTarget, res *realtime.Result) *CheckCompletedEvent {
	host, _ := os.Hostname()

	event := &CheckCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeCheckCompleted,
		EventID:       realtime.NewEventID(),
		EmittedAt:     time.Now().UTC(),
		Source: EventSource{
			Host:    host,
			Version: utils.Version,
		},
		Target: target,
	}

	if res == nil {
		return event
	}

	event.Result = CheckResult{
		Outcome:            string(res.Outcome),
		Transcript:         res.Transcript,
		Fragments:          res.Fragments,
		EventsReceived:     res.EventsReceived,
		ResponseStatus:     res.ResponseStatus,
		StartedAt:          res.StartedAt,
		CompletedAt:        res.FinishedAt,
		DurationMs:         res.Duration().Milliseconds(),
		TimeToFirstDeltaMs: res.TimeToFirstDelta.Milliseconds(),
	}

	if res.ServerError != nil {
		event.Result.ErrorType = res.ServerError.Detail.Type
		event.Result.ErrorCode = res.ServerError.Detail.Code
		event.Result.ErrorMessage = res.ServerError.Detail.Message
	}

	return event
}

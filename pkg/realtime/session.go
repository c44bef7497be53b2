package realtime

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/rtcheck/pkg/utils"
)

// Outcome is how a check ended.
type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeServerError     Outcome = "server_error"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeConnectionError Outcome = "connection_error"
)

// Stream is the bidirectional event channel a Session drives. *Client
// implements it.
type Stream interface {
	Send(ctx context.Context, ev ClientEvent) error
	Recv(ctx context.Context) (*ServerEvent, error)
}

// ProgressReporter observes session progress. Every method is called from
// the goroutine running Session.Run.
type ProgressReporter interface {
	SessionUpdateSent()
	ResponseRequested()
	SessionUpdated()
	TextDelta(delta string)
	Completed(transcript string)
	ServerError(ev *ServerEvent)
}

// NopReporter discards all progress.
type NopReporter struct{}

func (NopReporter) SessionUpdateSent() {}
func (NopReporter) ResponseRequested() {}
func (NopReporter) SessionUpdated() {}
func (NopReporter) TextDelta(string) {}
func (NopReporter) Completed(string) {}
func (NopReporter) ServerError(*ServerEvent) {}

// ServerError is the error returned when the server sends an "error" event.
type ServerError struct {
	Detail ErrorDetail
	Raw    string
}

func (e *ServerError) Error() string {
	parts := []string{"server error"}
	if e.Detail.Type != "" {
		parts = append(parts, e.Detail.Type)
	}
	if e.Detail.Message != "" {
		parts = append(parts, e.Detail.Message)
	}
	msg := strings.Join(parts, ": ")
	if e.Detail.Code != "" {
		msg += " (" + e.Detail.Code + ")"
	}
	return msg
}

// Transcript accumulates text fragments in arrival order.
type Transcript struct {
	fragments []string
}

// Append adds a fragment. Empty fragments are kept so the count reflects the
// number of delta events.
func (t *Transcript) Append(fragment string) {
	t.fragments = append(t.fragments, fragment)
}

// Len returns the number of fragments.
func (t *Transcript) Len() int {
	return len(t.fragments)
}

// String concatenates the fragments with no separator.
func (t *Transcript) String() string {
	return strings.Join(t.fragments, "")
}

// Result summarizes a finished check.
type Result struct {
	Outcome          Outcome
	Transcript       string
	Fragments        int
	EventsReceived   int
	ResponseStatus   string
	ServerError      *ServerError
	StartedAt        time.Time
	FinishedAt       time.Time
	TimeToFirstDelta time.Duration
}

// Duration is the wall time between the first send and the end of the loop.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Session runs one check over a Stream: configure the session, request a
// response, then read events until completion or error.
type Session struct {
	SessionInstructions  string
	ResponseInstructions string

	Reporter ProgressReporter
	Logger   *slog.Logger

	now func() time.Time
}

// NewSession returns a Session with a no-op reporter and a discarding logger.
func NewSession(sessionInstructions, responseInstructions string) *Session {
	return &Session{
		SessionInstructions:  sessionInstructions,
		ResponseInstructions: responseInstructions,
		Reporter:             NopReporter{},
		Logger:               slog.New(slog.DiscardHandler),
		now:                  time.Now,
	}
}

// Run drives the check. The returned Result is never nil. The error is nil
// only for OutcomeCompleted; a server error event yields a *ServerError and
// cancellation yields ctx.Err().
func (s *Session) Run(ctx context.Context, stream Stream) (*Result, error) {
	s.defaults()

	res := &Result{StartedAt: s.now()}
	transcript := &Transcript{}

	finish := func(outcome Outcome, err error) (*Result, error) {
		res.Outcome = outcome
		res.Transcript = transcript.String()
		res.Fragments = transcript.Len()
		res.FinishedAt = s.now()
		return res, err
	}

	failed := func(err error) (*Result, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return finish(OutcomeCancelled, ctxErr)
		}
		return finish(OutcomeConnectionError, err)
	}

	if err := stream.Send(ctx, NewSessionUpdate(s.SessionInstructions)); err != nil {
		return failed(err)
	}
	s.Reporter.SessionUpdateSent()

	if err := stream.Send(ctx, NewResponseCreate(s.ResponseInstructions)); err != nil {
		return failed(err)
	}
	s.Reporter.ResponseRequested()

	for {
		ev, err := stream.Recv(ctx)
		if err != nil {
			if IsClosed(err) {
				s.Logger.Debug("server closed the connection before completion")
			}
			return failed(err)
		}
		res.EventsReceived++

		s.Logger.Debug("received server event",
			"type", ev.Type,
			"frame", utils.Truncate(string(ev.Raw), 200),
		)

		switch {
		case ev.Type == EventSessionCreated:
			s.Logger.Debug("session created, waiting for the update ack")

		case ev.Type == EventSessionUpdated:
			s.Reporter.SessionUpdated()

		case ev.IsTextDelta():
			if transcript.Len() == 0 {
				res.TimeToFirstDelta = s.now().Sub(res.StartedAt)
			}
			transcript.Append(ev.Delta)
			s.Reporter.TextDelta(ev.Delta)

		case ev.IsCompletion():
			if ev.Response != nil {
				res.ResponseStatus = ev.Response.Status
			}
			s.Reporter.Completed(transcript.String())
			return finish(OutcomeCompleted, nil)

		case ev.Type == EventError:
			serr := &ServerError{Raw: string(ev.Raw)}
			if ev.Error != nil {
				serr.Detail = *ev.Error
			}
			res.ServerError = serr
			s.Reporter.ServerError(ev)
			return finish(OutcomeServerError, serr)
		}
	}
}

func (s *Session) defaults() {
	if s.Reporter == nil {
		s.Reporter = NopReporter{}
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
}

package runcmder

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/papercomputeco/rtcheck/pkg/cliui"
	"github.com/papercomputeco/rtcheck/pkg/realtime"
)

// consoleReporter prints session progress as plain lines. Deltas are only
// collected; the transcript is printed once the response completes.
type consoleReporter struct {
	w      io.Writer
	render bool
	logger *slog.Logger
}

var _ realtime.ProgressReporter = (*consoleReporter)(nil)

func (r *consoleReporter) SessionUpdateSent() {
	fmt.Fprintln(r.w, "Session update sent.")
}

func (r *consoleReporter) ResponseRequested() {
	fmt.Fprintln(r.w, "Prompt request sent, awaiting stream ...")
}

func (r *consoleReporter) SessionUpdated() {
	fmt.Fprintln(r.w, "Session updated ack received.")
}

func (r *consoleReporter) TextDelta(delta string) {
	r.logger.Debug("text delta", "bytes", len(delta))
}

func (r *consoleReporter) Completed(transcript string) {
	fmt.Fprintln(r.w, "Response completed:")

	if r.render && strings.TrimSpace(transcript) != "" {
		rendered, err := cliui.RenderMarkdown(transcript)
		if err != nil {
			r.logger.Warn("rendering markdown", "error", err)
		}
		fmt.Fprint(r.w, rendered)
		return
	}

	fmt.Fprintln(r.w, transcript)
}

func (r *consoleReporter) ServerError(ev *realtime.ServerEvent) {
	fmt.Fprintln(r.w, "Server error:", string(ev.Raw))
}

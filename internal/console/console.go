// Package console runs an interview in a terminal. Typed lines stand in
// for speech, and the console acts as the audio bridge: a question is
// "played" by printing it.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/session"
	"github.com/abhisek/intervue/internal/turn"
	"github.com/abhisek/intervue/internal/ui/theme"
)

// Commands typed at the answer prompt.
const (
	CmdSkip  = "/skip"
	CmdEnd   = "/end"
	CmdRetry = "/retry"
	CmdHelp  = "/help"
)

// Service is the part of the application API the console drives.
type Service interface {
	StartSession(ctx context.Context, plan session.Plan) (session.Handle, error)
	SubmitAnswer(ctx context.Context, id string, a turn.Answer) error
	Retry(ctx context.Context, id string) error
	EndSession(ctx context.Context, id string) (*interview.ScoreReport, error)
	Events(ctx context.Context, id string) (<-chan turn.Event, func(), error)
	Audio(id string) (session.AudioInput, error)
	Wait(ctx context.Context, id string) (*interview.ScoreReport, error)
}

var _ Service = (*session.Service)(nil)

// Console is a line-oriented interview driver.
type Console struct {
	svc    Service
	in     io.Reader
	out    io.Writer
	styled bool
	logger *slog.Logger
}

// New creates a Console. styled enables colors and should be set only
// when out is a terminal.
func New(svc Service, in io.Reader, out io.Writer, styled bool, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{svc: svc, in: in, out: out, styled: styled, logger: logger}
}

// Run starts an interview from plan and drives it until it is scored.
// End of input ends the session early. The session id is returned even
// when scoring fails, so the session can be scored again later.
func (c *Console) Run(ctx context.Context, plan session.Plan) (*interview.ScoreReport, string, error) {
	h, err := c.svc.StartSession(ctx, plan)
	if err != nil {
		return nil, "", err
	}
	id := h.SessionID
	events, cancel, err := c.svc.Events(ctx, id)
	if err != nil {
		return nil, id, err
	}
	defer cancel()

	c.printf("%s\n", c.style(theme.Hint, fmt.Sprintf(
		"Session %s. Type your answer and press enter. %s skips, %s finishes early.", id, CmdSkip, CmdEnd)))

	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go readLines(c.in, lines, stop)

	for {
		select {
		case <-ctx.Done():
			return nil, id, ctx.Err()

		case ev, ok := <-events:
			if !ok {
				rep, err := c.svc.Wait(ctx, id)
				return rep, id, err
			}
			if done := c.onEvent(id, ev); done {
				rep, err := c.svc.Wait(ctx, id)
				return rep, id, err
			}

		case line, ok := <-lines:
			if !ok {
				c.printf("\n")
				rep, err := c.end(ctx, id)
				return rep, id, err
			}
			if rep, done := c.onLine(ctx, id, line); done {
				return rep, id, nil
			}
		}
	}
}

// onEvent renders ev and reports whether the session is scored.
func (c *Console) onEvent(id string, ev turn.Event) bool {
	switch ev.Kind {
	case turn.EventQuestion:
		c.printf("\n%s\n", c.style(theme.Heading, fmt.Sprintf("Question %d", ev.Index)))
		c.printf("%s\n", c.style(theme.Question, ev.Text))
		if in, err := c.svc.Audio(id); err == nil {
			in.PlaybackFinished()
		}
	case turn.EventStartCapture:
		c.printf("%s ", c.style(theme.Subtitle, ">"))
	case turn.EventError:
		c.printf("\n%s\n", c.style(theme.Incorrect, "error: "+ev.Error))
		if ev.Retryable {
			c.printf("%s\n", c.style(theme.Hint, "type "+CmdRetry+" to try again"))
		}
	case turn.EventTransition:
		c.logger.Debug("transition", "from", ev.From, "to", ev.To, "reason", ev.Reason)
		if ev.To == turn.StateComplete {
			c.printf("\n%s\n", c.style(theme.Hint, completionText(ev.Reason)))
		}
	case session.EventAnalysisFailed:
		c.printf("%s\n", c.style(theme.Incorrect, "scoring failed: "+ev.Error))
		c.printf("%s\n", c.style(theme.Hint, "type "+CmdEnd+" to score again"))
	case session.EventReport:
		return true
	}
	return false
}

// onLine handles one typed line. It returns the report once the session
// has been scored.
func (c *Console) onLine(ctx context.Context, id, line string) (*interview.ScoreReport, bool) {
	line = strings.TrimSpace(line)
	var err error
	switch strings.ToLower(line) {
	case "":
		return nil, false
	case CmdHelp:
		c.printf("%s\n", c.style(theme.Hint, fmt.Sprintf("%s skip question, %s finish and score, %s retry after an error", CmdSkip, CmdEnd, CmdRetry)))
		return nil, false
	case CmdEnd:
		rep, err := c.end(ctx, id)
		return rep, err == nil
	case CmdRetry:
		err = c.svc.Retry(ctx, id)
	case CmdSkip:
		err = c.svc.SubmitAnswer(ctx, id, turn.Answer{Skip: true})
	default:
		err = c.svc.SubmitAnswer(ctx, id, turn.Answer{Text: line})
	}
	if err != nil {
		c.report(err)
	}
	return nil, false
}

func (c *Console) end(ctx context.Context, id string) (*interview.ScoreReport, error) {
	c.printf("%s\n", c.style(theme.Hint, "Scoring your interview..."))
	rep, err := c.svc.EndSession(ctx, id)
	if err != nil {
		c.report(err)
		return nil, err
	}
	return rep, nil
}

func (c *Console) report(err error) {
	switch {
	case interview.IsStateError(err):
		c.printf("%s\n", c.style(theme.Hint, "not now: "+err.Error()))
	case errors.Is(err, turn.ErrClosed):
		c.printf("%s\n", c.style(theme.Hint, "the interview has finished"))
	default:
		c.printf("%s\n", c.style(theme.Incorrect, "error: "+err.Error()))
	}
}

func completionText(r turn.Reason) string {
	switch r {
	case turn.ReasonTimeExpired:
		return "Time is up."
	case turn.ReasonEnded:
		return "Interview ended."
	default:
		return "That was the last question."
	}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) style(s interface{ Render(...string) string }, text string) string {
	if !c.styled {
		return text
	}
	return s.Render(text)
}

func readLines(r io.Reader, out chan<- string, stop <-chan struct{}) {
	defer close(out)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		select {
		case out <- sc.Text():
		case <-stop:
			return
		}
	}
}

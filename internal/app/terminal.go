package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rbright/viva/internal/fsm"
	"github.com/rbright/viva/internal/ipc"
	"github.com/rbright/viva/internal/viva"
)

// lineReader turns stdin into a channel so prompts can give up on ctx.
type lineReader struct {
	lines chan string
}

func newLineReader(in io.Reader) *lineReader {
	l := &lineReader{lines: make(chan string)}
	if in == nil {
		close(l.lines)
		return l
	}
	go func() {
		defer close(l.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			l.lines <- scanner.Text()
		}
	}()
	return l
}

// Next returns the next line; ok is false on EOF or cancellation.
func (l *lineReader) Next(ctx context.Context) (string, bool) {
	select {
	case line, ok := <-l.lines:
		return line, ok
	case <-ctx.Done():
		return "", false
	}
}

// commandFor maps a terminal line to a control request. An empty line
// toggles recording; slash commands drive the session; anything else is a
// typed answer.
func commandFor(line string) (ipc.Request, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return ipc.Request{Command: "record"}, true
	}
	if !strings.HasPrefix(line, "/") {
		return ipc.Request{Command: "answer", Text: line}, true
	}

	switch strings.ToLower(strings.TrimPrefix(line, "/")) {
	case "r", "record":
		return ipc.Request{Command: "record"}, true
	case "s", "skip":
		return ipc.Request{Command: "skip"}, true
	case "q", "quit":
		return ipc.Request{Command: "quit"}, true
	case "b", "begin":
		return ipc.Request{Command: "begin"}, true
	case "status":
		return ipc.Request{Command: "status"}, true
	default:
		return ipc.Request{}, false
	}
}

const terminalHelp = "Enter: record/stop · type text: answer · /skip · /begin · /status · /quit"

// readCommands forwards terminal lines to the controller until ctx ends or
// stdin closes.
func (r Runner) readCommands(ctx context.Context, in *lineReader, handler ipc.Handler, out *terminal) {
	for {
		line, ok := in.Next(ctx)
		if !ok {
			return
		}
		req, known := commandFor(line)
		if !known {
			out.Printf("unknown command %q (%s)", line, terminalHelp)
			continue
		}
		resp := handler.Handle(ctx, req)
		switch {
		case !resp.OK:
			out.Printf("! %s", resp.Error)
		case req.Command == "status":
			out.Printf("%s", resp.Message)
		}
	}
}

// terminal prints snapshot changes. It is the controller's Observer, so it
// only formats and writes.
type terminal struct {
	mu     sync.Mutex
	out    io.Writer
	last   viva.Snapshot
	notify func(text string)
	now    func() time.Time
}

func newTerminal(out io.Writer, notify func(string)) *terminal {
	return &terminal{out: out, notify: notify, now: time.Now}
}

func (t *terminal) Printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format+"\n", args...)
}

func (t *terminal) Observe(s viva.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.last
	t.last = s

	if s.Stage != prev.Stage {
		fmt.Fprintf(t.out, "== %s ==\n", s.Stage)
	}
	if s.Error != "" && s.Error != prev.Error {
		fmt.Fprintf(t.out, "! %s\n", s.Error)
	}
	if s.HostMessage != "" && s.HostMessage != prev.HostMessage {
		fmt.Fprintf(t.out, "host: %s\n", s.HostMessage)
	}
	if s.Question != "" && (s.Question != prev.Question || s.QuestionNumber != prev.QuestionNumber) {
		fmt.Fprintf(t.out, "Q%d/%d [%s] %s\n", s.QuestionNumber, s.Planned, s.Level, s.Question)
		if t.notify != nil {
			t.notify(fmt.Sprintf("Question %d: %s", s.QuestionNumber, s.Question))
		}
	}
	if s.MicUnavailable && !prev.MicUnavailable {
		fmt.Fprintln(t.out, "microphone unavailable; type your answers instead")
	}
	if s.Recording != prev.Recording {
		if s.Recording {
			fmt.Fprintln(t.out, "● recording, press Enter to stop")
		} else {
			fmt.Fprintln(t.out, "○ recording stopped")
		}
	}
	if s.Busy && !prev.Busy {
		fmt.Fprintln(t.out, "… checking answer")
	}
	if s.LastClass != "" && s.Answered != prev.Answered {
		fmt.Fprintf(t.out, "[%s] score %d: %s\n", s.LastClass, s.LastScore, s.Feedback)
	}
	if !s.WaitUntil.IsZero() && !s.WaitUntil.Equal(prev.WaitUntil) && s.Stage == fsm.StageWaiting {
		wait := s.WaitUntil.Sub(t.now()).Round(time.Second)
		if wait < 0 {
			wait = 0
		}
		fmt.Fprintf(t.out, "next question in %s (/skip to continue)\n", wait)
	}
	if s.Tally != nil && prev.Tally == nil {
		fmt.Fprintf(t.out, "result: %d/%d correct, %d partial, %d wrong (%d%%)\n",
			s.Tally.Correct, s.Tally.Total, s.Tally.Partial, s.Tally.Wrong, s.Tally.Percent)
	}
}

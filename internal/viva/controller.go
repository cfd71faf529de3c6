// Package viva runs one interview session: setup, a spoken welcome,
// question and answer cycles, and a scored summary.
package viva

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/viva/internal/api"
	"github.com/rbright/viva/internal/fsm"
	"github.com/rbright/viva/internal/host"
	"github.com/rbright/viva/internal/ipc"
	"github.com/rbright/viva/internal/media"
	"github.com/rbright/viva/internal/metrics"
	"github.com/rbright/viva/internal/model"
	"github.com/rbright/viva/internal/pipeline"
)

// Generator produces questions for a source.
type Generator interface {
	GenerateQuestions(ctx context.Context, src model.Source, count int, lang model.Language) ([]model.Question, error)
}

// Evaluator scores one answer.
type Evaluator interface {
	Evaluate(ctx context.Context, req api.EvaluateRequest) (model.Evaluation, error)
}

// RecordStore persists a finished session.
type RecordStore interface {
	SaveRecord(ctx context.Context, record model.SessionRecord, video *model.Blob) (api.SaveResult, error)
}

// VoiceInput records and transcribes spoken answers.
type VoiceInput interface {
	Start(ctx context.Context) error
	StopAndTranscribe(ctx context.Context) (pipeline.Result, error)
	Cancel()
	Recording() bool
}

// VideoRecorder captures the candidate for the whole session.
type VideoRecorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (model.Blob, error)
	Cancel()
}

// Host is the interviewer's voice.
type Host interface {
	Say(text string, lang model.Language)
	Silence()
	Cue(kind host.Cue)
}

// Config holds per-session settings.
type Config struct {
	Language          model.Language
	QuestionCount     int
	GenerationRetries int
	Timing            Timing
	Wait              WaitPolicy
	Video             bool
}

// Deps are the collaborators a Controller drives. Records, Voice, Video,
// Host and Observer are optional.
type Deps struct {
	Questions Generator
	Evaluator Evaluator
	Records   RecordStore
	Voice     VoiceInput
	Video     VideoRecorder
	Host      Host
	Observer  Observer
	Metrics   *metrics.Metrics
	Clock     Clock
	Logger    *slog.Logger
	NewID     func() string
}

// Result is what one Run leaves behind.
type Result struct {
	State      SessionState
	Record     model.SessionRecord
	RecordID   int
	Saved      bool
	PersistErr error
	Err        error
}

// Controller runs sessions one at a time. All session state lives on the
// Run goroutine; other goroutines reach it through Handle and Snapshot.
type Controller struct {
	cfg  Config
	deps Deps

	running atomic.Bool

	mu     sync.RWMutex
	snap   Snapshot
	events chan any
	done   chan struct{}
}

func NewController(cfg Config, deps Deps) *Controller {
	if cfg.Language == "" {
		cfg.Language = model.LanguageHindi
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = 10
	}
	if cfg.GenerationRetries < 0 {
		cfg.GenerationRetries = 0
	}
	if cfg.Wait == (WaitPolicy{}) {
		cfg.Wait = DefaultWaitPolicy()
	}
	cfg.Timing = cfg.Timing.withDefaults()
	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Controller{
		cfg:  cfg,
		deps: deps,
		snap: Snapshot{Stage: fsm.StageSetup},
	}
}

// Snapshot returns the most recently published view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Running reports whether a session loop is active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Run executes one session until it reaches summary and persistence
// settles, is quit, or ctx is cancelled. Every device handle and timer is
// released before Run returns.
func (c *Controller) Run(ctx context.Context, setup *Setup) Result {
	if setup == nil || !setup.CanStart() {
		return Result{Err: ErrSetupIncomplete}
	}
	if !c.running.CompareAndSwap(false, true) {
		return Result{Err: ErrSessionActive}
	}
	defer c.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	identity, _ := setup.Identity()
	r := &run{
		c:      c,
		ctx:    runCtx,
		lines:  host.LinesFor(c.cfg.Language),
		events: make(chan any, 32),
		done:   make(chan struct{}),
		timers: make(map[timerKind]Timer),
		tokens: make(map[timerKind]uint64),
		state:  NewSessionState(c.deps.NewID(), identity, setup.Source(), c.cfg.Language, c.cfg.QuestionCount),
	}

	c.mu.Lock()
	c.events = r.events
	c.done = r.done
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.events = nil
		c.done = nil
		c.mu.Unlock()
		close(r.done)
	}()

	return r.run()
}

// Handle serves one operator command against the running session.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	name := strings.ToLower(strings.TrimSpace(req.Command))
	switch name {
	case "status":
		snap := c.Snapshot()
		return ipc.Response{OK: true, State: string(snap.Stage), Message: Describe(snap)}
	case "begin", "record", "answer", "skip", "quit":
	default:
		return ipc.Response{OK: false, State: string(c.Snapshot().Stage), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}

	c.mu.RLock()
	events, done := c.events, c.done
	c.mu.RUnlock()
	if events == nil {
		return c.noSession()
	}

	cmd := command{name: name, text: req.Text, reply: make(chan ipc.Response, 1)}
	select {
	case events <- cmd:
	case <-done:
		return c.noSession()
	case <-ctx.Done():
		return ipc.Response{OK: false, State: string(c.Snapshot().Stage), Error: ctx.Err().Error()}
	}

	select {
	case resp := <-cmd.reply:
		return resp
	case <-done:
		// The loop replies before it exits, so a final command still has
		// its answer waiting.
		select {
		case resp := <-cmd.reply:
			return resp
		default:
			return c.noSession()
		}
	case <-ctx.Done():
		return ipc.Response{OK: false, State: string(c.Snapshot().Stage), Error: ctx.Err().Error()}
	}
}

func (c *Controller) noSession() ipc.Response {
	return ipc.Response{OK: false, State: string(c.Snapshot().Stage), Error: ErrNoSession.Error()}
}

func (c *Controller) publish(s SessionState) {
	snap := SnapshotOf(s)
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	if c.deps.Observer != nil {
		c.deps.Observer.Observe(snap)
	}
}

// Describe renders a one-line status for a snapshot.
func Describe(s Snapshot) string {
	switch s.Stage {
	case fsm.StagePlaying, fsm.StageWaiting:
		if s.Awaiting || s.Question == "" {
			return fmt.Sprintf("%s: question %d/%d being prepared", s.Stage, s.QuestionNumber, s.Planned)
		}
		return fmt.Sprintf("%s: question %d/%d: %s", s.Stage, s.QuestionNumber, s.Planned, s.Question)
	case fsm.StageSummary:
		if s.Tally != nil {
			return fmt.Sprintf("summary: %d/%d correct (%d%%)", s.Tally.Correct, s.Tally.Total, s.Tally.Percent)
		}
		return "summary"
	case fsm.StageWelcome:
		return fmt.Sprintf("welcome: %d question(s) ready", s.Available)
	default:
		if s.Error != "" {
			return "setup: " + s.Error
		}
		return "setup"
	}
}

type timerKind int

const (
	timerWelcome timerKind = iota + 1
	timerPoll
	timerBound
	timerRetry
	timerWait
	timerAnswer
)

func (k timerKind) String() string {
	switch k {
	case timerWelcome:
		return "welcome"
	case timerPoll:
		return "poll"
	case timerBound:
		return "generation_bound"
	case timerRetry:
		return "generation_retry"
	case timerWait:
		return "wait"
	case timerAnswer:
		return "answer_timeout"
	default:
		return "unknown"
	}
}

type (
	command struct {
		name  string
		text  string
		reply chan ipc.Response
	}
	timerFired struct {
		kind  timerKind
		token uint64
	}
	generated struct {
		attempt   int
		questions []model.Question
		err       error
	}
	micOpened struct {
		token uint64
		err   error
	}
	transcribed struct {
		token  uint64
		result pipeline.Result
		err    error
	}
	evaluated struct {
		token    uint64
		question model.Question
		answer   string
		mode     model.AnswerMode
		eval     model.Evaluation
		err      error
	}
	persisted struct {
		result api.SaveResult
		err    error
	}
)

// run is the loop-owned state of one session.
type run struct {
	c     *Controller
	ctx   context.Context
	lines host.Lines

	events chan any
	done   chan struct{}

	state       SessionState
	timers      map[timerKind]Timer
	tokens      map[timerKind]uint64
	answerToken uint64
	// roundStart is the first attempt of the current generation request.
	roundStart  int
	// micReply holds the record command waiting on the microphone.
	micReply    chan ipc.Response
	video       bool
	result      Result
	exit        bool
}

func (r *run) run() Result {
	deps := r.c.deps
	if deps.Voice != nil {
		defer deps.Voice.Cancel()
	} else {
		r.state.MicUnavailable = true
	}
	defer r.cancelTimers()
	defer r.silence()

	next, err := Start(r.state, deps.Clock.Now())
	if err != nil {
		return Result{State: r.state, Err: err}
	}
	r.state = next
	deps.Metrics.SessionStarted()

	if r.c.cfg.Video && deps.Video != nil {
		if err := deps.Video.Start(r.ctx); err != nil {
			r.logWarn("video capture unavailable", err)
		} else {
			r.video = true
		}
		defer deps.Video.Cancel()
	}

	r.roundStart = r.state.GenerationAttempts
	r.generate()
	r.schedule(timerWelcome, r.c.cfg.Timing.WelcomeDelay)
	r.schedule(timerBound, r.c.cfg.Timing.GenerationBound)
	r.speak(r.lines.Welcome(r.state.Identity.Employee.Name, r.state.Source.Name), model.MoodHappy)
	r.publish()

	for !r.exit {
		select {
		case <-r.ctx.Done():
			r.cancelled(r.ctx.Err())
		case ev := <-r.events:
			r.dispatch(ev)
		}
	}

	r.settleMicOpen(r.reject(ErrNoSession))
	r.result.State = r.state
	return r.result
}

func (r *run) dispatch(ev any) {
	switch ev := ev.(type) {
	case command:
		if ev.name == "record" {
			if resp, settled := r.toggleRecording(ev.reply); settled {
				ev.reply <- resp
			}
			return
		}
		ev.reply <- r.command(ev)
	case micOpened:
		r.onMicOpened(ev)
	case timerFired:
		r.onTimer(ev)
	case generated:
		r.onGenerated(ev)
	case transcribed:
		r.onTranscribed(ev)
	case evaluated:
		r.onEvaluated(ev)
	case persisted:
		r.onPersisted(ev)
	}
}

// post delivers an async completion to the loop, or drops it once the
// session is over.
func (r *run) post(ev any) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *run) schedule(kind timerKind, d time.Duration) {
	r.cancelTimer(kind)
	token := r.tokens[kind]
	r.timers[kind] = r.c.deps.Clock.AfterFunc(d, func() {
		r.post(timerFired{kind: kind, token: token})
	})
}

// cancelTimer stops kind and invalidates any callback already in flight.
func (r *run) cancelTimer(kind timerKind) {
	if timer, ok := r.timers[kind]; ok {
		timer.Stop()
		delete(r.timers, kind)
	}
	r.tokens[kind]++
}

func (r *run) cancelTimers() {
	for kind := range r.timers {
		r.cancelTimer(kind)
	}
}

func (r *run) onTimer(ev timerFired) {
	if ev.token != r.tokens[ev.kind] {
		r.logDebug("stale timer ignored", "timer", ev.kind.String())
		return
	}
	delete(r.timers, ev.kind)

	switch ev.kind {
	case timerWelcome, timerPoll:
		if r.state.Stage != fsm.StageWelcome {
			return
		}
		if len(r.state.Questions) > 0 {
			r.begin()
			return
		}
		r.schedule(timerPoll, r.c.cfg.Timing.PollInterval)
	case timerBound:
		switch {
		case r.state.Stage == fsm.StageWelcome && len(r.state.Questions) == 0:
			r.noQuestions()
		case r.state.Stage == fsm.StagePlaying && r.state.Awaiting:
			r.state.Generation = GenerationFailed
			r.present()
		}
	case timerRetry:
		if r.state.Generation != GenerationRunning {
			return
		}
		r.state.GenerationAttempts++
		r.generate()
	case timerWait:
		if r.state.Stage == fsm.StageWaiting {
			r.advance()
		}
	case timerAnswer:
		if r.state.Stage == fsm.StagePlaying && !r.state.Busy && !r.state.Awaiting {
			r.logDebug("answer timeout", "question", r.state.CurrentIndex+1)
			r.abandon()
			r.advance()
		}
	}
}

func (r *run) generate() {
	attempt := r.state.GenerationAttempts
	src := r.state.Source
	count := r.state.Planned - len(r.state.Questions)
	lang := r.state.Language
	generator := r.c.deps.Questions
	go func() {
		questions, err := generator.GenerateQuestions(r.ctx, src, count, lang)
		r.post(generated{attempt: attempt, questions: questions, err: err})
	}()
}

func (r *run) onGenerated(ev generated) {
	if ev.attempt != r.state.GenerationAttempts || r.state.Generation != GenerationRunning {
		return
	}
	if ev.err != nil {
		r.logWarn("question generation failed", ev.err, "attempt", ev.attempt)
	}

	if len(ev.questions) > 0 {
		r.state = AddQuestions(r.state, ev.questions)
		r.state.Generation = GenerationDone
		r.cancelTimer(timerBound)
		r.logDebug("questions ready", "count", len(r.state.Questions), "attempt", ev.attempt)
		if r.state.Stage == fsm.StagePlaying && r.state.Awaiting {
			r.present()
			return
		}
		r.publish()
		return
	}

	if ev.attempt-r.roundStart < r.c.cfg.GenerationRetries {
		r.schedule(timerRetry, r.c.cfg.Timing.PollInterval)
		return
	}

	r.state.Generation = GenerationFailed
	switch {
	case r.state.Stage == fsm.StageWelcome:
		r.noQuestions()
	case r.state.Stage == fsm.StagePlaying && r.state.Awaiting:
		r.present()
	default:
		r.publish()
	}
}

func (r *run) begin() {
	next, err := Begin(r.state)
	if err != nil {
		r.logWarn("cannot begin", err)
		return
	}
	r.state = next
	r.cancelTimer(timerWelcome)
	r.cancelTimer(timerPoll)
	r.present()
}

// present shows the question at the current index, waits for generation
// when it is not there yet, or finishes when nothing is left.
func (r *run) present() {
	if r.state.Exhausted() {
		r.finish()
		return
	}

	q, ok := r.state.Current()
	if !ok {
		r.state.Awaiting = true
		if r.state.Generation == GenerationDone {
			r.requestMore()
		}
		r.speak(r.lines.Preparing(), model.MoodThinking)
		r.publish()
		return
	}

	next, err := Present(r.state)
	if err != nil {
		r.logWarn("cannot present question", err)
		return
	}
	r.state = next
	r.state.Error = ""
	r.state.Feedback = ""
	r.speak(r.lines.Question(r.state.CurrentIndex+1, q.Text), model.MoodNeutral)
	if timeout := r.c.cfg.Timing.AnswerTimeout; timeout > 0 {
		r.schedule(timerAnswer, timeout)
	}
	r.publish()
}

// requestMore asks for the questions a partial batch left out. It gets its
// own retry budget and generation bound.
func (r *run) requestMore() {
	r.state.Generation = GenerationRunning
	r.state.GenerationAttempts++
	r.roundStart = r.state.GenerationAttempts
	r.logDebug("requesting more questions", "have", len(r.state.Questions), "planned", r.state.Planned)
	r.generate()
	r.schedule(timerBound, r.c.cfg.Timing.GenerationBound)
}

func (r *run) command(cmd command) ipc.Response {
	switch cmd.name {
	case "begin":
		return r.beginCommand()
	case "answer":
		return r.typedAnswer(cmd.text)
	case "skip":
		return r.skip()
	case "quit":
		r.abort(r.lines.Cancelled(), "cancelled", false)
		r.result.Err = ErrCancelled
		return r.ok("viva cancelled")
	default:
		return r.reject(fmt.Errorf("unknown command: %s", cmd.name))
	}
}

func (r *run) beginCommand() ipc.Response {
	if r.state.Stage != fsm.StageWelcome {
		return r.reject(fmt.Errorf("cannot begin from stage %s", r.state.Stage))
	}
	if len(r.state.Questions) == 0 {
		return r.reject(errors.New("questions are still being prepared"))
	}
	r.begin()
	return r.ok("viva started")
}

// answerable reports why the current question cannot take an answer.
func (r *run) answerable() error {
	if r.state.Stage != fsm.StagePlaying {
		return fmt.Errorf("cannot answer in stage %s", r.state.Stage)
	}
	if r.state.Awaiting {
		return errors.New("next question is still being prepared")
	}
	if r.state.Busy {
		return ErrBusy
	}
	if r.micReply != nil {
		return errors.New("microphone is still opening")
	}
	return nil
}

// toggleRecording starts or stops the answer recording. Opening the device
// runs off the loop; settled is false while the reply waits on it.
func (r *run) toggleRecording(reply chan ipc.Response) (resp ipc.Response, settled bool) {
	if err := r.answerable(); err != nil {
		return r.reject(err), true
	}
	if r.state.MicUnavailable {
		return r.reject(ErrMicUnavailable), true
	}
	voice := r.c.deps.Voice

	if !r.state.Recording {
		r.silence()
		r.micReply = reply
		token := r.answerToken
		go func() {
			err := voice.Start(r.ctx)
			select {
			case r.events <- micOpened{token: token, err: err}:
			case <-r.done:
				if err == nil {
					voice.Cancel()
				}
			}
		}()
		return ipc.Response{}, false
	}

	r.state.Recording = false
	r.state.Busy = true
	r.answerToken++
	token := r.answerToken
	r.state.HostMessage = r.lines.Checking()
	r.state.Mood = model.MoodThinking
	r.cue(host.CueStopped)
	r.publish()

	go func() {
		result, err := voice.StopAndTranscribe(r.ctx)
		r.post(transcribed{token: token, result: result, err: err})
	}()
	return r.ok("transcribing"), true
}

func (r *run) onMicOpened(ev micOpened) {
	if r.micReply == nil || ev.token != r.answerToken || r.state.Stage != fsm.StagePlaying {
		if ev.err == nil {
			r.c.deps.Voice.Cancel()
		}
		r.settleMicOpen(r.reject(errors.New("question moved on before the microphone opened")))
		return
	}

	if ev.err != nil {
		var deviceErr *media.DeviceError
		if errors.As(ev.err, &deviceErr) {
			r.state.MicUnavailable = true
			r.state.Error = ev.err.Error()
			r.speak(r.lines.MicUnavailable(), model.MoodEncouraging)
			r.publish()
			r.settleMicOpen(r.reject(fmt.Errorf("%w: %v", ErrMicUnavailable, ev.err)))
			return
		}
		r.state.Error = ev.err.Error()
		r.publish()
		r.settleMicOpen(r.reject(ev.err))
		return
	}

	r.state.Recording = true
	r.state.Error = ""
	r.state.HostMessage = r.lines.Listening()
	r.state.Mood = model.MoodListening
	r.cue(host.CueListening)
	r.publish()
	r.settleMicOpen(r.ok("recording"))
}

// settleMicOpen answers a record command still waiting on the device.
func (r *run) settleMicOpen(resp ipc.Response) {
	if r.micReply == nil {
		return
	}
	r.micReply <- resp
	r.micReply = nil
}

func (r *run) onTranscribed(ev transcribed) {
	if ev.token != r.answerToken || r.state.Stage != fsm.StagePlaying {
		return
	}

	switch {
	case errors.Is(ev.err, ErrInaudible):
		r.state.Busy = false
		r.state.Error = ""
		r.speak(r.lines.Inaudible(), model.MoodEncouraging)
		r.publish()
	case ev.err != nil:
		r.logWarn("transcription failed", ev.err)
		r.retry(ev.err)
	default:
		r.logDebug("answer transcribed",
			"bytes_captured", ev.result.BytesCaptured,
			"transcribe_ms", ev.result.TranscribeDelay.Milliseconds(),
		)
		r.evaluate(ev.result.Transcript, model.AnswerVoice)
	}
}

func (r *run) typedAnswer(text string) ipc.Response {
	if err := r.answerable(); err != nil {
		return r.reject(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		err := &api.ValidationError{Field: "answer", Message: "answer text is required"}
		r.state.Error = err.Error()
		r.publish()
		return r.reject(err)
	}

	if r.state.Recording {
		r.c.deps.Voice.Cancel()
		r.state.Recording = false
	}
	r.state.Busy = true
	r.answerToken++
	r.evaluate(text, model.AnswerText)
	return r.ok("answer submitted")
}

// evaluate sends answer for the current question. Busy is already set and
// answerToken identifies this attempt.
func (r *run) evaluate(answer string, mode model.AnswerMode) {
	q, ok := r.state.Current()
	if !ok {
		r.state.Busy = false
		return
	}
	token := r.answerToken
	r.state.HostMessage = r.lines.Checking()
	r.state.Mood = model.MoodThinking
	r.publish()

	req := api.EvaluateRequest{
		Question:       q.Text,
		UserAnswer:     answer,
		ExpectedAnswer: q.ExpectedAnswer,
		Language:       r.state.Language,
	}
	evaluator := r.c.deps.Evaluator
	timeout := r.c.cfg.Timing.EvaluateTimeout
	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, timeout)
		defer cancel()
		eval, err := evaluator.Evaluate(ctx, req)
		r.post(evaluated{token: token, question: q, answer: answer, mode: mode, eval: eval, err: err})
	}()
}

func (r *run) onEvaluated(ev evaluated) {
	if ev.token != r.answerToken || r.state.Stage != fsm.StagePlaying {
		return
	}
	if ev.err != nil {
		r.logWarn("evaluation failed", ev.err)
		r.retry(ev.err)
		return
	}

	record := model.AnswerRecord{
		Question:       ev.question.Text,
		UserAnswer:     ev.answer,
		ExpectedAnswer: ev.question.ExpectedAnswer,
		Score:          ev.eval.Score,
		Classification: ev.eval.Classification,
		Feedback:       ev.eval.Feedback,
		Mode:           ev.mode,
	}
	next, err := RecordAnswer(r.state, record)
	if err != nil {
		r.logWarn("answer not recorded", err)
		r.state.Busy = false
		r.publish()
		return
	}
	r.state = next
	r.state.Busy = false
	r.state.Error = ""
	r.cancelTimer(timerAnswer)
	r.c.deps.Metrics.AnswerRecorded(string(record.Classification), string(record.Mode))

	mood := model.MoodEncouraging
	if record.Classification == model.Correct {
		mood = model.MoodHappy
	}
	r.cue(host.CueFor(record.Classification == model.Correct, record.Classification == model.Partial))
	r.speak(r.lines.Feedback(record.Classification, record.ExpectedAnswer), mood)
	r.state.Feedback = record.Feedback

	wait := r.c.cfg.Wait.For(record.Classification)
	r.state.WaitUntil = r.c.deps.Clock.Now().Add(wait)
	r.schedule(timerWait, wait)
	r.publish()
}

// retry keeps the current question after a failed transcription or
// evaluation. Nothing is recorded.
func (r *run) retry(err error) {
	r.state.Busy = false
	r.state.Error = err.Error()
	r.speak(r.lines.Retry(), model.MoodEncouraging)
	r.publish()
}

func (r *run) skip() ipc.Response {
	switch r.state.Stage {
	case fsm.StageWaiting:
		r.advance()
		return r.ok("wait skipped")
	case fsm.StagePlaying:
		if r.state.Awaiting {
			return r.reject(errors.New("next question is still being prepared"))
		}
		r.abandon()
		r.advance()
		return r.ok("question skipped")
	case fsm.StageWelcome:
		return r.beginCommand()
	default:
		return r.reject(fmt.Errorf("cannot skip in stage %s", r.state.Stage))
	}
}

// abandon drops whatever is in flight for the current question.
func (r *run) abandon() {
	r.answerToken++
	if r.state.Recording {
		r.c.deps.Voice.Cancel()
		r.state.Recording = false
	}
	r.state.Busy = false
}

// advance cancels speech and the wait timer together, then moves on.
func (r *run) advance() {
	r.silence()
	r.cancelTimer(timerWait)
	r.cancelTimer(timerAnswer)

	next, err := Advance(r.state)
	if err != nil {
		r.logWarn("cannot advance", err)
		return
	}
	r.state = next
	r.present()
}

func (r *run) finish() {
	r.cancelTimers()
	if r.state.Recording {
		r.c.deps.Voice.Cancel()
		r.state.Recording = false
	}

	next, err := Finish(r.state, r.c.deps.Clock.Now())
	if err != nil {
		r.abort(r.lines.NoAnswers(), "no_answers", true)
		r.result.Err = err
		return
	}
	r.state = next

	record, err := r.state.Record()
	if err != nil {
		r.abort(r.lines.NoAnswers(), "no_answers", true)
		r.result.Err = err
		return
	}
	r.result.Record = record

	video := r.stopVideo()
	r.cue(host.CueFinished)
	r.speak(r.lines.Summary(record.Employee.Name, record.Tally), model.MoodHappy)
	r.c.deps.Metrics.SessionEnded("completed")
	r.publish()

	store := r.c.deps.Records
	if store == nil {
		r.logSummary()
		r.exit = true
		return
	}
	timeout := r.c.cfg.Timing.PersistTimeout
	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, timeout)
		defer cancel()
		result, err := store.SaveRecord(ctx, record, video)
		r.post(persisted{result: result, err: err})
	}()
}

func (r *run) stopVideo() *model.Blob {
	if !r.video {
		return nil
	}
	r.video = false
	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()
	blob, err := r.c.deps.Video.Stop(ctx)
	if err != nil {
		r.logWarn("video capture stopped with error", err)
	}
	if blob.Empty() {
		return nil
	}
	return &blob
}

func (r *run) onPersisted(ev persisted) {
	if ev.err != nil {
		r.logWarn("session record not saved", ev.err)
		r.result.PersistErr = ev.err
	} else {
		r.result.RecordID = ev.result.RecordID
		r.result.Saved = true
		r.result.Record.ID = ev.result.RecordID
		if ev.result.Result != "" {
			r.result.Record.Result = ev.result.Result
		}
	}
	r.logSummary()
	r.exit = true
}

func (r *run) noQuestions() {
	r.abort(r.lines.NoQuestions(), "no_questions", true)
	r.result.Err = ErrNoQuestions
}

func (r *run) cancelled(err error) {
	if r.state.Stage == fsm.StageSummary {
		if !r.result.Saved && r.result.PersistErr == nil && r.c.deps.Records != nil {
			r.result.PersistErr = err
		}
		r.exit = true
		return
	}
	r.abort(r.lines.Cancelled(), "cancelled", false)
	r.result.Err = err
}

// abort releases devices, timers and speech and returns to setup.
func (r *run) abort(message string, outcome string, announce bool) {
	r.cancelTimers()
	r.silence()
	r.answerToken++
	if r.c.deps.Voice != nil {
		r.c.deps.Voice.Cancel()
	}
	if r.video {
		r.c.deps.Video.Cancel()
		r.video = false
	}

	r.settleMicOpen(r.reject(errors.New(message)))
	r.state = Abort(r.state, message)
	if announce {
		r.say(message)
	}
	r.c.deps.Metrics.SessionEnded(outcome)
	r.logInfo("viva session aborted", "reason", outcome, "answers", len(r.state.Answers))
	r.publish()
	r.exit = true
}

func (r *run) speak(text string, mood model.Mood) {
	r.state.HostMessage = text
	r.state.Mood = mood
	r.say(text)
}

func (r *run) say(text string) {
	if r.c.deps.Host != nil {
		r.c.deps.Host.Say(text, r.state.Language)
	}
}

func (r *run) silence() {
	if r.c.deps.Host != nil {
		r.c.deps.Host.Silence()
	}
}

func (r *run) cue(kind host.Cue) {
	if r.c.deps.Host != nil {
		r.c.deps.Host.Cue(kind)
	}
}

func (r *run) publish() {
	r.c.publish(r.state)
}

func (r *run) ok(message string) ipc.Response {
	return ipc.Response{OK: true, State: string(r.state.Stage), Message: message}
}

func (r *run) reject(err error) ipc.Response {
	return ipc.Response{OK: false, State: string(r.state.Stage), Error: err.Error()}
}

func (r *run) logSummary() {
	record := r.result.Record
	r.logInfo("viva session finished",
		"stage", string(r.state.Stage),
		"source", record.Source.Name,
		"total", record.Tally.Total,
		"correct", record.Tally.Correct,
		"partial", record.Tally.Partial,
		"wrong", record.Tally.Wrong,
		"percent", record.Tally.Percent,
		"duration_seconds", record.DurationSeconds,
		"record_id", r.result.RecordID,
		"saved", r.result.Saved,
	)
}

func (r *run) logInfo(msg string, args ...any) {
	if logger := r.c.deps.Logger; logger != nil {
		logger.Info(msg, append([]any{"session_id", r.state.ID}, args...)...)
	}
}

func (r *run) logDebug(msg string, args ...any) {
	if logger := r.c.deps.Logger; logger != nil {
		logger.Debug(msg, append([]any{"session_id", r.state.ID}, args...)...)
	}
}

func (r *run) logWarn(msg string, err error, args ...any) {
	if logger := r.c.deps.Logger; logger != nil {
		logger.Warn(msg, append([]any{"session_id", r.state.ID, "error", err.Error()}, args...)...)
	}
}

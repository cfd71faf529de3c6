package viva

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rbright/viva/internal/api"
	"github.com/rbright/viva/internal/fsm"
	"github.com/rbright/viva/internal/host"
	"github.com/rbright/viva/internal/ipc"
	"github.com/rbright/viva/internal/model"
	"github.com/rbright/viva/internal/pipeline"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu         sync.Mutex
	now        time.Time
	timers     []*fakeTimer
	ignoreStop bool
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)
	return timer
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.clock.ignoreStop {
		return true
	}
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs every due callback in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, timer := range c.timers {
		if timer.stopped || timer.fired || timer.at.After(c.now) {
			continue
		}
		timer.fired = true
		due = append(due, timer)
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, timer := range due {
		timer.f()
	}
}

type fakeGenerator struct {
	mu        sync.Mutex
	batches   [][]model.Question
	err       error
	block     bool
	gate      chan struct{}
	calls     int
	requested []int
}

func (g *fakeGenerator) GenerateQuestions(ctx context.Context, _ model.Source, count int, _ model.Language) ([]model.Question, error) {
	g.mu.Lock()
	g.calls++
	g.requested = append(g.requested, count)
	block := g.block
	var batch []model.Question
	if len(g.batches) > 0 {
		batch = g.batches[0]
		g.batches = g.batches[1:]
	}
	err := g.err
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return batch, err
}

func (g *fakeGenerator) Requested() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.requested...)
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeEvaluator struct {
	mu       sync.Mutex
	results  map[string]model.Evaluation
	errs     []error
	gate     chan struct{}
	requests []api.EvaluateRequest
}

func (e *fakeEvaluator) Evaluate(ctx context.Context, req api.EvaluateRequest) (model.Evaluation, error) {
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return model.Evaluation{}, ctx.Err()
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	if len(e.errs) > 0 {
		err := e.errs[0]
		e.errs = e.errs[1:]
		if err != nil {
			return model.Evaluation{}, err
		}
	}
	if eval, ok := e.results[req.UserAnswer]; ok {
		return eval, nil
	}
	return model.Evaluation{Score: 10, Classification: model.Wrong, Feedback: "Not quite."}, nil
}

func (e *fakeEvaluator) Requests() []api.EvaluateRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]api.EvaluateRequest(nil), e.requests...)
}

type fakeStore struct {
	mu      sync.Mutex
	err     error
	saved   []model.SessionRecord
	videos  []*model.Blob
	savedCh chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{savedCh: make(chan struct{}, 4)}
}

func (s *fakeStore) SaveRecord(_ context.Context, record model.SessionRecord, video *model.Blob) (api.SaveResult, error) {
	s.mu.Lock()
	s.saved = append(s.saved, record)
	s.videos = append(s.videos, video)
	err := s.err
	s.mu.Unlock()
	s.savedCh <- struct{}{}
	if err != nil {
		return api.SaveResult{}, err
	}
	return api.SaveResult{RecordID: 7, Result: model.Verdict(record.Tally.Percent), VideoSaved: video != nil}, nil
}

func (s *fakeStore) Videos() []*model.Blob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Blob(nil), s.videos...)
}

func (s *fakeStore) Saved() []model.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SessionRecord(nil), s.saved...)
}

type fakeVoice struct {
	mu         sync.Mutex
	startErr   error
	startGate  chan struct{}
	transcript string
	sttErr     error
	recording  bool
	starts     int
	cancels    int
}

func (v *fakeVoice) Start(ctx context.Context) error {
	v.mu.Lock()
	v.starts++
	gate := v.startGate
	v.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.startErr != nil {
		return v.startErr
	}
	v.recording = true
	return nil
}

func (v *fakeVoice) StopAndTranscribe(context.Context) (pipeline.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recording = false
	if v.sttErr != nil {
		return pipeline.Result{}, v.sttErr
	}
	return pipeline.Result{Transcript: v.transcript, BytesCaptured: 3200}, nil
}

func (v *fakeVoice) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancels++
	v.recording = false
}

func (v *fakeVoice) Recording() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.recording
}

func (v *fakeVoice) set(transcript string, sttErr error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.transcript = transcript
	v.sttErr = sttErr
}

func (v *fakeVoice) counts() (starts int, cancels int, recording bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.starts, v.cancels, v.recording
}

type fakeVideo struct {
	mu       sync.Mutex
	startErr error
	active   bool
	starts   int
	stops    int
	cancels  int
}

func (v *fakeVideo) Start(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.starts++
	if v.startErr != nil {
		return v.startErr
	}
	v.active = true
	return nil
}

func (v *fakeVideo) Stop(context.Context) (model.Blob, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.active {
		return model.Blob{}, nil
	}
	v.active = false
	v.stops++
	return model.Blob{MIMEType: "video/webm", Filename: "viva_recording.webm", Data: []byte("webm")}, nil
}

func (v *fakeVideo) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancels++
	v.active = false
}

func (v *fakeVideo) isActive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

type fakeHost struct {
	mu       sync.Mutex
	lines    []string
	silences int
	cues     []host.Cue
}

func (h *fakeHost) Say(text string, _ model.Language) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, text)
}

func (h *fakeHost) Silence() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.silences++
}

func (h *fakeHost) Cue(kind host.Cue) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cues = append(h.cues, kind)
}

func (h *fakeHost) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}

func (h *fakeHost) Silences() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.silences
}

func (h *fakeHost) Cues() []host.Cue {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.Cue(nil), h.cues...)
}

type staticDirectory struct {
	employee model.Employee
	err      error
	calls    int
}

func (d *staticDirectory) LookupEmployee(_ context.Context, punchID string) (model.Employee, error) {
	d.calls++
	if d.err != nil {
		return model.Employee{}, d.err
	}
	employee := d.employee
	employee.PunchID = punchID
	return employee, nil
}

// harness runs a Controller on a fake clock with fake collaborators.
type harness struct {
	t      *testing.T
	ctrl   *Controller
	clock  *fakeClock
	gen    *fakeGenerator
	eval   *fakeEvaluator
	store  *fakeStore
	voice  *fakeVoice
	video  *fakeVideo
	host   *fakeHost
	cancel context.CancelFunc
	result chan Result
}

func machineSafetyQuestions() []model.Question {
	return []model.Question{
		{Text: "What must be checked before starting a lathe?", ExpectedAnswer: "Guards, chuck key removed, work secured", Level: model.LevelEasy},
		{Text: "When should lockout-tagout be applied?", ExpectedAnswer: "Before any maintenance on energized equipment", Level: model.LevelMedium},
		{Text: "Name two causes of press brake injuries.", ExpectedAnswer: "Bypassed light curtains and improper tooling changes", Level: model.LevelHard},
	}
}

func newHarness(t *testing.T, configure func(*Config, *Deps)) *harness {
	t.Helper()

	h := &harness{
		t:      t,
		clock:  newFakeClock(),
		gen:    &fakeGenerator{batches: [][]model.Question{machineSafetyQuestions()}},
		eval:   &fakeEvaluator{results: map[string]model.Evaluation{}},
		store:  newFakeStore(),
		voice:  &fakeVoice{},
		video:  &fakeVideo{},
		host:   &fakeHost{},
		result: make(chan Result, 1),
	}

	cfg := Config{
		Language:      model.LanguageEnglish,
		QuestionCount: 3,
		Timing:        DefaultTiming(),
		Wait:          DefaultWaitPolicy(),
	}
	deps := Deps{
		Questions: h.gen,
		Evaluator: h.eval,
		Records:   h.store,
		Voice:     h.voice,
		Video:     h.video,
		Host:      h.host,
		Clock:     h.clock,
		NewID:     func() string { return "session-1" },
	}
	if configure != nil {
		configure(&cfg, &deps)
	}
	h.ctrl = NewController(cfg, deps)
	return h
}

func readySetup(t *testing.T) *Setup {
	t.Helper()
	setup := NewSetup(VerifiedLookup{Directory: &staticDirectory{employee: model.Employee{Name: "Asha Patil", Department: "Press Shop"}}}, model.LanguageEnglish)
	require.NoError(t, setup.Verify(context.Background(), "1042"))
	require.NoError(t, setup.Select(model.Source{Kind: model.SourceTopic, ID: 12, Name: "Machine Safety"}))
	return setup
}

func (h *harness) start() {
	h.t.Helper()
	h.launch()
	h.waitFor(func(s Snapshot) bool { return s.Stage == fsm.StageWelcome })
}

// launch starts Run without waiting for the welcome stage.
func (h *harness) launch() {
	h.t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.t.Cleanup(cancel)
	setup := readySetup(h.t)
	go func() {
		h.result <- h.ctrl.Run(ctx, setup)
	}()
}

// startPlaying runs until the first question is on screen.
func (h *harness) startPlaying() {
	h.t.Helper()
	h.start()
	h.waitFor(func(s Snapshot) bool { return s.Available > 0 })
	h.advance(h.ctrl.cfg.Timing.WelcomeDelay)
	h.waitFor(func(s Snapshot) bool { return s.Stage == fsm.StagePlaying && s.QuestionNumber == 1 })
}

func (h *harness) do(name string, text string) ipc.Response {
	return h.ctrl.Handle(context.Background(), ipc.Request{Command: name, Text: text})
}

// advance fires due timers, then waits until the loop has consumed them.
func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.barrier()
}

// barrier round-trips a no-op command through the loop so every event
// queued before it has been handled.
func (h *harness) barrier() {
	h.ctrl.mu.RLock()
	events, done := h.ctrl.events, h.ctrl.done
	h.ctrl.mu.RUnlock()
	if events == nil {
		return
	}

	cmd := command{name: "noop", reply: make(chan ipc.Response, 1)}
	select {
	case events <- cmd:
	case <-done:
		return
	}
	select {
	case <-cmd.reply:
	case <-done:
	}
}

func (h *harness) waitFor(cond func(Snapshot) bool) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return cond(h.ctrl.Snapshot()) }, 2*time.Second, 2*time.Millisecond,
		"last snapshot: %+v", h.ctrl.Snapshot())
}

func (h *harness) answer(text string) {
	h.t.Helper()
	resp := h.do("answer", text)
	require.True(h.t, resp.OK, resp.Error)
	h.waitFor(func(s Snapshot) bool { return s.Stage != fsm.StagePlaying || (!s.Busy && s.Error != "") })
}

func (h *harness) wait() Result {
	h.t.Helper()
	select {
	case result := <-h.result:
		return result
	case <-time.After(2 * time.Second):
		h.t.Fatalf("session did not finish; last snapshot: %+v", h.ctrl.Snapshot())
		return Result{}
	}
}

var errBackendDown = errors.New("backend down")

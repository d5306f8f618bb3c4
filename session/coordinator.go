package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"promptarch/events"
	"promptarch/llm"
	"promptarch/workspace"
)

// DefaultMinResponseLength is the shortest trimmed response accepted as a
// refined prompt
const DefaultMinResponseLength = 50

var (
	// ErrNoModel is a validation error: generation needs a selected model
	ErrNoModel = errors.New("please select a model")

	// ErrEmptyPrompt is a validation error: generation needs a non-blank prompt
	ErrEmptyPrompt = errors.New("please enter a prompt")

	// ErrResponseTooShort is a quality failure: the model answered, but with
	// too little text to be a usable prompt
	ErrResponseTooShort = errors.New("response too short; add more detail to the prompt or try again")
)

// State is a snapshot of the generation session
type State struct {
	Model      string        `json:"model"`
	RawPrompt  string        `json:"rawPrompt"`
	Mode       Mode          `json:"mode"`
	Refined    string        `json:"refinedPrompt"`
	Generating bool          `json:"isGenerating"`
	Error      string        `json:"generationError,omitempty"`
	Estimate   time.Duration `json:"estimatedTime,omitempty"`
	TechStack  []string      `json:"techStack"`
}

// Config configures a Coordinator
type Config struct {
	Generator         llm.Generator
	History           *History
	Bus               *events.Bus
	Logger            *zap.Logger
	MinResponseLength int // zero selects DefaultMinResponseLength
	Mode              Mode
}

// Coordinator owns the single in-flight generation and the session state
// observers see. StartGeneration runs on the caller's goroutine; every other
// method may be called from any goroutine.
type Coordinator struct {
	gen     llm.Generator
	history *History
	bus     *events.Bus
	logger  *zap.Logger
	minLen  int

	mu        sync.Mutex
	state     State
	techStack []string
	run       uint64
	cancel    context.CancelFunc
	runCtx    context.Context
}

// NewCoordinator creates a coordinator in the idle state
func NewCoordinator(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	history := cfg.History
	if history == nil {
		history = LoadHistory(nil, DefaultHistoryLimit, logger)
	}
	minLen := cfg.MinResponseLength
	if minLen <= 0 {
		minLen = DefaultMinResponseLength
	}
	mode := cfg.Mode
	if !mode.Valid() {
		mode = ModeFast
	}

	return &Coordinator{
		gen:     cfg.Generator,
		history: history,
		bus:     cfg.Bus,
		logger:  logger.Named("session"),
		minLen:  minLen,
		state:   State{Mode: mode},
	}
}

// State returns a snapshot of the session
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.TechStack = append([]string(nil), c.techStack...)
	return s
}

// History returns the refinement log
func (c *Coordinator) History() *History {
	return c.history
}

// SetModel selects the model used by the next generation
func (c *Coordinator) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Model = strings.TrimSpace(model)
}

// SetRawPrompt sets the text to refine
func (c *Coordinator) SetRawPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.RawPrompt = prompt
}

// SetMode selects the mode used by the next generation
func (c *Coordinator) SetMode(mode Mode) error {
	if !mode.Valid() {
		_, err := ParseMode(string(mode))
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Mode = mode
	return nil
}

// SetProject makes the project's tech stack part of following requests
func (c *Coordinator) SetProject(project *workspace.Project) {
	if project == nil {
		c.ClearProject()
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.techStack = append([]string(nil), project.TechStack...)
}

// ClearProject drops the project context
func (c *Coordinator) ClearProject() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.techStack = nil
}

// ClearHistory empties the refinement log
func (c *Coordinator) ClearHistory() error {
	err := c.history.Clear()
	c.bus.Emit(events.HistoryChanged, events.History{Count: 0, Cleared: true})
	return err
}

// StartGeneration refines the current raw prompt. Any generation already in
// flight is cancelled first. It returns the error shown in the session state,
// or nil on success and on cancellation.
func (c *Coordinator) StartGeneration(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Model == "" {
		return c.rejectLocked(ErrNoModel)
	}
	if strings.TrimSpace(c.state.RawPrompt) == "" {
		return c.rejectLocked(ErrEmptyPrompt)
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.run++
	run := c.run
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.runCtx = runCtx

	profile := ProfileFor(c.state.Mode)
	raw, mode := c.state.RawPrompt, c.state.Mode
	req := BuildRequest(c.state.Model, raw, mode, c.techStack)

	c.state.Generating = true
	c.state.Error = ""
	c.state.Refined = ""
	c.state.Estimate = profile.Estimate
	c.mu.Unlock()
	defer cancel()

	c.bus.Emit(events.GenerationStarted, events.Generation{Run: run, Mode: string(mode), Estimate: profile.Estimate})
	c.logger.Debug("generation started",
		zap.Uint64("run", run),
		zap.String("model", req.Model),
		zap.String("mode", string(mode)))

	text, fallback, err := c.generate(runCtx, run, req)
	switch {
	case runCtx.Err() != nil:
		c.cancelled(run)
		return nil
	case err != nil:
		return c.fail(run, err)
	}
	return c.complete(run, raw, mode, text, fallback)
}

// StopGeneration cancels the in-flight generation, keeping whatever text had
// arrived. It is a no-op when nothing is running.
func (c *Coordinator) StopGeneration() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	c.state.Generating = false
	c.state.Estimate = 0
}

// generate streams the response and falls back to one non-streaming call
// when the stream fails for any reason other than cancellation
func (c *Coordinator) generate(ctx context.Context, run uint64, req llm.Request) (string, bool, error) {
	text, err := c.consumeStream(ctx, run, req)
	if err == nil || ctx.Err() != nil {
		return text, false, err
	}

	c.logger.Warn("stream failed, falling back to non-streaming generate",
		zap.Uint64("run", run), zap.Error(err))

	text, err = c.gen.Generate(ctx, req)
	if err != nil {
		return "", true, err
	}
	return text, true, nil
}

func (c *Coordinator) consumeStream(ctx context.Context, run uint64, req llm.Request) (string, error) {
	stream, err := c.gen.GenerateStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var b strings.Builder
	for stream.Next() {
		fragment := stream.Text()
		if !c.appendFragment(run, fragment) {
			return b.String(), nil
		}
		b.WriteString(fragment)
	}
	return b.String(), stream.Err()
}

// appendFragment publishes a fragment if run still owns the session
func (c *Coordinator) appendFragment(run uint64, fragment string) bool {
	c.mu.Lock()
	if !c.ownsLocked(run) {
		c.mu.Unlock()
		return false
	}
	c.state.Refined += fragment
	text := c.state.Refined
	mode := c.state.Mode
	c.mu.Unlock()

	c.bus.Emit(events.GenerationFragment, events.Generation{Run: run, Mode: string(mode), Fragment: fragment, Text: text})
	return true
}

func (c *Coordinator) complete(run uint64, raw string, mode Mode, text string, fallback bool) error {
	if len(strings.TrimSpace(text)) < c.minLen {
		return c.fail(run, ErrResponseTooShort)
	}
	final := ExtractPrompt(text)

	c.mu.Lock()
	if !c.ownsLocked(run) {
		c.mu.Unlock()
		c.cancelled(run)
		return nil
	}
	c.history.Add(raw, final, mode)
	c.state.Refined = final
	c.state.Error = ""
	c.resetLocked()
	count := c.history.Len()
	c.mu.Unlock()

	c.logger.Debug("generation completed",
		zap.Uint64("run", run),
		zap.Int("response_length", len(text)),
		zap.Bool("fallback", fallback))
	c.bus.Emit(events.GenerationCompleted, events.Generation{Run: run, Mode: string(mode), Text: final, Fallback: fallback})
	c.bus.Emit(events.HistoryChanged, events.History{Count: count})
	return nil
}

func (c *Coordinator) fail(run uint64, err error) error {
	c.mu.Lock()
	if !c.ownsLocked(run) {
		c.mu.Unlock()
		c.cancelled(run)
		return nil
	}
	c.state.Error = err.Error()
	c.resetLocked()
	mode := c.state.Mode
	c.mu.Unlock()

	c.logger.Debug("generation failed", zap.Uint64("run", run), zap.Error(err))
	c.bus.Emit(events.GenerationFailed, events.Generation{Run: run, Mode: string(mode), Error: err.Error()})
	return err
}

// cancelled settles a run that was stopped or superseded. Only the run that
// still owns the session touches its state; the accumulated text is kept.
func (c *Coordinator) cancelled(run uint64) {
	c.mu.Lock()
	if run != c.run {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	text, mode := c.state.Refined, c.state.Mode
	c.mu.Unlock()

	c.bus.Emit(events.GenerationCancelled, events.Generation{Run: run, Mode: string(mode), Text: text})
}

// rejectLocked records a validation error; it releases c.mu
func (c *Coordinator) rejectLocked(err error) error {
	c.state.Error = err.Error()
	mode := c.state.Mode
	c.mu.Unlock()

	c.bus.Emit(events.GenerationFailed, events.Generation{Mode: string(mode), Error: err.Error()})
	return err
}

// ownsLocked reports whether run is current and was not stopped
func (c *Coordinator) ownsLocked(run uint64) bool {
	return run == c.run && c.runCtx != nil && c.runCtx.Err() == nil
}

func (c *Coordinator) resetLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = nil
	c.state.Generating = false
	c.state.Estimate = 0
}

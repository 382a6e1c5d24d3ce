package popup

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/truthlens/models"
)

// ErrBusy is returned by Run when a run is already in progress.
var ErrBusy = errors.New("popup: analysis already running")

// Extractor runs the extraction routine in the active tab.
type Extractor interface {
	Extract(ctx context.Context) (*models.PageContent, error)
}

// Classifier sends extracted content to the classification endpoint.
type Classifier interface {
	Predict(ctx context.Context, content *models.PageContent) (*models.ClassificationResult, error)
}

// View displays frames. Render is always called from one goroutine at a time.
type View interface {
	Render(f Frame)
}

// Options configures a Controller.
type Options struct {
	// Timeout bounds one run. Zero means no deadline beyond the caller's ctx.
	Timeout time.Duration

	// TickInterval is the progress ticker period; default 1s.
	TickInterval time.Duration

	// Clock defaults to SystemClock.
	Clock Clock
}

// Controller orchestrates one user-triggered analysis end to end:
// extraction, classification, and the cosmetic progress animation.
// It is safe for concurrent use; concurrent runs are rejected with ErrBusy.
type Controller struct {
	extractor  Extractor
	classifier Classifier
	view       View
	clock      Clock
	tick       time.Duration
	timeout    time.Duration

	mu      sync.Mutex
	state   State
	running bool
}

// NewController wires the collaborators and renders the initial Idle frame.
func NewController(ex Extractor, cl Classifier, view View, opts Options) *Controller {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	c := &Controller{
		extractor:  ex,
		classifier: cl,
		view:       view,
		clock:      opts.Clock,
		tick:       opts.TickInterval,
		timeout:    opts.Timeout,
	}
	c.view.Render(Render(c.state))
	return c
}

// State returns a snapshot of the current UI state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run performs one analysis and returns the terminal state. The returned
// error is nil on success, ErrBusy if a run is already in flight, and a
// *models.Error (matching models.ErrExtraction or models.ErrBackend)
// otherwise.
func (c *Controller) Run(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.running {
		s := c.state
		c.mu.Unlock()
		return s, ErrBusy
	}
	c.running = true
	c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// ── 1. Disable trigger, clear result, reset progress ────────────
	c.transition(State{Phase: PhaseRunning})

	// ── 2. Start the cosmetic ticker before touching the tab ────────
	stopTicker := c.startTicker()

	// ── 3. Extraction ───────────────────────────────────────────────
	content, err := c.extractor.Extract(ctx)
	if err == nil && content == nil {
		err = models.NewError(models.ErrCodeExtraction, "extraction returned no result", nil)
	}
	if err != nil {
		stopTicker()
		slog.Warn("extraction failed", "error", err)
		return c.finish(FailureExtraction, wrapFailure(err, models.ErrCodeExtraction, "extraction failed"))
	}
	slog.Debug("page extracted", "header", content.Header, "bodyChars", len([]rune(content.Body)))

	// ── 4. Classification ───────────────────────────────────────────
	result, err := c.classifier.Predict(ctx, content)
	stopTicker()
	if err != nil {
		slog.Warn("classification failed", "error", err)
		return c.finish(FailureBackend, wrapFailure(err, models.ErrCodeBackendOffline, "classification failed"))
	}

	c.mu.Lock()
	stage := c.state.Stage
	c.mu.Unlock()

	s := c.transition(State{Phase: PhaseSuccess, Stage: stage, Result: result})
	c.release()
	slog.Info("analysis complete", "label", result.Label, "percentage", result.Percentage)
	return s, nil
}

// finish moves to PhaseError and re-enables the trigger.
func (c *Controller) finish(f Failure, err error) (State, error) {
	c.mu.Lock()
	stage := c.state.Stage
	c.mu.Unlock()

	s := c.transition(State{Phase: PhaseError, Stage: stage, Failure: f})
	c.release()
	return s, err
}

func (c *Controller) release() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// transition replaces the state and renders it. The lock is held across
// Render so frames reach the view in state order.
func (c *Controller) transition(s State) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	slog.Debug("popup transition", "from", c.state.Phase, "to", s.Phase, "stage", s.Stage)
	c.state = s
	c.view.Render(Render(s))
	return s
}

// startTicker launches the stage animation and returns a function that
// stops the ticker exactly once and waits for the animation goroutine.
func (c *Controller) startTicker() func() {
	t := c.clock.NewTicker(c.tick)
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case <-t.C():
				c.advance()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.Stop()
			close(done)
			<-exited
		})
	}
}

// advance shows the next stage. Once every stage has been shown the tick
// is a no-op.
func (c *Controller) advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != PhaseRunning || c.state.Stage >= len(Stages) {
		return
	}
	c.state.Stage++
	c.view.Render(Render(c.state))
}

// wrapFailure guarantees the returned error carries the failure's code.
func wrapFailure(err error, code, msg string) error {
	var me *models.Error
	if errors.As(err, &me) && me.Code == code {
		return err
	}
	return models.NewError(code, msg, err)
}

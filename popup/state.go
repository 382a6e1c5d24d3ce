package popup

import (
	"fmt"
	"strconv"

	"github.com/use-agent/truthlens/models"
)

// Phase is the controller's position in Idle → Running → {Success, Error}.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Failure names which collaborator ended a run in PhaseError.
type Failure int

const (
	FailureNone Failure = iota
	FailureExtraction
	FailureBackend
)

// User-visible failure messages.
const (
	MsgScriptFailed   = "Error: Script failed."
	MsgBackendOffline = "Error: Backend offline."
)

// Tone is the colour class of the result text.
type Tone int

const (
	ToneNone Tone = iota
	ToneWarning
	ToneSuccess
)

// ProgressStage is one step of the simulated progress animation.
type ProgressStage struct {
	Text         string
	WidthPercent int
}

// Stages is replayed one per tick, in order, regardless of how far the
// request actually got.
var Stages = []ProgressStage{
	{Text: "Reading page content...", WidthPercent: 20},
	{Text: "Extracting claims...", WidthPercent: 40},
	{Text: "Searching for evidence...", WidthPercent: 60},
	{Text: "Verifying claims...", WidthPercent: 80},
	{Text: "Finalizing verdict...", WidthPercent: 95},
}

// State is the controller's UI state. It holds no element handles; Render
// turns it into what should be on screen.
type State struct {
	Phase Phase

	// Stage counts how many progress stages have been shown (0..len(Stages)).
	Stage int

	Result  *models.ClassificationResult
	Failure Failure
}

// Frame is the concrete content of every popup element.
type Frame struct {
	TriggerEnabled  bool
	LoadingVisible  bool
	StatusText      string
	ProgressWidth   int
	ResultText      string
	ResultTone      Tone
	ExplanationText string
}

// Render is a pure mapping from State to Frame.
func Render(s State) Frame {
	f := Frame{TriggerEnabled: s.Phase != PhaseRunning}

	if s.Stage > 0 {
		stage := Stages[min(s.Stage, len(Stages))-1]
		f.StatusText = stage.Text
		f.ProgressWidth = stage.WidthPercent
	}

	switch s.Phase {
	case PhaseRunning:
		f.LoadingVisible = true
	case PhaseSuccess:
		if s.Result != nil {
			f.ResultText = FormatResult(s.Result)
			f.ResultTone = ToneSuccess
			if s.Result.IsFake() {
				f.ResultTone = ToneWarning
			}
			f.ExplanationText = s.Result.Explanation
		}
	case PhaseError:
		f.ResultTone = ToneWarning
		switch s.Failure {
		case FailureExtraction:
			f.ResultText = MsgScriptFailed
		default:
			f.ResultText = MsgBackendOffline
		}
	}
	return f
}

// FormatResult renders "label (percentage%)" using the shortest decimal form
// of the percentage.
func FormatResult(r *models.ClassificationResult) string {
	return fmt.Sprintf("%s (%s%%)", r.Label, strconv.FormatFloat(r.Percentage, 'f', -1, 64))
}

package popup

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// TerminalView renders frames to a terminal: a progress bar while loading,
// then the coloured verdict and the explanation.
type TerminalView struct {
	out     io.Writer
	bar     *progressbar.ProgressBar
	noBar   bool // the bar failed to draw; stages print as plain lines
	warning *color.Color
	success *color.Color
	last    Frame
}

// NewTerminalView creates a TerminalView writing to out.
func NewTerminalView(out io.Writer) *TerminalView {
	return &TerminalView{
		out:     out,
		warning: color.New(color.FgRed, color.Bold),
		success: color.New(color.FgGreen, color.Bold),
	}
}

func (v *TerminalView) Render(f Frame) {
	defer func() { v.last = f }()

	if f.LoadingVisible {
		if v.noBar {
			if f.StatusText != v.last.StatusText {
				fmt.Fprintln(v.out, f.StatusText)
			}
			return
		}
		if v.bar == nil {
			v.bar = progressbar.NewOptions(100,
				progressbar.OptionSetWriter(v.out),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription(f.StatusText),
				progressbar.OptionClearOnFinish(),
			)
		}
		v.bar.Describe(f.StatusText)
		if err := v.bar.Set(f.ProgressWidth); err != nil {
			slog.Warn("progress bar failed, printing stages as text", "error", err)
			v.bar, v.noBar = nil, true
		}
		return
	}

	if v.bar != nil {
		if err := v.bar.Finish(); err != nil {
			slog.Debug("progress bar did not finish cleanly", "error", err)
		}
		v.bar = nil
	}

	if f.ResultText == "" || f.ResultText == v.last.ResultText {
		return
	}

	c := v.success
	if f.ResultTone == ToneWarning {
		c = v.warning
	}
	_, _ = c.Fprintln(v.out, f.ResultText)
	if f.ExplanationText != "" {
		fmt.Fprintln(v.out)
		fmt.Fprintln(v.out, f.ExplanationText)
	}
}

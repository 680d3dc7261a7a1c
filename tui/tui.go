package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"math"
	"os"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"charm.land/log/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/Gaurav-Gosain/commentlink/binder"
	"github.com/Gaurav-Gosain/commentlink/page"
)

// Tokyo Night palette.
var (
	subtle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	title   = lipgloss.NewStyle().Foreground(lipgloss.Color("#1a1b26")).Background(lipgloss.Color("#7aa2f7")).Bold(true).Padding(0, 1)
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	statNum = lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff")).Bold(true)
	doneTag = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a")).Bold(true)
)

// Raw ANSI for background fill effect (Tokyo Night storm bg #24283b = 36,40,59).
const (
	fillBgOn  = "\x1b[48;2;36;40;59m"
	fillBgOff = "\x1b[49m"
)

type (
	bindEventMsg binder.Event
	bindDoneMsg  struct{}
)

type (
	fillTickMsg struct{}
	finishMsg   struct{}
)

func fillTick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(time.Time) tea.Msg {
		return fillTickMsg{}
	})
}

type model struct {
	spinner    spinner.Model
	progress   progress.Model
	logEntries []string
	total      int
	completed  int
	current    string
	done       bool
	width      int
	height     int

	// Smooth fill animation
	fillTarget  float64
	fillCurrent float64
	finishing   bool
	holdTicks   int
}

func newModel(total int) model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))),
	)

	p := progress.New(
		progress.WithColors(lipgloss.Color("#7aa2f7"), lipgloss.Color("#bb9af7")),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return model{
		spinner:  s,
		progress: p,
		total:    total,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fillTick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		barWidth := msg.Width - 20
		barWidth = max(barWidth, 20)
		barWidth = min(barWidth, 60)
		m.progress.SetWidth(barWidth)
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case bindEventMsg:
		return m.handleBindEvent(binder.Event(msg))

	case bindDoneMsg:
		m.finishing = true
		m.fillTarget = 1.0
		cmd := m.progress.SetPercent(1.0)
		return m, cmd

	case fillTickMsg:
		return m.handleFillTick()

	case finishMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m model) handleFillTick() (tea.Model, tea.Cmd) {
	diff := m.fillTarget - m.fillCurrent

	if math.Abs(diff) < 0.002 {
		m.fillCurrent = m.fillTarget

		if m.finishing {
			m.holdTicks++
			// Hold for ~600ms so the full fill is visible.
			if m.holdTicks > 37 {
				return m, func() tea.Msg { return finishMsg{} }
			}
		}
	} else {
		// Ease out: move 10% of the remaining distance each frame.
		m.fillCurrent += diff * 0.10
	}

	return m, fillTick()
}

func (m model) handleBindEvent(e binder.Event) (tea.Model, tea.Cmd) {
	truncW := max(20, m.width-20)

	switch e.Type {
	case "resolving":
		m.current = e.Identity
		return m, nil

	case "found":
		entry := fmt.Sprintf("  %s %s %s", green.Render("✓"), truncate(e.Identity, truncW/2), subtle.Render(truncate(e.URL, truncW/2)))
		m.logEntries = append(m.logEntries, entry)

	case "missing":
		entry := fmt.Sprintf("  %s %s [%s]", yellow.Render("+"), truncate(e.Identity, truncW), yellow.Render("new issue"))
		m.logEntries = append(m.logEntries, entry)

	case "error":
		errMsg := "unknown error"
		if e.Err != nil {
			errMsg = truncate(e.Err.Error(), 45)
		}
		entry := fmt.Sprintf("  %s %s %s", red.Render("✗"), truncate(e.Identity, max(20, truncW-50)), subtle.Render(errMsg))
		m.logEntries = append(m.logEntries, entry)
	}

	m.completed++
	m.current = ""

	var pct float64
	if m.total > 0 {
		pct = float64(m.completed) / float64(m.total)
	}
	m.fillTarget = pct
	cmd := m.progress.SetPercent(pct)
	return m, cmd
}

func (m model) View() tea.View {
	if m.done {
		return tea.NewView("")
	}

	h := m.height
	w := m.width
	if h == 0 {
		h = 24
	}
	if w == 0 {
		w = 80
	}

	var lines []string

	lines = append(lines, "")
	lines = append(lines, "  "+title.Render("commentlink"))
	lines = append(lines, "")

	counts := statNum.Render(fmt.Sprintf("%d", m.completed)) + subtle.Render(fmt.Sprintf("/%d", m.total))
	var progLine string
	if m.finishing {
		progLine = "  " + doneTag.Render("✓ Done!") + " " + m.progress.View() + " " + counts
	} else {
		progLine = "  " + m.spinner.View() + " " + m.progress.View() + " " + counts
	}
	lines = append(lines, progLine)
	if m.current != "" && !m.finishing {
		lines = append(lines, subtle.Render("  → searching "+truncate(m.current, max(20, w-16))))
	}
	lines = append(lines, "")

	// Log entries fill the remaining space.
	maxLogs := max(0, h-len(lines)-1)
	entries := m.logEntries
	if len(entries) > maxLogs {
		entries = entries[len(entries)-maxLogs:]
	}
	lines = append(lines, entries...)

	for len(lines) < h {
		lines = append(lines, "")
	}
	if len(lines) > h {
		lines = lines[:h]
	}

	// Background fill from the bottom up.
	fillRows := int(math.Round(m.fillCurrent * float64(h)))
	startFill := h - fillRows

	for i := startFill; i < len(lines); i++ {
		lineW := lipgloss.Width(lines[i])
		pad := max(0, w-lineW)
		line := fillBgOn + lines[i] + strings.Repeat(" ", pad) + fillBgOff
		// Re-apply the fill after SGR resets inside styled content.
		line = strings.ReplaceAll(line, "\x1b[0m", "\x1b[0m"+fillBgOn)
		line = strings.ReplaceAll(line, "\x1b[m", "\x1b[m"+fillBgOn)
		lines[i] = line
	}

	v := tea.NewView(strings.Join(lines, "\n"))
	v.AltScreen = true
	return v
}

// IsTTY reports whether stderr is connected to a terminal.
func IsTTY() bool {
	return IsTerminal(os.Stderr)
}

// IsTerminal reports whether v is a file connected to a terminal.
// Anything that is not an *os.File is not.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// ErrAborted is returned when the progress display is closed before
// every page was bound.
var ErrAborted = errors.New("binding aborted")

// RunWithProgress binds pages with a TUI progress display. Falls back
// to log output when no TTY is available or only one page is bound.
// logger must be the stderr logger the resolver warns through.
func RunWithProgress(ctx context.Context, b *binder.Binder, pages []page.Page, opts binder.RunOptions, logger *log.Logger) ([]binder.Result, error) {
	if !IsTTY() || len(pages) < 2 {
		return RunWithLogs(ctx, b, pages, opts, logger)
	}
	return runProgram(ctx, b, pages, opts, logger, os.Stderr)
}

// runProgram shows the progress display while binder.Run works in the
// background. Anything logged meanwhile is held and written to logOut,
// the logger's usual destination, once the display is gone. Quitting
// the display cancels the remaining searches.
func runProgram(ctx context.Context, b *binder.Binder, pages []page.Page, opts binder.RunOptions, logger *log.Logger, logOut io.Writer, progOpts ...tea.ProgramOption) ([]binder.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(newModel(len(pages)), progOpts...)

	// Stray writes to stderr or the standard logger would corrupt the
	// alt screen.
	origStdlogOutput := stdlog.Writer()
	stdlog.SetOutput(io.Discard)
	origStderr := os.Stderr
	devNull, _ := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if devNull != nil {
		os.Stderr = devNull
	}
	var held bytes.Buffer
	logger.SetOutput(&held)

	type bound struct {
		results []binder.Result
		err     error
	}
	done := make(chan bound, 1)

	go func() {
		opts.OnEvent = func(e binder.Event) {
			prog.Send(bindEventMsg(e))
		}
		results, err := binder.Run(ctx, b, pages, opts)
		done <- bound{results: results, err: err}
		prog.Send(bindDoneMsg{})
	}()

	_, progErr := prog.Run()
	cancel()
	res := <-done

	os.Stderr = origStderr
	stdlog.SetOutput(origStdlogOutput)
	if devNull != nil {
		_ = devNull.Close()
	}
	logger.SetOutput(logOut)
	_, _ = held.WriteTo(logOut)

	if progErr != nil {
		return res.results, fmt.Errorf("TUI error: %w", progErr)
	}
	if errors.Is(res.err, context.Canceled) {
		return res.results, fmt.Errorf("%w after %d of %d pages: %w", ErrAborted, len(res.results), len(pages), res.err)
	}
	return res.results, res.err
}

// RunWithLogs binds pages and reports progress through logger.
func RunWithLogs(ctx context.Context, b *binder.Binder, pages []page.Page, opts binder.RunOptions, logger *log.Logger) ([]binder.Result, error) {
	logger.Info("Resolving comment threads", "pages", len(pages))

	opts.OnEvent = func(e binder.Event) {
		switch e.Type {
		case "resolving":
			logger.Debug("Searching", "identity", e.Identity)
		case "found":
			logger.Info("Found issue", "identity", e.Identity, "url", e.URL)
		case "missing":
			logger.Info("No issue yet", "identity", e.Identity)
		case "error":
			logger.Error("Failed", "identity", e.Identity, "err", e.Err)
		}
	}

	results, err := binder.Run(ctx, b, pages, opts)
	if err != nil {
		return results, err
	}

	logger.Info("Resolution complete", "total", len(results))
	return results, nil
}

func truncate(s string, maxLen int) string {
	return ansi.Truncate(s, maxLen, "...")
}

package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rowhit/polypath/internal/homotopy"
	"github.com/rowhit/polypath/internal/track"
	"github.com/rowhit/polypath/internal/zode"
)

type TickMsg time.Time

// PathMsg reports progress of one path while it is being tracked.
type PathMsg struct {
	Index int
	T     float64
	Steps int
}

// DoneMsg carries the finished run into the view.
type DoneMsg struct {
	Results []homotopy.PathResult
	Err     error
}

type pathRow struct {
	t       float64
	steps   int
	verdict track.Verdict
	done    bool
}

// Live is the progress view of a running track job: one row per path with a
// t-progress bar, then verdicts and a plane plot once the run finishes. The
// job runs elsewhere and feeds the view through Observer and Finish.
type Live struct {
	name      string
	rows      []pathRow
	events    chan tea.Msg
	frame     int
	done      bool
	err       error
	results   []homotopy.PathResult
	planeView string
}

func NewLive(name string, paths int) *Live {
	return &Live{
		name:   name,
		rows:   make([]pathRow, paths),
		events: make(chan tea.Msg, 256),
	}
}

// Observer returns a per-path observer feeding this view. Events are dropped
// rather than blocking a tracking worker on a full channel.
func (l *Live) Observer(idx int) zode.Observer {
	return &progressObserver{idx: idx, live: l}
}

type progressObserver struct {
	idx   int
	steps int
	live  *Live
}

func (o *progressObserver) OnStep(z zode.State, t float64) {
	o.steps++
	select {
	case o.live.events <- PathMsg{Index: o.idx, T: t, Steps: o.steps}:
	default:
	}
}

// Finish hands the finished run to the view. Unlike progress events it must
// arrive, so it blocks until the event loop picks it up.
func (l *Live) Finish(results []homotopy.PathResult, err error) {
	l.events <- DoneMsg{Results: results, Err: err}
}

// Results returns what Finish delivered, for use after the program exits.
func (l *Live) Results() ([]homotopy.PathResult, error) {
	return l.results, l.err
}

func (l *Live) nextEvent() tea.Cmd {
	return func() tea.Msg { return <-l.events }
}

func (l *Live) Init() tea.Cmd {
	return tea.Batch(
		l.nextEvent(),
		tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return TickMsg(t) }),
	)
}

func (l *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "enter":
			return l, tea.Quit
		}

	case PathMsg:
		if msg.Index >= 0 && msg.Index < len(l.rows) {
			row := &l.rows[msg.Index]
			if !row.done {
				row.t = msg.T
				row.steps = msg.Steps
			}
		}
		return l, l.nextEvent()

	case DoneMsg:
		l.done = true
		l.err = msg.Err
		l.results = msg.Results
		for i := range l.rows {
			if i < len(msg.Results) {
				l.rows[i].done = true
				l.rows[i].t = msg.Results[i].T
				l.rows[i].steps = msg.Results[i].Steps
				l.rows[i].verdict = msg.Results[i].Verdict
			}
		}
		l.planeView = PlanePlot(msg.Results, 0, 48, 12)
		return l, nil

	case TickMsg:
		l.frame++
		if l.done {
			return l, nil
		}
		return l, tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return l, nil
}

func (l *Live) View() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(strings.ToUpper(l.name)) + "\n")

	if l.done {
		if l.err != nil {
			s.WriteString(fmt.Sprintf("stopped: %v\n\n", l.err))
		} else {
			s.WriteString("done\n\n")
		}
	} else {
		s.WriteString(Spinner(l.frame) + " tracking\n\n")
	}

	for i := range l.rows {
		row := &l.rows[i]
		line := fmt.Sprintf("path %-3d %s t=%.3f  %-6d steps", i, ProgressBar(row.t, 24), row.t, row.steps)
		if row.done {
			line += "  " + VerdictBadge(row.verdict)
		}
		s.WriteString(line + "\n")
	}

	if l.done {
		var converged, diverged, exhausted int
		for _, r := range l.results {
			switch r.Verdict {
			case track.VerdictConverged:
				converged++
			case track.VerdictDiverged:
				diverged++
			case track.VerdictExhausted:
				exhausted++
			}
		}
		s.WriteString(fmt.Sprintf("\n%d converged, %d diverged, %d exhausted of %d paths\n",
			converged, diverged, exhausted, len(l.results)))
		if l.planeView != "" {
			s.WriteString("\n" + l.planeView)
		}
	}

	s.WriteString(HelpStyle.Render("q: quit"))
	return PanelStyle.Render(s.String())
}

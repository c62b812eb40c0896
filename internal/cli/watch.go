package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
	"github.com/SeamusWaldron/gancube_ble_library/internal/cube"
	"github.com/SeamusWaldron/gancube_ble_library/internal/recorder"
	"github.com/SeamusWaldron/gancube_ble_library/internal/storage"
)

var (
	watchFlags  connectFlags
	watchRecord bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [name|address]",
	Short: "Live view of a cube",
	Long: `Open a terminal view showing the cube state, recent moves and stream
statistics as you turn the cube.

The cube is assumed to be solved when the view opens.

Keyboard shortcuts:
  r       - Reset: mark the cube as solved
  q/Esc   - Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.address, "address", "", "Device hardware address (needed where the OS hides it)")
	watchCmd.Flags().StringVar(&watchFlags.key, "key", "", "Key family: gan or moyu (default from config)")
	watchCmd.Flags().BoolVar(&watchRecord, "record", false, "Record the session to the database")
	rootCmd.AddCommand(watchCmd)
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	stageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	moveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	stickerStyles = map[cube.Color]lipgloss.Style{
		cube.White:  lipgloss.NewStyle().Background(lipgloss.Color("15")),
		cube.Red:    lipgloss.NewStyle().Background(lipgloss.Color("160")),
		cube.Green:  lipgloss.NewStyle().Background(lipgloss.Color("34")),
		cube.Yellow: lipgloss.NewStyle().Background(lipgloss.Color("226")),
		cube.Orange: lipgloss.NewStyle().Background(lipgloss.Color("208")),
		cube.Blue:   lipgloss.NewStyle().Background(lipgloss.Color("27")),
	}
)

const recentMoves = 12

// Messages
type tickMsg time.Time
type resultMsg gancube.Result
type streamDoneMsg struct{ err error }

type watchModel struct {
	device string
	info   string

	results <-chan gancube.Result
	done    <-chan error

	session *recorder.Session
	tracker *cube.Tracker

	recent  []string
	lastErr error
	ended   bool

	start    time.Time
	elapsed  time.Duration
	quitting bool
}

func newWatchModel(device, info string, results <-chan gancube.Result, done <-chan error, session *recorder.Session, tracker *cube.Tracker) *watchModel {
	return &watchModel{
		device:  device,
		info:    info,
		results: results,
		done:    done,
		session: session,
		tracker: tracker,
		start:   time.Now(),
	}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.listenForResults())
}

func (m *watchModel) tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *watchModel) listenForResults() tea.Cmd {
	return func() tea.Msg {
		r, ok := <-m.results
		if !ok {
			return streamDoneMsg{err: <-m.done}
		}
		return resultMsg(r)
	}
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.tracker.Reset()
			m.recent = nil
		}
		return m, nil

	case tickMsg:
		m.elapsed = time.Since(m.start)
		if m.ended {
			return m, nil
		}
		return m, m.tickCmd()

	case resultMsg:
		r := gancube.Result(msg)
		if err := m.session.Handle(r); err != nil {
			m.lastErr = err
		}
		if r.Err != nil {
			m.lastErr = r.Err
		} else if mv := r.Move(); mv != nil {
			m.pushRecent(mv.Notation())
		}
		return m, m.listenForResults()

	case streamDoneMsg:
		m.ended = true
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.lastErr = msg.err
		}
		return m, nil
	}

	return m, nil
}

func (m *watchModel) pushRecent(s string) {
	m.recent = append(m.recent, s)
	if len(m.recent) > recentMoves {
		m.recent = m.recent[len(m.recent)-recentMoves:]
	}
}

func (m *watchModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("GAN Cube Watch"))
	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s  %s  %s", m.device, m.info, m.elapsed.Round(time.Second))))
	b.WriteString("\n\n")

	b.WriteString(renderNet(m.tracker.Cube()))
	b.WriteString("\n")

	stage := m.tracker.Stage()
	b.WriteString(fmt.Sprintf("Stage: %s", stageStyle.Render(stage.DisplayName())))
	if best := m.tracker.HighestStage(); best > stage {
		b.WriteString(statusStyle.Render(fmt.Sprintf("  (best %s)", best.DisplayName())))
	}
	b.WriteString("\n\n")

	b.WriteString("Moves: ")
	b.WriteString(moveStyle.Render(strings.Join(m.recent, " ")))
	b.WriteString("\n")

	st := m.session.Stats()
	b.WriteString(statusStyle.Render(fmt.Sprintf("moves %d  failures %d  missed %d",
		st.Moves, st.Items-st.Moves, st.Missed)))
	b.WriteString("\n")

	if m.lastErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("last error: %v", m.lastErr)))
		b.WriteString("\n")
	}
	if m.ended {
		b.WriteString(errorStyle.Render("disconnected"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("r: reset to solved  q: quit"))
	b.WriteString("\n")
	return b.String()
}

// renderNet draws the cube as an unfolded net of colored cells.
func renderNet(c *cube.Cube) string {
	cell := func(f cube.Face, r, col int) string {
		color := c.Facelets[int(f)*9+r*3+col]
		return stickerStyles[color].Render("  ")
	}
	row := func(f cube.Face, r int) string {
		return cell(f, r, 0) + cell(f, r, 1) + cell(f, r, 2)
	}
	pad := strings.Repeat(" ", 6)

	var b strings.Builder
	for r := 0; r < 3; r++ {
		b.WriteString(pad + row(cube.U, r) + "\n")
	}
	for r := 0; r < 3; r++ {
		b.WriteString(row(cube.L, r) + row(cube.F, r) + row(cube.R, r) + row(cube.B, r) + "\n")
	}
	for r := 0; r < 3; r++ {
		b.WriteString(pad + row(cube.D, r) + "\n")
	}
	return b.String()
}

// pump drains src into a channel for the UI.
func pump(ctx context.Context, src gancube.Source[gancube.Result]) (<-chan gancube.Result, <-chan error) {
	results := make(chan gancube.Result, 64)
	done := make(chan error, 1)
	go func() {
		err := gancube.ForEach(ctx, src, func(r gancube.Result) error {
			select {
			case results <- r:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		done <- err
		close(results)
	}()
	return results, done
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	var target string
	if len(args) > 0 {
		target = args[0]
	}

	conn, err := connect(ctx, target, watchFlags)
	if err != nil {
		return err
	}
	defer conn.client.Disconnect()

	tracker := cube.NewTracker()
	opts := []recorder.Option{recorder.WithLogger(log), recorder.WithTracker(tracker)}
	if watchRecord {
		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		opts = append(opts, recorder.WithStore(db))
	}

	session := recorder.NewSession(opts...)
	if err := session.Start(conn.name, conn.addr, conn.key, ""); err != nil {
		return err
	}
	defer session.End()

	src, err := conn.pipeline()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	results, done := pump(ctx, src)

	info := fmt.Sprintf("%s  %s  key %s", conn.addr, conn.client.Generation().Name, conn.key)
	model := newWatchModel(conn.name, info, results, done, session, tracker)

	// Log lines would tear the alternate screen.
	if !verbose {
		log.SetOutput(io.Discard)
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

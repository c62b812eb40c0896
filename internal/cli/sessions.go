package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
	"github.com/SeamusWaldron/gancube_ble_library/internal/cube"
	"github.com/SeamusWaldron/gancube_ble_library/internal/storage"
)

var (
	sessionsLimit int
	movesReplay   bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	RunE:  runSessions,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a recorded session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var movesCmd = &cobra.Command{
	Use:   "moves <session-id>",
	Short: "Show the moves of a recorded session",
	Long: `Print every move and decode failure of a recorded session in stream
order. With --replay the moves are applied to a solved cube and the final
state and solving stage are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runMoves,
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "Maximum sessions to list (0 for all)")
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	movesCmd.Flags().BoolVar(&movesReplay, "replay", false, "Replay the moves on a cube model")
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(movesCmd)
}

func openDB() (*storage.DB, error) {
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	log.WithField("db", db.Path()).Debug("database opened")
	return db, nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := storage.NewSessionRepository(db).List(sessionsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-20s  %-16s  %-17s  %6s  %8s  %s\n",
		"SESSION", "STARTED", "DEVICE", "ADDRESS", "MOVES", "FAILURES", "DURATION")
	for _, s := range sessions {
		duration := "open"
		if s.EndedAt != nil {
			duration = s.Duration().Round(time.Second).String()
		}
		fmt.Fprintf(out, "%-36s  %-20s  %-16s  %-17s  %6d  %8d  %s\n",
			s.SessionID, s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			orDash(s.DeviceName), orDash(s.DeviceAddress), s.MoveCount, s.FailureCount, duration)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.NewSessionRepository(db).Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
	return nil
}

func runMoves(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	id := args[0]
	session, err := storage.NewSessionRepository(db).Get(id)
	if err != nil {
		return err
	}
	moves, err := storage.NewMoveRepository(db).GetBySession(id)
	if err != nil {
		return err
	}
	failures, err := storage.NewFailureRepository(db).GetBySession(id)
	if err != nil {
		return err
	}

	type line struct {
		seq  int64
		text string
	}
	lines := make([]line, 0, len(moves)+len(failures))
	cmds := make([]gancube.Command, 0, len(moves))
	for _, m := range moves {
		lines = append(lines, line{m.Seq, formatResult(m.Seq, gancube.Result{Event: m.Event()})})
		cmds = append(cmds, m.Event().Command())
	}
	for _, f := range failures {
		lines = append(lines, line{f.Seq, fmt.Sprintf("%4d  error  %s", f.Seq, f.Reason)})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].seq < lines[j].seq })

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s  %s  %s\n", session.SessionID, orDash(session.DeviceName), session.StartedAt.Local().Format(time.RFC3339))
	for _, l := range lines {
		fmt.Fprintln(out, l.text)
	}
	fmt.Fprintf(out, "\n%d moves, %d failures\n", len(moves), len(failures))
	fmt.Fprintln(out, gancube.FormatCommands(cmds))

	if movesReplay {
		c := cube.New()
		c.ApplyAll(cmds)
		fmt.Fprintln(out)
		fmt.Fprint(out, c.String())
		fmt.Fprintf(out, "Stage: %s\n", c.Stage().DisplayName())
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
	"github.com/SeamusWaldron/gancube_ble_library/internal/cube"
	"github.com/SeamusWaldron/gancube_ble_library/internal/metrics"
	"github.com/SeamusWaldron/gancube_ble_library/internal/recorder"
	"github.com/SeamusWaldron/gancube_ble_library/internal/storage"
)

var (
	logFlags       connectFlags
	logRecord      bool
	logTrack       bool
	logNotes       string
	logMetricsAddr string
)

var logCmd = &cobra.Command{
	Use:   "log [name|address]",
	Short: "Connect to a cube and print its moves",
	Long: `Connect to a cube and print every decoded move until interrupted.

Without an argument the first cube found is used. Notifications that fail
to decode are printed as errors and the stream carries on.

  --record        store the session in the database
  --track         follow the cube state and print solving stages
  --metrics-addr  serve Prometheus metrics on this address`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logFlags.address, "address", "", "Device hardware address (needed where the OS hides it)")
	logCmd.Flags().StringVar(&logFlags.key, "key", "", "Key family: gan or moyu (default from config)")
	logCmd.Flags().BoolVar(&logRecord, "record", false, "Record the session to the database")
	logCmd.Flags().BoolVar(&logTrack, "track", false, "Track cube state and print solving stages")
	logCmd.Flags().StringVar(&logNotes, "notes", "", "Notes stored with a recorded session")
	logCmd.Flags().StringVar(&logMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (default from config)")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var target string
	if len(args) > 0 {
		target = args[0]
	}

	conn, err := connect(ctx, target, logFlags)
	if err != nil {
		return err
	}
	defer conn.client.Disconnect()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connected to %s (%s, %s, key %s)\n", conn.name, conn.addr, conn.client.Generation().Name, conn.key)

	opts := []recorder.Option{recorder.WithLogger(log)}

	if logRecord {
		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		opts = append(opts, recorder.WithStore(db))
	}

	if addr := metricsAddr(logMetricsAddr); addr != "" {
		collector := metrics.NewCollector(prometheus.Labels{"device": conn.name})
		opts = append(opts, recorder.WithObserver(collector))
		go func() {
			if err := collector.Serve(ctx, addr); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
		log.WithField("addr", addr).Info("serving metrics")
	}

	var tracker *cube.Tracker
	if logTrack {
		tracker = cube.NewTracker()
		tracker.SetStageCallback(func(s cube.Stage) {
			fmt.Fprintf(out, "      stage  %s\n", s.DisplayName())
		})
		opts = append(opts, recorder.WithTracker(tracker))
	}

	session := recorder.NewSession(opts...)
	if err := session.Start(conn.name, conn.addr, conn.key, logNotes); err != nil {
		return err
	}

	session.SetMoveCallback(func(m *gancube.Move) {
		fmt.Fprintln(out, formatResult(session.Stats().Items-1, gancube.Result{Event: m}))
		if tracker != nil {
			fmt.Fprintf(out, "      %s\n", tracker.Cube().Tiles())
		}
	})
	session.SetFailureCallback(func(seq int64, err error) {
		fmt.Fprintln(out, formatResult(seq, gancube.Result{Err: err}))
	})
	session.SetGapCallback(func(missed int) {
		fmt.Fprintf(out, "      missed %d move(s)\n", missed)
	})

	src, err := conn.pipeline()
	if err != nil {
		return err
	}

	runErr := session.Run(ctx, src)
	if endErr := session.End(); endErr != nil {
		log.WithError(endErr).Warn("could not end session")
	}

	st := session.Stats()
	received, dropped := conn.client.Stats()
	log.WithFields(logrus.Fields{
		"moves":    st.Moves,
		"failures": st.Items - st.Moves,
		"missed":   st.Missed,
		"received": received,
		"dropped":  dropped,
		"session":  session.SessionID(),
	}).Info("stopped")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// metricsAddr returns the flag value or the configured default.
func metricsAddr(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.MetricsAddr
}

// Package metrics exposes decoded stream statistics as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

const namespace = "gancube"

// Collector counts stream items. It satisfies recorder.Observer.
type Collector struct {
	registry *prometheus.Registry

	items       prometheus.Counter
	moves       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	missed      prometheus.Counter
	lastElapsed prometheus.Gauge
	lastSerial  prometheus.Gauge
}

// NewCollector creates a collector with its own registry. constLabels are
// attached to every metric, typically the device name.
func NewCollector(constLabels prometheus.Labels) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "notifications_total",
			Help:        "Notifications received from the cube.",
			ConstLabels: constLabels,
		}),
		moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "moves_total",
			Help:        "Decoded moves by face and direction.",
			ConstLabels: constLabels,
		}, []string{"face", "direction"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "decode_failures_total",
			Help:        "Notifications that could not be decoded, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		missed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "missed_moves_total",
			Help:        "Moves inferred lost from gaps in the move serial.",
			ConstLabels: constLabels,
		}),
		lastElapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_move_device_seconds",
			Help:        "Device timestamp of the most recent move.",
			ConstLabels: constLabels,
		}),
		lastSerial: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_move_serial",
			Help:        "Serial of the most recent move.",
			ConstLabels: constLabels,
		}),
	}

	c.registry.MustRegister(c.items, c.moves, c.failures, c.missed, c.lastElapsed, c.lastSerial)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe counts one stream item.
func (c *Collector) Observe(r gancube.Result) {
	c.items.Inc()

	if r.Err != nil {
		c.failures.WithLabelValues(gancube.FailureReason(r.Err)).Inc()
		return
	}

	m := r.Move()
	if m == nil {
		return
	}
	direction := "cw"
	if m.Prime {
		direction = "ccw"
	}
	c.moves.WithLabelValues(string(m.Face), direction).Inc()
	c.lastElapsed.Set(m.Elapsed.Seconds())
	c.lastSerial.Set(float64(m.Serial))
}

// ObserveMissed adds n missed moves.
func (c *Collector) ObserveMissed(n int) {
	if n > 0 {
		c.missed.Add(float64(n))
	}
}

// Handler returns the /metrics HTTP handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	server := http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       1500 * time.Millisecond,
		ReadHeaderTimeout: 500 * time.Millisecond,
		WriteTimeout:      5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

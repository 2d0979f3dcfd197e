// Package metrics exposes reconciliation counters on a dedicated listener,
// separate from the API port so the scrape endpoint is never public.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumifin/reconciler/pkg/config"
)

// Event outcomes reported on the webhook counter.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeIgnored   = "ignored"
)

type Metrics struct {
	registry *prometheus.Registry

	WebhookEvents  *prometheus.CounterVec
	FanOutRecords  *prometheus.CounterVec
	NotifyFailures prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_webhook_events_total",
			Help: "Inbound provider events by kind and outcome.",
		}, []string{"kind", "outcome"}),
		FanOutRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_fanout_records_total",
			Help: "Rows created by checkout fan-out, by record type.",
		}, []string{"record"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_notify_failures_total",
			Help: "Notification dispatch failures (non-fatal).",
		}),
	}
	reg.MustRegister(m.WebhookEvents, m.FanOutRecords, m.NotifyFailures)
	reg.MustRegister(prometheus.NewGoCollector())
	return m
}

// Serve starts the metrics listener when metrics_addr is configured.
func Serve(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *config.Config, m *Metrics) {
	if cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("metrics started", "addr", cfg.MetricsAddr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("metrics server error: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(Serve),
)

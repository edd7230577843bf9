//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vmattach/discovery"
	"vmattach/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Track JVMs as they start and exit",
	Long: `Scan for JVMs periodically and print every JVM that appears or disappears.
Perf-data changes trigger an early scan unless discovery.watch_perfdata is off.
With --metrics-listen, Prometheus metrics are served at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("interval", discovery.DefaultInterval, "Time between scans")
	watchCmd.Flags().String("metrics-listen", "", "Address to serve Prometheus metrics on (e.g. 127.0.0.1:9464)")
	watchCmd.Flags().Bool("watch-perfdata", true, "Rescan as soon as perf-data files change")

	v.BindPFlag("discovery.interval", watchCmd.Flags().Lookup("interval"))
	v.BindPFlag("metrics.listen", watchCmd.Flags().Lookup("metrics-listen"))
	v.BindPFlag("discovery.watch_perfdata", watchCmd.Flags().Lookup("watch-perfdata"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector metrics.Collector = metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.Listen != "" {
		prom = metrics.NewPrometheus(cfg.Metrics.Namespace)
		collector = prom
	}

	provider := newProvider()
	registry := discovery.NewRegistry()
	engine := discovery.NewEngine(provider, registry,
		discovery.WithInterval(cfg.Discovery.Interval),
		discovery.WithPropertyTTL(cfg.Discovery.PropertyTTL),
		discovery.WithMetricsCollector(collector),
		discovery.WithSink(discovery.SinkFuncs{
			OnAdded: func(id string) {
				if t, ok := registry.Get(id); ok {
					fmt.Printf("+ %-8s %s (%s %s)\n", id, t.MainClass(), t.VMName(), t.JavaVersion())
				}
			},
			OnRemoved: func(id string) {
				fmt.Printf("- %s\n", id)
			},
		}),
	)
	defer engine.Shutdown()

	fmt.Printf("Watching %s for JVMs every %v\n", provider.TmpDir(), engine.Interval())
	engine.Scan()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(ctx)
	})

	if cfg.Discovery.WatchPerfData {
		g.Go(func() error {
			return provider.Watch(ctx, engine.Trigger)
		})
	}

	if prom != nil {
		metricsServer := &http.Server{
			Addr:    cfg.Metrics.Listen,
			Handler: promhttp.HandlerFor(prom.Registry(), promhttp.HandlerOpts{}),
		}
		fmt.Printf("Prometheus metrics endpoint: http://%s/metrics\n", cfg.Metrics.Listen)

		g.Go(func() error {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Command taskq-bench runs a synthetic task graph through the runner and
// reports queue statistics.
package main

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tq "github.com/azargarov/taskqueue"
	"github.com/azargarov/taskqueue/internal/config"
	"github.com/azargarov/taskqueue/promstats"
	"github.com/azargarov/taskqueue/runner"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath     string
		workers     int
		tasks       int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:          "taskq-bench",
		Short:        "Run a synthetic task graph over per-worker priority queues",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("tasks") {
				cfg.Graph.Tasks = tasks
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of workers (default GOMAXPROCS)")
	cmd.Flags().IntVarP(&tasks, "tasks", "n", 0, "number of tasks in the graph")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address while running")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	return runWith(ctx, cfg, logger, os.Stdout)
}

// runWith executes the benchmark, logging to logger and writing the
// summary to out.
func runWith(ctx context.Context, cfg config.Config, logger *zap.Logger, out io.Writer) error {
	reg := prometheus.NewRegistry()
	collectors, err := promstats.NewCollectors(reg)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := newMetricsServer(cfg.MetricsAddr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	g, err := buildGraph(cfg.Graph)
	if err != nil {
		return err
	}

	stats := make([]*tq.AtomicMetrics, 0)
	opts := cfg.RunnerOptions()
	opts.Queue.Logger = logger.Named("queue")
	opts.Metrics = func(i int) tq.MetricsPolicy {
		m := &tq.AtomicMetrics{}
		stats = append(stats, m)
		return tee{m, collectors.ForQueue(strconv.Itoa(i))}
	}
	opts.OnInternalError = func(err error) { logger.Warn("runner internal error", zap.Error(err)) }

	r, err := runner.New(g, opts)
	if err != nil {
		return err
	}

	ctx = lg.Attach(ctx, zlogger{logger.Named("runner")})
	logger.Info("starting run", zap.Int("tasks", g.Len()), zap.Int("workers", len(stats)))
	start := time.Now()
	runErr := r.Run(ctx)
	elapsed := time.Since(start)

	printSummary(out, g.Len(), elapsed, stats)
	return runErr
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
}

// buildGraph creates a random DAG. Every task depends on up to MaxDeps
// earlier tasks and touches a few resources.
func buildGraph(gc config.GraphConfig) (*runner.Graph, error) {
	rng := rand.New(rand.NewSource(gc.Seed))
	g := runner.NewGraph()
	work := gc.WorkFor

	for i := range gc.Tasks {
		var res []uint64
		if gc.Resources > 0 {
			first := uint64(rng.Intn(gc.Resources))
			for k := range min(uint64(1+rng.Intn(3)), uint64(gc.Resources)) {
				res = append(res, (first+k)%uint64(gc.Resources))
			}
		}
		ref := g.AddTask(&runner.Task{
			Name:      "task-" + strconv.Itoa(i),
			Cost:      1 + rng.Float32(),
			Resources: res,
			Queue:     runner.AnyQueue,
			Fn: func(context.Context) error {
				spin(work)
				return nil
			},
		})
		if i == 0 || gc.MaxDeps == 0 {
			continue
		}
		for range rng.Intn(gc.MaxDeps + 1) {
			from := tq.TaskRef(rng.Intn(i))
			if err := g.AddUnlock(from, ref); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// spin burns CPU for roughly d.
func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

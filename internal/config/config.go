// Package config loads taskq-bench settings from defaults, an optional
// YAML file and TASKQ_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	tq "github.com/azargarov/taskqueue"
	"github.com/azargarov/taskqueue/runner"
)

const envPrefix = "TASKQ"

// Config holds all settings of the benchmark command.
type Config struct {
	LogLevel    string
	MetricsAddr string

	Workers    int
	PinWorkers bool

	Queue QueueConfig
	Retry runner.RetryPolicy
	Graph GraphConfig
}

// QueueConfig mirrors taskqueue.Options.
type QueueConfig struct {
	InitialSize  int
	GrowthFactor int
	IncomingSize int
	SearchWindow int
}

// GraphConfig shapes the synthetic task graph.
type GraphConfig struct {
	Tasks     int
	MaxDeps   int
	Resources int
	Seed      int64
	WorkFor   time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("workers", 0)
	v.SetDefault("pin_workers", false)

	v.SetDefault("queue.initial_size", tq.DefaultInitialSize)
	v.SetDefault("queue.growth_factor", tq.DefaultGrowthFactor)
	v.SetDefault("queue.incoming_size", tq.DefaultIncomingSize)
	v.SetDefault("queue.search_window", tq.DefaultSearchWindow)

	v.SetDefault("retry.attempts", 1)
	v.SetDefault("retry.initial", "10ms")
	v.SetDefault("retry.max", "1s")

	v.SetDefault("graph.tasks", 10000)
	v.SetDefault("graph.max_deps", 3)
	v.SetDefault("graph.resources", 64)
	v.SetDefault("graph.seed", 1)
	v.SetDefault("graph.work_for", "20us")
}

// Load reads the configuration. An empty path skips the file.
// Environment variables override the file, e.g. TASKQ_QUEUE_SEARCH_WINDOW.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := Config{
		LogLevel:    v.GetString("log_level"),
		MetricsAddr: v.GetString("metrics_addr"),
		Workers:     v.GetInt("workers"),
		PinWorkers:  v.GetBool("pin_workers"),
		Queue: QueueConfig{
			InitialSize:  v.GetInt("queue.initial_size"),
			GrowthFactor: v.GetInt("queue.growth_factor"),
			IncomingSize: v.GetInt("queue.incoming_size"),
			SearchWindow: v.GetInt("queue.search_window"),
		},
		Retry: runner.RetryPolicy{
			Attempts: v.GetInt("retry.attempts"),
			Initial:  v.GetDuration("retry.initial"),
			Max:      v.GetDuration("retry.max"),
		},
		Graph: GraphConfig{
			Tasks:     v.GetInt("graph.tasks"),
			MaxDeps:   v.GetInt("graph.max_deps"),
			Resources: v.GetInt("graph.resources"),
			Seed:      v.GetInt64("graph.seed"),
			WorkFor:   v.GetDuration("graph.work_for"),
		},
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Graph.Tasks < 0 || c.Graph.MaxDeps < 0 || c.Graph.Resources < 0 {
		return errors.New("graph sizes must not be negative")
	}
	opts := c.QueueOptions()
	opts.FillDefaults()
	return errors.Wrap(opts.Validate(), "queue")
}

// QueueOptions converts the queue section to taskqueue options.
func (c Config) QueueOptions() tq.Options {
	return tq.Options{
		InitialSize:  c.Queue.InitialSize,
		GrowthFactor: c.Queue.GrowthFactor,
		IncomingSize: c.Queue.IncomingSize,
		SearchWindow: c.Queue.SearchWindow,
	}
}

// RunnerOptions converts the configuration to runner options. Handlers,
// metrics and the queue logger are left for the caller to set.
func (c Config) RunnerOptions() runner.Options {
	return runner.Options{
		Workers:    c.Workers,
		PinWorkers: c.PinWorkers,
		Queue:      c.QueueOptions(),
		Retry:      c.Retry,
	}
}

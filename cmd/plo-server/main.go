package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/okihara/plo-game-sub001/internal/metrics"
	"github.com/okihara/plo-game-sub001/internal/server"
	"github.com/okihara/plo-game-sub001/internal/server/history"
)

var CLI struct {
	Serve ServeCmd `cmd:"" default:"withargs" help:"Run the table server"`
	Check CheckCmd `cmd:"" help:"Validate a configuration file"`
}

type ServeCmd struct {
	Config   string `short:"c" long:"config" help:"Path to HCL configuration file"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
}

type CheckCmd struct {
	Config string `short:"c" long:"config" required:"" help:"Path to HCL configuration file"`
}

func main() {
	ctx := kong.Parse(&CLI)
	ctx.FatalIfErrorf(ctx.Run())
}

func (cmd *ServeCmd) Run() error {
	cfg, err := server.LoadConfig(cmd.Config)
	if err != nil {
		return err
	}
	if cmd.LogLevel != "" {
		cfg.Server.LogLevel = cmd.LogLevel
	}

	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Server.LogLevel, err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})

	m := metrics.New()
	recorder, err := buildRecorder(cfg, logger, m)
	if err != nil {
		return err
	}
	if recorder != nil {
		defer recorder.Close()
	}

	clock := quartz.NewReal()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	manager := server.NewManager(cfg, logger, clock, m, recorder, rng)
	srv := server.NewServer(cfg, logger, clock, m, manager)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(runCtx)
}

func buildRecorder(cfg *server.Config, logger *log.Logger, m *metrics.Metrics) (*history.Recorder, error) {
	if cfg.History == nil {
		return nil, nil
	}
	var sinks []history.Sink
	if cfg.History.Dir != "" {
		fs, err := history.NewFileSink(cfg.History.Dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}
	if cfg.History.PHHDir != "" {
		ps, err := history.NewPHHSink(cfg.History.PHHDir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ps)
	}
	if cfg.History.PostgresDSN != "" {
		pg, err := history.NewPostgresSink(cfg.History.PostgresDSN)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, pg)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	counters := history.Counters{
		Recorded: m.HistoryRecords.Inc,
		Failed: func(sink string) {
			m.HistoryFailures.WithLabelValues(sink).Inc()
		},
	}
	return history.NewRecorder(logger, history.RecorderConfig{
		QueueSize:     cfg.History.QueueSize,
		FlushInterval: cfg.History.FlushEvery(),
	}, counters, sinks...), nil
}

func (cmd *CheckCmd) Run() error {
	cfg, err := server.LoadConfig(cmd.Config)
	if err != nil {
		return err
	}
	fmt.Printf("config ok: %d table(s)\n", len(cfg.Tables))
	for _, t := range cfg.Tables {
		mode := "regular"
		if t.FastFold {
			mode = "fast-fold"
		}
		buyIn := t.BuyIn
		if buyIn == 0 {
			buyIn = server.DefaultBuyInBigBlinds * t.BigBlind
		}
		fmt.Printf("  %-16s %d/%d %s buy-in %d\n", t.Name, t.SmallBlind, t.BigBlind, mode, buyIn)
	}
	return nil
}

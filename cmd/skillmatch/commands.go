package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/poiesic/skillmatch"
	"github.com/poiesic/skillmatch/config"
	"github.com/poiesic/skillmatch/metrics"
	"github.com/poiesic/skillmatch/pipeline"
	"github.com/poiesic/skillmatch/server"
	"github.com/poiesic/skillmatch/storage"
)

type commands struct {
	extra []skillmatch.MatcherOption
	zap   *zap.Logger
}

func (c *commands) open(ctx context.Context, cfg config.Config, opts ...skillmatch.MatcherOption) (*skillmatch.Matcher, error) {
	opts = append(opts, c.extra...)
	return skillmatch.New(ctx, cfg, opts...)
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c *commands) match(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool("no-filter") {
		cfg.Filter.Enabled = false
	}
	if n := ctx.Int("batch-size"); n > 0 {
		cfg.Dispatch.MaxBatchSize = n
	}

	req := pipeline.Request{
		Dir:   ctx.String("dir"),
		Paths: ctx.Args().Slice(),
		Query: ctx.String("query"),
		Force: ctx.Bool("force"),
	}
	if req.Dir == "" && len(req.Paths) == 0 {
		return fmt.Errorf("either --dir or at least one file is required")
	}

	m, err := c.open(ctx.Context, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	res, err := m.Match(ctx.Context, req)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')

	if out := ctx.String("out"); out != "" {
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		slog.Info("wrote result", "path", out, "records", len(res.Records))
		return nil
	}
	_, err = ctx.App.Writer.Write(data)
	return err
}

func (c *commands) serve(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if addr := ctx.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	matcher, err := c.open(runCtx, cfg, skillmatch.WithMetrics(m))
	if err != nil {
		return err
	}
	defer matcher.Close()

	srv, err := server.New(matcher,
		server.WithMetrics(m, prometheus.DefaultGatherer),
		server.WithAddr(cfg.Server.Addr),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout))
	if err != nil {
		return err
	}
	return srv.ListenAndServe(runCtx)
}

func (c *commands) clearCache(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	tier := storage.Tier(ctx.String("tier"))
	if tier != "" {
		if err := tier.Validate(); err != nil {
			return err
		}
	}

	m, err := c.open(ctx.Context, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	key := ctx.String("key")
	if err := m.ClearCache(ctx.Context, tier, key); err != nil {
		return err
	}

	target := "all tiers"
	if tier != "" {
		target = string(tier) + " tier"
	}
	if key != "" {
		fmt.Fprintf(ctx.App.Writer, "removed %s from %s\n", key, target)
	} else {
		fmt.Fprintf(ctx.App.Writer, "cleared %s\n", target)
	}
	return nil
}

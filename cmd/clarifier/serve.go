package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clarifier/pkg/api"
	"clarifier/pkg/config"
	"clarifier/pkg/logx"
	"clarifier/pkg/persistence"
	"clarifier/pkg/version"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	projectDir := fs.String("projectdir", ".", "Project directory")
	tee := fs.Bool("tee", false, "Output logs to both console and file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Println("⏳ Starting up...")

	cfg, cleanup, err := setupProject(*projectDir, *tee)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dbPath := cfg.DatabasePath(*projectDir)
	store, err := persistence.Open(ctx, dbPath)
	if err != nil {
		return logx.Wrap(err, "failed to open database")
	}
	defer func() { _ = store.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	machine, err := buildMachine(ctx, &cfg, store, reg)
	if err != nil {
		return err
	}

	config.LogInfo("🚀 %s", version.String())
	config.LogInfo("📁 Database: %s, model: %s", dbPath, cfg.Generation.Model)

	server := api.NewServer(machine,
		api.WithStatusCounter(store),
		api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		api.WithShutdownTimeout(shutdownTimeout(&cfg)))

	fmt.Printf("✅ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	logx.Infof("API listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
	return server.StartServer(ctx, cfg.Server.Host, cfg.Server.Port)
}

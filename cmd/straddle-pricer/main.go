package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/contactkeval/straddle-pricer/internal/config"
	"github.com/contactkeval/straddle-pricer/internal/engine"
	"github.com/contactkeval/straddle-pricer/internal/logger"
	"github.com/contactkeval/straddle-pricer/internal/report"
	"github.com/contactkeval/straddle-pricer/internal/server"
)

func main() {
	configPath := flag.String("config", filepath.Join("configs", "straddle.yaml"), "path to YAML or JSON config")
	rest := flag.Bool("rest", false, "run as REST server")
	port := flag.String("port", "", "REST server listen address (overrides config addr)")
	flag.Parse()

	if err := run(*configPath, *rest, *port); err != nil {
		logger.Errorf("%v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(configPath string, rest bool, port string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.SetVerbosity(cfg.Verbosity)

	prov, err := engine.NewProvider(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rest {
		addr := port
		if addr == "" {
			addr = cfg.Addr
		}
		if addr == "" {
			addr = ":8080"
		}
		return server.New(cfg, prov).ListenAndServe(ctx, addr)
	}

	res, err := engine.NewEngine(cfg, prov).Run(ctx)
	if err != nil {
		return err
	}
	if err := report.WriteAll(res, cfg.ReportDir); err != nil {
		return err
	}
	fmt.Println(report.Summary(res))
	logger.Infof("finished in %v, wrote reports to %s", res.Elapsed, cfg.ReportDir)
	return nil
}

// Command jobassist is a terminal client for the job application assistant.
//
//	jobassist apply [-resume-file cv.pdf]
//	jobassist chat [-m "make it shorter"]
//	jobassist export -type resume -format pdf -out resume.pdf
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"jobassist/internal/bootstrap"
	"jobassist/internal/shared/config"
	"jobassist/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if err := telemetry.Configure(cfg.Env, cfg.LogFormat); err != nil {
		log.Printf("telemetry: %v", err)
	}
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, func(ctx context.Context) (*bootstrap.App, error) {
		return bootstrap.BuildCore(ctx, cfg)
	})
	stop()
	telemetry.Sync()
	os.Exit(code)
}

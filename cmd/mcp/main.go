package main

import (
	"context"
	"fmt"
	"os"

	mcpadapter "github.com/kirillkom/doc-annotator/internal/adapters/mcp"
	"github.com/kirillkom/doc-annotator/internal/bootstrap"
	"github.com/kirillkom/doc-annotator/internal/config"
	"github.com/kirillkom/doc-annotator/internal/observability/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}
	// stdout carries the protocol.
	logger := logging.New(os.Stderr, "annotator-mcp", cfg.LogFormat, cfg.LogLevel)

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Service: "annotator-mcp", Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.New(app.PipelineUC, app.Extractor, app.Capabilities, cfg.DefaultMaxWords, version, logger)
	if err := server.ServeStdio(); err != nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}

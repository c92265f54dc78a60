package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/kirillkom/doc-annotator/internal/adapters/cli"
	"github.com/kirillkom/doc-annotator/internal/bootstrap"
	"github.com/kirillkom/doc-annotator/internal/config"
	"github.com/kirillkom/doc-annotator/internal/core/domain"
	"github.com/kirillkom/doc-annotator/internal/infrastructure/queue/nats"
	"github.com/kirillkom/doc-annotator/internal/observability/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv("ANNOTATOR_CONFIG"), "path to YAML config file")
	mode := flag.String("mode", string(domain.ProfileAnnotation), "generation mode: annotation or title")
	output := flag.String("o", "", "batch results file (.json or .xlsx), default "+cli.DefaultOutput)
	enqueue := flag.Bool("enqueue", false, "publish annotation jobs to NATS for the worker instead of running locally")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: annotate [flags] [<file> [max_words] | <dir> [output]]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 2
	}
	profile, ok := domain.ParseProfile(*mode)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown mode %q, expected annotation or title\n", *mode)
		return 2
	}

	// stdout belongs to the user-facing output.
	format := cfg.LogFormat
	if os.Getenv("ANNOTATOR_LOG_FORMAT") == "" {
		format = "text"
	}
	logger := logging.New(os.Stderr, "annotator-cli", format, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *enqueue {
		return runEnqueue(ctx, cfg, profile, logger)
	}

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "annotator-cli", Logger: logger})
	if err != nil {
		if bootstrap.IsStartupModelError(err) {
			fmt.Fprintf(os.Stderr, "model %q is not available at %s: %v\n", cfg.OllamaModel, cfg.OllamaURL, err)
		} else {
			fmt.Fprintf(os.Stderr, "bootstrap error: %v\n", err)
		}
		return 1
	}
	defer app.Close()

	front := cli.New(app.PipelineUC, app.BatchUC, app.Capabilities, cli.Options{
		Profile:         profile,
		Output:          *output,
		DefaultMaxWords: cfg.DefaultMaxWords,
	}, os.Stdin, os.Stdout, logger)
	return front.Run(ctx, flag.Args())
}

func runEnqueue(ctx context.Context, cfg config.Config, profile domain.Profile, logger *slog.Logger) int {
	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "-enqueue needs a file or directory argument")
		return 2
	}
	maxWords := cfg.DefaultMaxWords
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			maxWords = n
		}
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "nats connect: %v\n", err)
		return 1
	}
	defer queue.Close()

	n, err := cli.Enqueue(ctx, queue, args[0], maxWords, profile)
	fmt.Printf("Отправлено заданий: %d (%s)\n", n, cfg.NATSSubject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enqueue error: %v\n", err)
		return 1
	}
	return 0
}

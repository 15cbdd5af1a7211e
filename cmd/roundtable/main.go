// Command roundtable is the module's CLI, grounded on
// _examples/BaSui01-agentflow/cmd/agentflow/main.go's os.Args[1] subcommand switch,
// flag.NewFlagSet-per-subcommand style, and zap encoder-config
// initialization.
//
// Usage:
//
//	roundtable start --title T --content-file doc.md [--config config.yaml]
//	roundtable status [--config config.yaml] <session-id>
//	roundtable watch [--config config.yaml] <session-id>
//	roundtable report [--config config.yaml] <session-id>
//	roundtable version
//	roundtable help
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/va2ai/ai-agent-orchestration-platform/config"
	"github.com/va2ai/ai-agent-orchestration-platform/roundtable"
	"github.com/va2ai/ai-agent-orchestration-platform/testutil/mocks"
	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		runStart(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func loadConfig(configPath string) *config.Config {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runStart(args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	title := fs.String("title", "", "Document title")
	contentFile := fs.String("content-file", "", "Path to the document to refine")
	goal := fs.String("goal", "", "Optional goal for the roundtable")
	preset := fs.String("preset", "", "Preset: prd, code-review, architecture, business-strategy")
	fs.Parse(args)

	if *title == "" || *contentFile == "" {
		fmt.Fprintln(os.Stderr, "start requires --title and --content-file")
		os.Exit(1)
	}
	content, err := os.ReadFile(*contentFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read content file: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	// This module has no built-in LLM provider integration (out of scope
	// per this project's spec); the CLI drives the mock client so the
	// pipeline is runnable end to end without external credentials. Embed
	// the roundtable package directly and pass a real llmclient.LLMClient
	// to exercise a real model.
	client := mocks.NewSuccess(`{"issues":[],"overall_assessment":"Looks solid."}`)

	rtb, err := roundtable.New(cfg, client, roundtable.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build roundtable: %v\n", err)
		os.Exit(1)
	}
	defer rtb.Close(context.Background())

	sessionConfig := roundtable.DefaultConfig()
	sessionConfig.MaxIterations = cfg.Session.MaxIterations
	sessionConfig.NumParticipants = cfg.Session.NumParticipants
	sessionConfig.DeltaThreshold = cfg.Session.DeltaThreshold
	sessionConfig.StopOnNoHighIssues = cfg.Session.StopOnNoHighIssues
	sessionConfig.ForceMaxIterations = cfg.Session.ForceMaxIterations
	sessionConfig.Model = cfg.Session.Model
	sessionConfig.ModelStrategy = types.ModelStrategy(cfg.Session.ModelStrategy)
	if *preset != "" {
		sessionConfig.Preset = types.Preset(*preset)
	}

	sessionID, err := rtb.Start(context.Background(), roundtable.StartRequest{
		Title:        *title,
		Content:      string(content),
		Goal:         *goal,
		DocumentType: "document",
		Config:       sessionConfig,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start session: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(sessionID)
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "status requires a session id")
		os.Exit(1)
	}
	sessionID := fs.Arg(0)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	client := mocks.NewSuccess("")
	rtb, err := roundtable.New(cfg, client, roundtable.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build roundtable: %v\n", err)
		os.Exit(1)
	}
	defer rtb.Close(context.Background())

	sess, err := rtb.Status(context.Background(), sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load session: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("session:   %s\n", sess.SessionID)
	fmt.Printf("status:    %s\n", sess.Status)
	fmt.Printf("iteration: %d\n", sess.CurrentIteration)
	fmt.Printf("stopped_by: %s\n", sess.StoppedBy)
}

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "report requires a session id")
		os.Exit(1)
	}
	sessionID := fs.Arg(0)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	client := mocks.NewSuccess("")
	rtb, err := roundtable.New(cfg, client, roundtable.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build roundtable: %v\n", err)
		os.Exit(1)
	}
	defer rtb.Close(context.Background())

	report, err := rtb.GetReport(context.Background(), sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("title:              %s\n", report.Title)
	fmt.Printf("iterations:         %d\n", report.IterationCount)
	fmt.Printf("converged:          %v\n", report.Converged)
	fmt.Printf("stopped_by:         %s\n", report.StoppedBy)
	fmt.Printf("final_version:      %d\n", report.FinalVersion)
	fmt.Printf("total_issues:       %d\n", report.TotalIssuesIdentified)
	fmt.Printf("total_tokens:       %d\n", report.TokenCounts.TotalTokens)
}

func printVersion() {
	fmt.Printf("roundtable %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`roundtable - iterative multi-reviewer document refinement

Usage:
  roundtable <command> [options]

Commands:
  start     Start a new roundtable session
  status    Show a session's current status
  watch     Follow a session's live event stream in a terminal UI
  report    Print a completed session's convergence report
  version   Show version information
  help      Show this help message

Options for 'start':
  --config <path>         Path to configuration file (YAML)
  --title <title>         Document title (required)
  --content-file <path>   Path to the document to refine (required)
  --goal <goal>           Optional goal for the roundtable
  --preset <name>         prd, code-review, architecture, or business-strategy

Examples:
  roundtable start --title "API Design" --content-file design.md
  roundtable status 3fa9c1c2-...
  roundtable watch 3fa9c1c2-...
  roundtable report 3fa9c1c2-...`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddCaller())
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

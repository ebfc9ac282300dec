package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/pennapps-tabby/tabby-demo/internal/bill"
	"github.com/pennapps-tabby/tabby-demo/internal/vision"
	"github.com/pennapps-tabby/tabby-demo/pkg/logging"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("tabby")
	var (
		port            = fs.IntLong("port", 8000, "HTTP server port")
		dbPath          = fs.StringLong("db", "tabby.db", "Database file path")
		storagePath     = fs.StringLong("storage", "./receipts", "Receipt image storage directory")
		interpreterType = fs.StringLong("interpreter", "gemini", "Receipt interpreter: 'gemini', 'ollama' or 'fallback'")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = fs.StringLong("gemini-model", "gemini-2.5-flash-lite", "Google Gemini model name")
		ollamaURL       = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel     = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		payBaseURL      = fs.StringLong("pay-base-url", "", "Base URL of the hosted pay page (empty for direct Venmo links)")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("TABBY"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logging.Setup()

	// Initialize database
	slog.Info("Initializing database...")
	db, err := bill.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize receipt interpreter based on type
	newGemini := func() (vision.Interpreter, error) {
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		slog.Info("Initializing Gemini interpreter...", "model", *geminiModel)
		return vision.NewGemini(apiKey, *geminiModel)
	}
	newOllama := func() (vision.Interpreter, error) {
		slog.Info("Initializing Ollama interpreter...", "url", *ollamaURL, "model", *ollamaModel)
		return vision.NewOllama(*ollamaURL, *ollamaModel)
	}

	var interpreter vision.Interpreter
	switch *interpreterType {
	case "gemini":
		interpreter, err = newGemini()
	case "ollama":
		interpreter, err = newOllama()
	case "fallback":
		// Gemini first, Ollama picks up when Gemini is down or rate limited
		var gemini, ollama vision.Interpreter
		gemini, err = newGemini()
		if err == nil {
			ollama, err = newOllama()
		}
		if err == nil {
			interpreter, err = vision.NewFallback(gemini, ollama)
		}
	default:
		slog.Error("Invalid interpreter type", "type", *interpreterType, "valid", "gemini, ollama or fallback")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize interpreter", "error", err)
		os.Exit(1)
	}
	defer interpreter.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := bill.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service and server
	billService := bill.NewService(db, interpreter, store, *payBaseURL)
	server := bill.NewServer(billService)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

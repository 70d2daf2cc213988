package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"

	"github.com/zombor/pantry-tracker/internal/catalog"
	"github.com/zombor/pantry-tracker/internal/dictation"
	"github.com/zombor/pantry-tracker/internal/enhance"
	"github.com/zombor/pantry-tracker/internal/extraction"
	"github.com/zombor/pantry-tracker/internal/inventory"
	"github.com/zombor/pantry-tracker/internal/receipt"
	"github.com/zombor/pantry-tracker/internal/scanning"
	"github.com/zombor/pantry-tracker/internal/scanning/tesseract"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("pantry-tracker")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "pantry-tracker.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./receipts", "Receipt image storage directory")
		recognizerType = fs.StringLong("recognizer", "gemini", "OCR engine: 'gemini', 'ollama' or 'tesseract'")
		enhancerType   = fs.StringLong("enhancer", "none", "Item enhancement: 'gemini', 'ollama' or 'none'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		tesseractLang  = fs.StringLong("tesseract-lang", "eng", "Tesseract language code")
		threshold      = fs.IntLong("binarize-threshold", scanning.DefaultThreshold, "Gray level (1-255) separating ink from paper before local OCR")
		enhanceDelay   = fs.DurationLong("enhance-delay", enhance.DefaultDelay, "Pause between two item enhancement calls")
		inventoryURL   = fs.StringLong("inventory-url", "", "Inventory API base URL; commits are kept locally when empty")
		inventoryToken = fs.StringLong("inventory-token", "", "Bearer token for the inventory API")
		vocabularyPath = fs.StringLong("vocabulary", "", "YAML file overriding the receipt extraction tables")
		catalogPath    = fs.StringLong("catalog", "", "YAML file overriding the category and shelf-life tables")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PANTRY_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Process-wide: prices are JSON numbers in stored runs, API responses and
	// the inventory payload alike. Set before anything is encoded.
	decimal.MarshalJSONWithoutQuotes = true

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *threshold < 1 || *threshold > 255 {
		fatal("Invalid binarize threshold", "threshold", *threshold, "valid", "1-255")
	}

	// Load tables
	vocab := extraction.DefaultVocabulary()
	if *vocabularyPath != "" {
		var err error
		vocab, err = extraction.LoadVocabulary(*vocabularyPath)
		if err != nil {
			fatal("Failed to load vocabulary", "path", *vocabularyPath, "error", err)
		}
	}
	foods := catalog.New()
	if *catalogPath != "" {
		var err error
		foods, err = catalog.Load(*catalogPath)
		if err != nil {
			fatal("Failed to load catalog", "path", *catalogPath, "error", err)
		}
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		fatal("Failed to initialize database", "error", err)
	}
	defer db.Close()

	// Gemini is shared when it serves as both recognizer and enhancer
	var gemini *scanning.Gemini
	geminiClient := func() *scanning.Gemini {
		if gemini != nil {
			return gemini
		}
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			fatal("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		slog.Info("Initializing Gemini...", "model", *geminiModel)
		g, err := scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			fatal("Failed to initialize Gemini", "error", err)
		}
		gemini = g
		return gemini
	}
	var ollama *scanning.Ollama
	ollamaClient := func() *scanning.Ollama {
		if ollama != nil {
			return ollama
		}
		slog.Info("Initializing Ollama...", "url", *ollamaURL, "model", *ollamaModel)
		o, err := scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			fatal("Failed to initialize Ollama", "error", err)
		}
		ollama = o
		return ollama
	}

	// Initialize recognizer based on type
	var recognizer scanning.Recognizer
	switch *recognizerType {
	case "gemini":
		recognizer = geminiClient()
	case "ollama":
		recognizer = ollamaClient()
	case "tesseract":
		slog.Info("Initializing Tesseract...", "language", *tesseractLang, "threshold", *threshold)
		recognizer = tesseract.New(*tesseractLang, uint8(*threshold))
	default:
		fatal("Invalid recognizer type", "type", *recognizerType, "valid", "gemini, ollama or tesseract")
	}
	defer recognizer.Close()

	// Initialize enhancer based on type
	var enhancer enhance.Enhancer
	switch *enhancerType {
	case "gemini":
		enhancer = geminiClient()
	case "ollama":
		enhancer = ollamaClient()
	case "none":
	default:
		fatal("Invalid enhancer type", "type", *enhancerType, "valid", "gemini, ollama or none")
	}

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		fatal("Failed to initialize storage", "error", err)
	}

	var committer receipt.Committer = db
	if *inventoryURL != "" {
		slog.Info("Committing to inventory API", "url", *inventoryURL)
		committer = inventory.NewClient(*inventoryURL, *inventoryToken)
	} else {
		slog.Info("No inventory API configured, keeping commits in the local database")
	}

	opts := receipt.Options{
		Parser:      extraction.NewParser(vocab, foods),
		Dictation:   dictation.NewParser(foods),
		Categorizer: foods,
		Committer:   committer,
	}
	if enhancer != nil {
		opts.Enhancer = enhance.NewGateway(enhancer, foods, *enhanceDelay)
	}
	service := receipt.NewService(db, recognizer, store, opts)

	// Initialize server
	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(service, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			fatal("Server error", "error", err)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Shutdown error", "error", err)
	}
}

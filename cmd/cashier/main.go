package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/cashier/internal/sale"
	"github.com/zombor/cashier/internal/scanning"
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

	// A missing .env is fine, flags and the environment still apply
	_ = godotenv.Load()

	fs := ff.NewFlagSet("cashier")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "cashier.db", "Sales database file path")
		storagePath = fs.StringLong("storage", "./data", "Directory for item state and images")
		timezone    = fs.StringLong("timezone", "", "IANA time zone for daily/monthly revenue (default: local)")
		scannerType = fs.StringLong("scanner", "none", "Ticket scanner: 'none', 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("CASHIER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	loc := time.Local
	if *timezone != "" {
		var err error
		loc, err = time.LoadLocation(*timezone)
		if err != nil {
			slog.Error("Invalid time zone", "timezone", *timezone, "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Initializing database...", "path", *dbPath)
	db, err := sale.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing storage...", "path", *storagePath)
	store, err := sale.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	scanner, err := newScanner(*scannerType, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel)
	if err != nil {
		slog.Error("Failed to initialize scanner", "type", *scannerType, "error", err)
		os.Exit(1)
	}
	if scanner != nil {
		defer scanner.Close()
	}

	service, err := sale.NewService(db, store, scanner)
	if err != nil {
		slog.Error("Failed to load item state", "error", err)
		os.Exit(1)
	}
	service.SetLocation(loc)

	hub := sale.NewHub()
	service.SetNotifier(hub)

	basicAuth := sale.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           sale.NewServer(service, hub, basicAuth),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", httpServer.Addr), "timezone", loc.String())
		if basicAuth.Username != "" || basicAuth.Password != "" {
			slog.Info("Basic auth enabled", "user", basicAuth.Username)
		}
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// newScanner builds the configured ticket scanner, or nil when scanning is off
func newScanner(kind, geminiKey, geminiModel, ollamaURL, ollamaModel string) (scanning.Scanner, error) {
	switch kind {
	case "", "none":
		return nil, nil
	case "gemini":
		if geminiKey == "" {
			geminiKey = os.Getenv("GEMINI_API_KEY")
		}
		if geminiKey == "" {
			return nil, errors.New("gemini API key is required, set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini scanner...", "model", geminiModel)
		return scanning.NewGemini(geminiKey, geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", ollamaURL, "model", ollamaModel)
		return scanning.NewOllama(ollamaURL, ollamaModel)
	default:
		return nil, fmt.Errorf("unknown scanner type %q (valid: none, gemini, ollama)", kind)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/nextrep/internal/config"
	"github.com/claude/nextrep/internal/ingest/alpha"
	"github.com/claude/nextrep/internal/scoring"
	"github.com/claude/nextrep/internal/storage"
	"github.com/claude/nextrep/internal/upload"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	serverURL := flag.String("server", "", "NextRep server URL; uploads through the API instead of writing the store")
	apiKey := flag.String("api-key", "", "API key for the import endpoint (or NEXTREP_API_KEY)")
	stateDir := flag.String("state-dir", defaultStateDir(), "directory for upload state")
	dryRun := flag.Bool("dry-run", false, "parse exports without sending them")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nextrep-import [flags] <export.csv | dir>...\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var files []string
	for _, arg := range flag.Args() {
		found, err := upload.ResolveExports(arg)
		if err != nil {
			log.Error("resolving exports", "path", arg, "error", err)
			os.Exit(1)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		log.Warn("no exports found")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	if *serverURL != "" {
		err = runRemote(ctx, *serverURL, *apiKey, *stateDir, *dryRun, files, log)
	} else {
		err = runLocal(ctx, *configPath, files, log)
	}
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
}

// runLocal writes sessions straight into the configured store.
func runLocal(ctx context.Context, configPath string, files []string, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	loc, err := cfg.Analytics.Location()
	if err != nil {
		return err
	}
	strategy, err := scoring.ByName(cfg.Analytics.Scoring)
	if err != nil {
		return err
	}

	store, closeStore, err := storage.Open(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Database.DSN(), log)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer closeStore()

	provider := alpha.NewProvider(store, strategy, loc, log)
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		res, err := provider.Ingest(ctx, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		fmt.Printf("%s: %d sessions imported, %d skipped, %d sets\n",
			filepath.Base(path), res.SessionsImported, res.SessionsSkipped, res.SetsReceived)
	}
	return nil
}

// runRemote uploads exports to a running server, skipping content it has
// already accepted.
func runRemote(ctx context.Context, serverURL, apiKey, stateDir string, dryRun bool, files []string, log *slog.Logger) error {
	if apiKey == "" {
		apiKey = os.Getenv("NEXTREP_API_KEY")
	}
	if apiKey == "" && !dryRun {
		return fmt.Errorf("an API key is required for uploads (-api-key or NEXTREP_API_KEY)")
	}

	state, err := upload.OpenStateDB(stateDir)
	if err != nil {
		return err
	}
	defer state.Close()

	u := upload.New(upload.NewClient(serverURL, apiKey), state, dryRun, log)
	stats, err := u.Run(ctx, files)
	if err != nil {
		return err
	}
	fmt.Printf("files: %d total, %d uploaded, %d skipped, %d errored; sessions: %d parsed, %d imported\n",
		stats.FilesTotal, stats.FilesUploaded, stats.FilesSkipped, stats.FilesErrored,
		stats.SessionsParsed, stats.SessionsImported)
	if stats.FilesErrored > 0 {
		return fmt.Errorf("%d exports failed", stats.FilesErrored)
	}
	return nil
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".nextrep"
	}
	return filepath.Join(dir, "nextrep")
}

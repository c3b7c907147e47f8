package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/claude/nextrep/internal/ingest/alpha"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SessionsParsed   int
	SessionsImported int
}

// Uploader sends Alpha Progression exports to a NextRep server, skipping
// files whose content was already uploaded there.
type Uploader struct {
	client *Client
	state  *StateDB
	server string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. state may be nil in dry-run mode.
func New(client *Client, state *StateDB, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		server: client.serverURL,
		dryRun: dryRun,
		log:    log,
	}
}

// Run uploads every file. A failing file is logged and counted; the others
// still go out.
func (u *Uploader) Run(ctx context.Context, files []string) (*Stats, error) {
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		u.stats.FilesTotal++
		if err := u.uploadFile(ctx, path); err != nil {
			u.stats.FilesErrored++
			u.log.Error("upload failed", "path", path, "error", err)
		}
	}
	if u.stats.FilesErrored > 0 {
		return &u.stats, fmt.Errorf("%d of %d files failed", u.stats.FilesErrored, u.stats.FilesTotal)
	}
	return &u.stats, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path string) error {
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}
	if u.state != nil {
		done, err := u.state.IsUploaded(u.server, hash)
		if err != nil {
			return fmt.Errorf("checking state: %w", err)
		}
		if done {
			u.stats.FilesSkipped++
			u.log.Debug("already uploaded", "path", path)
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}
	// Parse locally first so a broken export never reaches the server.
	sessions, err := alpha.Parse(bytes.NewReader(data), time.Local)
	if err != nil {
		return err
	}
	u.stats.SessionsParsed += len(sessions)

	if u.dryRun {
		u.log.Info("dry run", "path", path, "sessions", len(sessions))
		return nil
	}

	result, err := u.client.SendAlphaCSV(ctx, data)
	if err != nil {
		return err
	}
	u.stats.SessionsImported += result.SessionsImported
	u.stats.FilesUploaded++
	u.log.Info("uploaded", "path", path, "sessions", result.SessionsImported)

	if u.state != nil {
		if err := u.state.MarkUploaded(u.server, hash, path, result.SessionsImported); err != nil {
			return fmt.Errorf("recording upload: %w", err)
		}
	}
	return nil
}

// ResolveExports expands path into the CSV files to upload: the file itself,
// or every *.csv directly inside a directory, sorted by name.
func ResolveExports(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

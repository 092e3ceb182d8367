package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/movie-checklist/internal/catalog"
	"github.com/franz/movie-checklist/internal/config"
	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/store"
	"github.com/franz/movie-checklist/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure mcl can operate correctly.

This command checks:
- SQLite version
- Library database accessibility, integrity and schema version
- Catalog API configuration
- Catalog cache contents (stale entries are pruned)
- Event log directory permissions
- Disk space next to the database

Use this command to troubleshoot issues before using mcl.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== MCL Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{
		checkSQLite(),
		checkDatabase(cmd.Context(), cfg.DB),
		checkCatalogConfig(cfg.Catalog),
		checkCatalogCache(cfg.DB, cfg.Catalog.CacheTTL),
	}
	if cfg.EventsDir != "" {
		results = append(results, checkEventsDirectory(cfg.EventsDir))
	}
	results = append(results, checkDiskSpace(filepath.Dir(cfg.DB)))

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before using mcl.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed! mcl is ready.")
	}

	return nil
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	// modernc.org/sqlite is compiled in, there is no external library
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies the library database
func checkDatabase(ctx context.Context, dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Library",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Library",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Library",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Library",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Library",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Library",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	version, err := db.SchemaVersion()
	if err != nil {
		return checkResult{
			name:    "Library",
			error:   true,
			message: fmt.Sprintf("cannot read schema version: %v", err),
		}
	}

	counts, err := db.Counts(ctx)
	if err != nil {
		return checkResult{
			name:    "Library",
			error:   true,
			message: fmt.Sprintf("cannot count titles: %v", err),
		}
	}

	return checkResult{
		name: "Library",
		message: fmt.Sprintf("%s (%s, schema v%d, %d planned, %d watched)",
			dbPath, humanize.Bytes(uint64(info.Size())), version,
			counts[library.StatePlanned], counts[library.StateWatched]),
	}
}

// checkCatalogConfig verifies the catalog API settings
func checkCatalogConfig(c config.CatalogConfig) checkResult {
	if c.APIKey == "" {
		return checkResult{
			name:    "Catalog API",
			warning: true,
			message: "no API key (set catalog.api_key or MCL_CATALOG_API_KEY), search and details will fail",
		}
	}

	return checkResult{
		name:    "Catalog API",
		message: fmt.Sprintf("%s (%s, %.1f req/s)", c.BaseURL, c.Language, c.RateLimit),
	}
}

// checkCatalogCache reports cached detail lookups
func checkCatalogCache(dbPath string, ttl time.Duration) checkResult {
	if ttl <= 0 {
		return checkResult{
			name:    "Catalog cache",
			message: "disabled",
		}
	}
	if _, err := os.Stat(dbPath); err != nil {
		return checkResult{
			name:    "Catalog cache",
			message: "empty",
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Catalog cache",
			warning: true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	cache := catalog.NewCache(db.DB(), nil, ttl)
	if err := cache.EnsureSchema(); err != nil {
		return checkResult{
			name:    "Catalog cache",
			warning: true,
			message: err.Error(),
		}
	}

	pruned, err := cache.ClearOldEntries(ttl)
	if err != nil {
		return checkResult{
			name:    "Catalog cache",
			warning: true,
			message: fmt.Sprintf("cannot prune stale entries: %v", err),
		}
	}

	entries, hits, err := cache.GetStats()
	if err != nil {
		return checkResult{
			name:    "Catalog cache",
			warning: true,
			message: fmt.Sprintf("cannot read stats: %v", err),
		}
	}

	return checkResult{
		name:    "Catalog cache",
		message: fmt.Sprintf("%d entries, %d hits, ttl %s, %d stale pruned", entries, hits, ttl, pruned),
	}
}

// checkEventsDirectory verifies the event log directory is writable
func checkEventsDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return checkResult{
					name:    "Event log directory",
					error:   true,
					message: fmt.Sprintf("cannot create %s: %v", path, err),
				}
			}
			return checkResult{
				name:    "Event log directory",
				message: fmt.Sprintf("%s (created)", path),
			}
		}
		return checkResult{
			name:    "Event log directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Event log directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".mcl_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Event log directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	entries, _ := filepath.Glob(filepath.Join(path, "events-*.jsonl"))
	return checkResult{
		name:    "Event log directory",
		message: fmt.Sprintf("%s (writable, %d logs)", path, len(entries)),
	}
}

// checkDiskSpace verifies available disk space next to the database
func checkDiskSpace(path string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    "Disk space",
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)

	// The library is small; warn only when the disk is nearly full
	warning := availBytes < 100*1024*1024
	suffix := ""
	if warning {
		suffix = " (low space!)"
	}

	return checkResult{
		name:    "Disk space",
		warning: warning,
		message: fmt.Sprintf("%s available%s", humanize.Bytes(availBytes), suffix),
	}
}

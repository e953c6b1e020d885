// Package cli implements the cascade-memory CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lumera-labs/cascade-memory/internal/adapter"
	"github.com/lumera-labs/cascade-memory/internal/cascade"
	"github.com/lumera-labs/cascade-memory/internal/crypto"
	"github.com/lumera-labs/cascade-memory/internal/index"
	"github.com/lumera-labs/cascade-memory/internal/pipeline"
)

var (
	dbPath   string
	cacheDir string
	verbose  bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "cascade-memory",
	Short: "Privacy-first session memory with encrypted content-addressed storage",
	Long: "Stores agent session artifacts with fail-closed redaction, AES-256-GCM encryption,\n" +
		"and a local searchable pointer index. Raw session content is stored only on explicit opt-in.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Index database path (default: $LUMERA_MEMORY_DB or ~/.cascade-memory/index.db)")
	RootCmd.PersistentFlags().StringVarP(&cacheDir, "cache-dir", "c", "", "Blob storage root (default: $LUMERA_MEMORY_CACHE or ~/.cascade-memory/blobs)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging to stderr")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("LUMERA_MEMORY_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cascade-memory", "index.db")
}

func getCacheDir() string {
	if cacheDir != "" {
		return cacheDir
	}
	if env := os.Getenv("LUMERA_MEMORY_CACHE"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cascade-memory", "blobs")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openPipeline constructs the component graph. The returned cleanup closes
// the index.
func openPipeline() (*pipeline.Pipeline, func(), error) {
	keys, err := crypto.LoadKeychain()
	if err != nil {
		return nil, nil, err
	}
	blobs, err := cascade.NewFSConnector(getCacheDir())
	if err != nil {
		return nil, nil, err
	}
	idx, err := index.NewSQLiteIndex(getDBPath())
	if err != nil {
		return nil, nil, err
	}
	pipe := pipeline.New(adapter.Detect(), blobs, idx, keys, newLogger())
	return pipe, func() { idx.Close() }, nil
}

func openIndex() (*index.SQLiteIndex, error) {
	return index.NewSQLiteIndex(getDBPath())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/heic-converter/internal/session"
	"github.com/pdiddy/heic-converter/pkg/types"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List web sessions recorded in the session index",
	Long: `Sessions lists the sessions the web service has created under
--temp-dir, oldest first, with their file counts, sizes, and downloads.`,
	Args: cobra.NoArgs,
	RunE: runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openSessionStore(os.Stderr)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.Sessions(context.Background())
	if err != nil {
		return err
	}
	return writeSessions(os.Stdout, recs, format)
}

// openSessionStore opens the configured session root for listing and
// reaping. No converter is attached.
func openSessionStore(logw io.Writer) (*session.Store, error) {
	cfg := types.ServerConfig{TempDir: viper.GetString("server.temp_dir")}
	return session.NewStore(cfg, nil, logw)
}

func writeSessions(w io.Writer, recs []types.SessionRecord, format string) error {
	switch format {
	case "table", "":
		return writeSessionTable(w, recs)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		if recs == nil {
			recs = []types.SessionRecord{}
		}
		return enc.Encode(recs)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if recs == nil {
			recs = []types.SessionRecord{}
		}
		return enc.Encode(recs)
	default:
		return fmt.Errorf("unsupported format %q: use table, yaml, or json", format)
	}
}

func writeSessionTable(w io.Writer, recs []types.SessionRecord) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}

	fmt.Fprintf(w, "%-36s  %-20s  %5s  %10s  %9s\n", "Session", "Created", "Files", "Bytes", "Downloads")
	fmt.Fprintln(w, strings.Repeat("-", 88))
	for _, r := range recs {
		fmt.Fprintf(w, "%-36s  %-20s  %5d  %10d  %9d\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Files, r.Bytes, r.Downloads)
	}
	_, err := fmt.Fprintf(w, "\n%d session(s)\n", len(recs))
	return err
}

func init() {
	sessionsCmd.Flags().String("format", "table", "output format: table, yaml, or json")
	addTempDirFlag(sessionsCmd)

	rootCmd.AddCommand(sessionsCmd)
}

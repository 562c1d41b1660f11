package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Remove web sessions older than a given age",
	Long: `Reap deletes session folders, their ZIP archives, and their index
entries when they are older than --older-than. Unindexed session folders
left behind by an interrupted server are removed by modification time.`,
	Args: cobra.NoArgs,
	RunE: runReap,
}

func runReap(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")
	if olderThan <= 0 {
		return fmt.Errorf("--older-than must be positive, got %s", olderThan)
	}

	store, err := openSessionStore(os.Stderr)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Reap(context.Background(), olderThan)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d session(s) older than %s\n", n, olderThan)
	return nil
}

func init() {
	reapCmd.Flags().Duration("older-than", 24*time.Hour, "remove sessions created more than this long ago")
	addTempDirFlag(reapCmd)

	rootCmd.AddCommand(reapCmd)
}

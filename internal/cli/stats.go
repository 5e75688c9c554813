package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/focusbooster/internal/domain"
	"github.com/ashureev/focusbooster/internal/stats"
	"github.com/ashureev/focusbooster/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's focus statistics",
	Long: `Show the focus sessions and minutes recorded today.

A record from a previous day counts as zero.

Examples:
  focusbooster stats          # Human readable
  focusbooster stats --json   # JSON record
  focusbooster stats --reset  # Delete today's record`,
	RunE: runStats,
}

var (
	statsJSON  bool
	statsReset bool
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the record as JSON")
	statsCmd.Flags().BoolVar(&statsReset, "reset", false, "Delete the persisted record")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())

	db, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("Failed to close store", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	daily := stats.New(db, stats.WithLogger(logger))
	if statsReset {
		if err := daily.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Daily stats cleared.")
		return nil
	}
	today := daily.Load(ctx)

	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(today)
	}

	date := today.LastSessionDate
	if date == "" {
		date = time.Now().Format(domain.DateLayout)
	}
	fmt.Fprintf(out, "Focus stats for %s\n", date)
	fmt.Fprintf(out, "  Sessions: %d\n", today.SessionsToday)
	fmt.Fprintf(out, "  Minutes:  %d\n", today.TotalMinutesToday)
	if today.SessionsToday == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No focus sessions completed today.")
	}
	return nil
}

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/doorman/internal/audit"
	"github.com/andresmejia3/doorman/internal/utils"
	"github.com/spf13/cobra"
)

var (
	resetEvents bool
	resetFrames bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset audit state (Database events, Unlock frames)",
	Long:  "Clears audit data. By default, it resets everything. Use flags to clear specific components.",
	Run: func(cmd *cobra.Command, args []string) {
		// If no flags are set, default to clearing EVERYTHING
		if !resetEvents && !resetFrames {
			resetEvents = true
			resetFrames = true
		}

		reader := bufio.NewReader(os.Stdin)

		if resetEvents {
			if DB == nil {
				fmt.Println("ℹ️  No audit database configured, skipping.")
			} else if confirm(reader, "⚠️  Are you sure you want to DROP the unlock events table?") {
				fmt.Println("🗑️  Clearing Database...")
				if err := DB.Reset(cmd.Context()); err != nil {
					utils.Die("Failed to reset database", err, nil)
				}
			}
		}

		if resetFrames {
			dir := filepath.Join(cfg.LogPath, audit.FramesDir)
			if confirm(reader, fmt.Sprintf("⚠️  Are you sure you want to delete all unlock frames in %s?", dir)) {
				fmt.Println("🗑️  Clearing Unlock Frames...")
				removeDir(dir)
			}
		}

		fmt.Println("✨ Reset Complete.")
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetEvents, "events", false, "Clear the audit database")
	resetCmd.Flags().BoolVar(&resetFrames, "frames", false, "Clear saved unlock frames")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removeDir(path string) {
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}

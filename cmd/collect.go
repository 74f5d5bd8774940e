package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/doorman/internal/audit"
	"github.com/andresmejia3/doorman/internal/config"
	"github.com/andresmejia3/doorman/internal/logging"
	"github.com/andresmejia3/doorman/internal/pipeline"
	"github.com/andresmejia3/doorman/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Save labeled frames whose confidence falls in a range (training data)",
	Long: "Runs the same capture and recognition stages as 'run' but never unlocks. " +
		"Frames with a face whose confidence lies in [--min, --max] are saved to the log path.",
	Run: func(cmd *cobra.Command, args []string) {
		runCollect(cmd.Context())
	},
}

func init() {
	addStreamFlags(collectCmd.Flags())
	collectCmd.Flags().Float64Var(&cfg.Decision.MinConfidence, "min", 0, "Lowest confidence to save (inclusive)")
	collectCmd.Flags().Float64Var(&cfg.Decision.MaxConfidence, "max", 1, "Highest confidence to save (inclusive)")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(ctx context.Context) {
	validate(config.ModeCollect)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("📸 Collecting frames"),
		progressbar.OptionSetWriter(os.Stderr), // Write spinner to Stderr
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
	)

	collector := audit.NewCollector(cfg.LogPath, logging.Component("collector"))
	collector.OnSave = func(string) { bar.Add(1) }

	acceptor := pipeline.Range{Min: cfg.Decision.MinConfidence, Max: cfg.Decision.MaxConfidence}
	p, closeDetectors := buildPipeline(acceptor, collector)
	defer closeDetectors()

	if err := p.Run(ctx); err != nil {
		utils.Die("Collector stopped", err, nil)
	}

	bar.Finish()
	fmt.Fprintf(os.Stderr, "\n🏁 Collection stopped. Frames saved to %s\n", cfg.LogPath)
}

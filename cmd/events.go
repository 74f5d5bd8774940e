package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/doorman/internal/utils"
	"github.com/spf13/cobra"
)

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List audited unlocks from the database, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		runEvents(cmd)
	},
}

func init() {
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 20, "Maximum number of events to show")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command) {
	if DB == nil {
		utils.Die("No audit database configured", errors.New("pass --db or set POSTGRES_HOST"), nil)
	}

	events, err := DB.ListUnlockEvents(cmd.Context(), eventsLimit)
	if err != nil {
		utils.Die("Failed to list unlock events", err, nil)
	}

	if len(events) == 0 {
		fmt.Println("No unlock events found in database.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TIME\tLABEL\tCONFIDENCE\tFACES\tID")
	fmt.Fprintln(w, "----\t-----\t----------\t-----\t--")

	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%s\n", utils.Timestamp(ev.At), ev.Label, ev.Confidence, len(ev.Faces), ev.ID)
	}
	w.Flush()
}

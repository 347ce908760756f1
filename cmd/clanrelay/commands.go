package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/cuemby/clanrelay/pkg/classifier"
	"github.com/cuemby/clanrelay/pkg/poller"
	"github.com/cuemby/clanrelay/pkg/storage"
	"github.com/cuemby/clanrelay/pkg/types"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the clan log once and store new entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.syncPoller(limit, cmd.Flags().Changed("limit"))
		if err != nil {
			return err
		}

		result, err := p.Poll(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Fetched %d entries (%d attempts): %d new, %d skipped\n",
			result.Fetched, result.Attempts, result.Inserted, result.Skipped)
		return nil
	},
}

// syncPoller returns the bulk poller, or a one-off poller when the limit was
// given on the command line
func (a *app) syncPoller(limit int, override bool) (*poller.Poller, error) {
	if !override {
		return a.bulk, nil
	}
	return poller.New(poller.Config{Name: "manual", Limit: limit, Source: a.client, Store: a.store, Parser: a.parser})
}

var deliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Relay unsent entries to the chat channel once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.worker.Deliver(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Selected %d: %d sent, %d suppressed, %d failed\n",
			result.Selected, result.Sent, result.Suppressed, result.Failed)
		for _, e := range result.Errors {
			fmt.Printf("  %v\n", e)
		}
		return nil
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify [TEXT]",
	Short: "Print the category of a clan-log message",
	Long: `Classify prints the category the relay assigns to TEXT.

With --rules it prints the classification rules instead, in the order they
are tried. The first rule that matches decides the category.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if rules, _ := cmd.Flags().GetBool("rules"); rules {
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tCATEGORY\tMATCHER")
			for i, r := range classifier.Default().Rules() {
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, r.Category, r.Matcher)
			}
			return w.Flush()
		}
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one message to classify, got %d", len(args))
		}
		fmt.Fprintln(out, classifier.Classify(args[0]))
		return nil
	},
}

// Event commands
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect stored clan-log events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored events, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		unsent, _ := cmd.Flags().GetBool("unsent")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		events, err := store.ListEvents(storage.ListOptions{UnsentOnly: unsent, Limit: limit})
		if err != nil {
			return err
		}

		if len(events) == 0 {
			fmt.Println("No events found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIMESTAMP\tCATEGORY\tSENT\tMESSAGE")
		for _, ev := range events {
			fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%s\n",
				ev.ID, ev.Timestamp.Format(time.RFC3339), ev.Category, ev.Delivered, ev.Text)
		}
		return w.Flush()
	},
}

var eventsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show event counts by category",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats()
		if err != nil {
			return err
		}

		fmt.Printf("Total:  %d\n", stats.Total)
		fmt.Printf("Unsent: %d\n", stats.Unsent)
		fmt.Println()

		categories := make([]types.Category, 0, len(stats.ByCategory))
		for c := range stats.ByCategory {
			categories = append(categories, c)
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tCOUNT")
		for _, c := range categories {
			fmt.Fprintf(w, "%s\t%d\n", c, stats.ByCategory[c])
		}
		return w.Flush()
	},
}

func init() {
	syncCmd.Flags().Int("limit", poller.BulkLimit, "Number of newest entries to fetch")
	classifyCmd.Flags().Bool("rules", false, "List the classification rules in evaluation order")
	eventsListCmd.Flags().Bool("unsent", false, "Only show events not yet delivered")
	eventsListCmd.Flags().Int("limit", 20, "Maximum number of events to show (0 for all)")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsStatsCmd)
}

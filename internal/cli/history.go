package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ppiankov/deepcheck/internal/history"
	"github.com/ppiankov/deepcheck/internal/model"
	"github.com/ppiankov/deepcheck/internal/notify"
)

var (
	historyJSON   bool
	historyLimit  int
	watchInterval time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage the analysis history log",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded analyses, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		items := a.store.Load()
		if historyLimit > 0 && len(items) > historyLimit {
			items = items[:historyLimit]
		}

		if historyJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}
		return writeHistoryTable(cmd.OutOrStdout(), items)
	},
}

var historyAddTestCmd = &cobra.Command{
	Use:   "add-test",
	Short: "Append a sample item to the history log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		item := a.store.Append(history.TestEntry(time.Now()))
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s (%s)\n", item.Title, item.ID)
		return nil
	},
}

var historyDebugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Print the raw persisted history value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		out := cmd.OutOrStdout()
		raw, found := a.store.Raw()
		fmt.Fprintf(out, "Key:     %s\n", history.StorageKey)
		fmt.Fprintf(out, "Backend: %s\n", a.cfg.History.Backend)
		if !found {
			fmt.Fprintf(out, "Value:   (not set)\n")
			return nil
		}
		fmt.Fprintf(out, "Bytes:   %d\n", len(raw))
		fmt.Fprintf(out, "Items:   %d\n", len(a.store.Load()))
		fmt.Fprintf(out, "Value:\n%s\n", raw)
		return nil
	},
}

var historyWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print history changes made by other processes",
	Long: `Watch prints a line for every change to the history log.

With notify.brokers configured, changes arrive over Kafka. Otherwise the
history backend is polled, which works for the disk and sqlite backends
shared between processes.`,
	Args: cobra.NoArgs,
	RunE: runHistoryWatch,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyAddTestCmd, historyDebugCmd, historyWatchCmd)

	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "print items as JSON")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 0, "show at most this many items (0 = all)")
	historyWatchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "poll interval without a broker")
}

func writeHistoryTable(w io.Writer, items []model.HistoryItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No history yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tSTATUS\tTRUST\tCONF\tTYPE\tTITLE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.0f\t%s\t%s\n",
			it.Timestamp, it.VerificationStatus, it.TrustScore, it.Confidence, it.Type, it.Title)
	}
	return tw.Flush()
}

func runHistoryWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	events, cancel := a.store.Subscribe()
	defer cancel()

	errCh := make(chan error, 1)
	if len(a.cfg.Notify.Brokers) > 0 {
		relay := notify.NewKafkaRelay(a.cfg.Notify, uuid.NewString(), a.log)
		go func() { errCh <- relay.Run(ctx, a.bus) }()
	} else {
		go func() { errCh <- pollHistory(ctx, a.store, a.bus, watchInterval) }()
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)\n", history.StorageKey)
	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			printChange(out, e)
		}
	}
}

// pollHistory publishes a change event whenever the persisted value differs
// from the last one seen
func pollHistory(ctx context.Context, store *history.Store, bus *notify.Bus, interval time.Duration) error {
	last, _ := store.Raw()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			raw, _ := store.Raw()
			if raw == last {
				continue
			}
			last = raw
			bus.Publish(notify.Event{Key: history.StorageKey, NewValue: raw, Origin: "poll"})
		}
	}
}

func printChange(w io.Writer, e notify.Event) {
	var items []model.HistoryItem
	if err := json.Unmarshal([]byte(e.NewValue), &items); err != nil {
		fmt.Fprintf(w, "%s  %s changed (unreadable value: %v)\n", time.Now().Format(time.TimeOnly), e.Key, err)
		return
	}

	newest := "-"
	if len(items) > 0 {
		newest = items[0].Title
	}
	origin := e.Origin
	if origin == "" {
		origin = "local"
	}
	fmt.Fprintf(w, "%s  %s  items=%d  newest=%q  origin=%s\n",
		time.Now().Format(time.TimeOnly), e.Key, len(items), newest, origin)
}

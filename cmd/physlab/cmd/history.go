package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/oriys/physlab/internal/domain"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded calculations",
	Long: `List recorded calculations, oldest first.

Examples:
  # Last 20 calculations
  physlab history --limit 20

  # Only Ohm's law
  physlab history --module "Ohm's Law"

  # Follow new calculations as they happen
  physlab history follow`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded calculations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !historyYes {
			return fmt.Errorf("refusing to clear history without --yes")
		}
		if err := NewClient().ClearHistory(); err != nil {
			return err
		}
		cmd.Println("History cleared.")
		return nil
	},
}

var historyFollowCmd = &cobra.Command{
	Use:   "follow",
	Short: "Stream new calculations over WebSocket",
	Args:  cobra.NoArgs,
	RunE:  runHistoryFollow,
}

var (
	historyModule string
	historyLimit  int
	historyYes    bool
	historyReplay int
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyFollowCmd)

	historyCmd.PersistentFlags().StringVarP(&historyModule, "module", "m", "", "Only show entries of this module (display name)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show only the most recent N entries")
	historyClearCmd.Flags().BoolVarP(&historyYes, "yes", "y", false, "Confirm deletion")
	historyFollowCmd.Flags().IntVar(&historyReplay, "replay", 0, "Print the most recent N entries before following")
}

func runHistory(cmd *cobra.Command, args []string) error {
	entries, err := NewClient().ListHistory(historyModule, historyLimit)
	if err != nil {
		return err
	}
	return NewPrinter(cmd.OutOrStdout()).PrintHistory(entries)
}

func runHistoryFollow(cmd *cobra.Command, args []string) error {
	client := NewClient()
	q := url.Values{}
	if historyModule != "" {
		q.Set("module", historyModule)
	}
	if historyReplay > 0 {
		q.Set("replay", strconv.Itoa(historyReplay))
	}
	wsURL, err := buildWebSocketURL(client.baseURL, "/api/history/stream", q)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect history stream: %w", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	cmd.PrintErrln("Following calculations (Ctrl+C to stop)...")
	printer := NewPrinter(cmd.OutOrStdout())
	for {
		var entry domain.HistoryEntry
		if err := conn.ReadJSON(&entry); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("history stream closed: %w", err)
		}
		if err := printer.PrintHistoryEntry(&entry); err != nil {
			return err
		}
	}
}

// buildWebSocketURL 将 API 地址转换为 ws/wss 地址
func buildWebSocketURL(baseURL, path string, query url.Values) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported api url scheme: %s", u.Scheme)
	}

	u.Path = path
	u.RawQuery = query.Encode()
	u.Fragment = ""
	return u.String(), nil
}

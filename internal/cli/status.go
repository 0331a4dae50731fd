package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hxuan190/quote-engine/internal/bridge"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/events"
)

var statusOnce bool

var statusCmd = &cobra.Command{
	Use:   "status <chain> <txHash>",
	Short: "Track a submitted cross-chain order until it settles",
	Long: `Polls the order status every poll_interval until it is SUCCESS,
PARTIAL_SUCCESS or FAILED.

Examples:
  quotectl status ethereum 0x1234...abcd
  quotectl status base 0x1234...abcd --once`,
	Args: cobra.ExactArgs(2),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusOnce, "once", false, "Check once and exit")
}

func runStatus(cmd *cobra.Command, args []string) error {
	chain, txHash := args[0], args[1]
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg := LoadConfig()
	client := NewAPIClient(cfg.Server, cfg.Timeout)
	tracker := bridge.NewTracker(client, events.Noop{}, cfg.PollInterval)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if statusOnce {
		status, report, err := tracker.Check(ctx, chain, txHash)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(report)
		}
		displayStatus(chain, txHash, status, report)
		return nil
	}

	if !jsonOutput {
		fmt.Printf("\nTracking %s on %s. Press Ctrl+C to stop.\n\n", color.CyanString(txHash), chain)
	}
	s := newSpinner(" Waiting for the order...", !jsonOutput)
	final, err := tracker.Track(ctx, chain, txHash, func(u bridge.Update) {
		if jsonOutput {
			return
		}
		s.Lock()
		s.Suffix = " " + coloredOrderState(u.State)
		s.Unlock()
	})
	s.Stop()
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(final.Report)
	}
	displayStatus(chain, txHash, final.Status, final.Report)
	if final.State == bridge.OrderFailed {
		return fmt.Errorf("order %s failed", txHash)
	}
	return nil
}

func printJSON(v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func displayStatus(chain, txHash string, status domain.BridgeStatus, report *domain.BridgeStatusReport) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        ORDER STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Tx Hash:         %s\n", color.CyanString(txHash))
	fmt.Printf("  Chain:           %s\n", chain)
	fmt.Printf("  Status:          %s\n", coloredStatus(status))
	if report != nil {
		for i, step := range report.Steps {
			line := fmt.Sprintf("  Step %d:          %s %s", i+1, step.Command, coloredStatus(step.Status))
			if step.TxHash != "" {
				line += " " + color.HiBlackString(step.TxHash)
			}
			fmt.Println(line)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func coloredOrderState(s bridge.OrderState) string {
	return coloredStatus(domain.BridgeStatus(s))
}

func coloredStatus(s domain.BridgeStatus) string {
	v := string(s)
	switch s {
	case domain.StatusSuccess:
		return color.GreenString(v)
	case domain.StatusPartialSuccess:
		return color.MagentaString(v)
	case domain.StatusFailed:
		return color.RedString(v)
	default:
		return color.YellowString(v)
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	api "github.com/hxuan190/quote-engine/internal/http"
)

var quoteFlags struct {
	inChain, outChain       uint64
	in, out                 string
	inDecimals, outDecimals uint8
	amount                  string
	exactOut                bool
	slippage                int
	protocols               string
	x                       bool
	useHTTP                 bool
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote a same-chain swap or a cross-chain order",
	Long: `Streams the states of one quote until it settles. While the quote is pending a
spinner shows the last placeholder amount, if any. --http issues a single blocking
request instead.`,
	Args: cobra.NoArgs,
	RunE: runQuote,
}

func init() {
	f := quoteCmd.Flags()
	f.Uint64Var(&quoteFlags.inChain, "in-chain", 1, "Input chain id")
	f.StringVar(&quoteFlags.in, "in", "native", "Input token address or native")
	f.Uint8Var(&quoteFlags.inDecimals, "in-decimals", 0, "Input decimals for unlisted tokens")
	f.Uint64Var(&quoteFlags.outChain, "out-chain", 1, "Output chain id")
	f.StringVar(&quoteFlags.out, "out", "", "Output token address or native")
	f.Uint8Var(&quoteFlags.outDecimals, "out-decimals", 0, "Output decimals for unlisted tokens")
	f.StringVar(&quoteFlags.amount, "amount", "", "Amount in smallest units")
	f.BoolVar(&quoteFlags.exactOut, "exact-out", false, "Treat amount as the exact output")
	f.IntVar(&quoteFlags.slippage, "slippage", -1, "Slippage tolerance in bps (default: server setting)")
	f.StringVar(&quoteFlags.protocols, "protocols", "", "Comma separated protocols, empty for all")
	f.BoolVar(&quoteFlags.x, "x", false, "Include X quotes")
	f.BoolVar(&quoteFlags.useHTTP, "http", false, "Use a blocking HTTP request instead of the stream")
	_ = quoteCmd.MarkFlagRequired("out")
	_ = quoteCmd.MarkFlagRequired("amount")
}

func buildQuoteRequest() api.QuoteRequest {
	req := api.QuoteRequest{
		InputChainID:   quoteFlags.inChain,
		InputToken:     quoteFlags.in,
		InputDecimals:  quoteFlags.inDecimals,
		OutputChainID:  quoteFlags.outChain,
		OutputToken:    quoteFlags.out,
		OutputDecimals: quoteFlags.outDecimals,
		Amount:         quoteFlags.amount,
		TradeType:      "EXACT_INPUT",
		Protocols:      quoteFlags.protocols,
		X:              quoteFlags.x,
	}
	if quoteFlags.exactOut {
		req.TradeType = "EXACT_OUTPUT"
	}
	if quoteFlags.slippage >= 0 {
		bps := uint32(quoteFlags.slippage)
		req.SlippageBps = &bps
	}
	return req
}

func runQuote(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg := LoadConfig()
	client := NewAPIClient(cfg.Server, cfg.Timeout)
	req := buildQuoteRequest()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		final *api.QuoteResponse
		err   error
	)
	if quoteFlags.useHTTP {
		final, err = quoteOnce(ctx, client, req, jsonOutput)
	} else {
		final, err = quoteStream(ctx, client, req, cfg.Timeout, jsonOutput)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		out, _ := sonic.ConfigStd.MarshalIndent(final, "", "  ")
		fmt.Println(string(out))
	} else {
		displayQuote(final)
	}
	if final.State == "fail" {
		return errors.New(final.Error)
	}
	return nil
}

func newSpinner(suffix string, enabled bool) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	if enabled {
		s.Start()
	}
	return s
}

func quoteOnce(ctx context.Context, client *APIClient, req api.QuoteRequest, jsonOutput bool) (*api.QuoteResponse, error) {
	s := newSpinner(" Fetching quote...", !jsonOutput)
	defer s.Stop()
	return client.Quote(ctx, req)
}

func quoteStream(ctx context.Context, client *APIClient, req api.QuoteRequest, timeout time.Duration, jsonOutput bool) (*api.QuoteResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s := newSpinner(" Quoting...", false)
	defer s.Stop()

	var (
		final     *api.QuoteResponse
		streamErr error
	)
	err := client.Stream(ctx, req, func(m api.StreamMessage) bool {
		switch m.Type {
		case "error":
			streamErr = errors.New(m.Error)
			return false
		case "quote":
			q := m.Quote
			if q == nil {
				return true
			}
			if q.State == "pending" {
				if !jsonOutput {
					s.Lock()
					s.Suffix = pendingSuffix(q)
					s.Unlock()
					if !s.Active() {
						s.Start()
					}
				}
				return true
			}
			final = q
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if streamErr != nil {
		return nil, streamErr
	}
	if final == nil {
		return nil, errors.New("stream closed before the quote settled")
	}
	return final, nil
}

func pendingSuffix(q *api.QuoteResponse) string {
	if q.Placeholder && q.Order != nil {
		return fmt.Sprintf(" Quoting... last seen %s %s", q.Order.AmountOutFormatted, q.Order.Output.Symbol)
	}
	return " Quoting..."
}

func displayQuote(q *api.QuoteResponse) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                           QUOTE")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Hash:            %s\n", color.HiBlackString(q.Hash))
	fmt.Printf("  State:           %s\n", coloredState(q.State))
	if q.Error != "" {
		fmt.Printf("  Error:           %s (%s)\n", color.RedString(q.Error), q.ErrorCode)
	}

	if o := q.Order; o != nil {
		fmt.Printf("  Type:            %s\n", o.Type)
		if o.Source != "" {
			fmt.Printf("  Source:          %s\n", o.Source)
		}
		if o.Pattern != "" {
			fmt.Printf("  Pattern:         %s\n", o.Pattern)
		}
		fmt.Printf("  Amount In:       %s %s\n", o.AmountInFormatted, symbol(o.Input))
		fmt.Printf("  Amount Out:      %s %s\n", color.CyanString(o.AmountOutFormatted), symbol(o.Output))
		fmt.Printf("  Threshold:       %s (slippage %d bps)\n", o.OtherAmountThreshold, o.SlippageBps)
		fmt.Printf("  Price Impact:    %s%% %s\n", o.PriceImpactPercent, coloredSeverity(o.PriceImpactSeverity))
		if o.PriceImpactWarning != "" {
			fmt.Printf("                   %s\n", color.YellowString(o.PriceImpactWarning))
		}
		for i, r := range o.Routes {
			fmt.Printf("  Route %d (%d%%):\n", i+1, r.Percent)
			for _, h := range r.Hops {
				fmt.Printf("    %s %s\n", h.Protocol, color.HiBlackString(h.PoolAddress))
			}
		}
		for i, c := range o.Commands {
			fmt.Printf("  Step %d:          %s on chain %d, %s -> %s\n", i+1, c.Type, c.ChainID, symbol(c.Input), symbol(c.Output))
		}
		if o.ExpectedFillTimeSec > 0 {
			fmt.Printf("  Fill Time:       ~%ds\n", o.ExpectedFillTimeSec)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func symbol(c api.CurrencyView) string {
	if c.Symbol != "" {
		return c.Symbol
	}
	return c.Address
}

func coloredState(state string) string {
	switch state {
	case "just":
		return color.GreenString(state)
	case "pending":
		return color.YellowString(state)
	case "fail":
		return color.RedString(state)
	default:
		return state
	}
}

func coloredSeverity(sev string) string {
	switch sev {
	case "high", "extreme":
		return color.RedString(sev)
	case "moderate":
		return color.YellowString(sev)
	default:
		return color.GreenString(sev)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/jmerrifield20/SignalMiner/pkg/client"
	"github.com/spf13/cobra"
)

// ── status / start / settle ──────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show balance, tier, stake and session progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		l, err := c.Ledger(ctx)
		if err != nil {
			return err
		}
		return printLedger(l)
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a 24-hour mining session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		l, err := c.StartSession(ctx)
		if err != nil {
			return err
		}
		return printLedger(l)
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Credit points accrued since the last settlement",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		earned, l, err := c.Settle(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"earned": earned, "ledger": l})
		}
		fmt.Printf("credited %.4f points\n", earned)
		return printLedger(l)
	},
}

func printLedger(l *client.Ledger) error {
	if jsonOutput {
		return printJSON(l)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Points\t%d PTS\n", l.DisplayPoints)
	fmt.Fprintf(w, "Tier\t%d (x%g)\n", l.Tier, l.TierMultiplier)
	if l.IsStaked && l.StakeUnlockTime != nil {
		fmt.Fprintf(w, "Stake\t%.0f SIGNAL at x%g, unlocks %s\n",
			l.StakeAmount, l.StakeMultiplier, l.StakeUnlockTime.Local().Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintln(w, "Stake\tnone")
	}
	if l.MiningActive {
		fmt.Fprintf(w, "Mining\tactive, %s left (%.0f%%)\n", l.SessionRemaining, l.SessionProgress*100)
	} else {
		fmt.Fprintln(w, "Mining\tidle")
	}
	fmt.Fprintf(w, "Rate\t%.6f PTS/s\n", l.RatePerSecond)
	fmt.Fprintf(w, "Swapped\t%d SIGNAL\n", l.TotalSwapped)
	if l.Degraded {
		fmt.Fprintln(w, "Warning\tdaemon cannot persist the ledger")
	}
	return w.Flush()
}

// ── tasks ────────────────────────────────────────────────────────────────────

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List social tasks and their rewards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		tasks, err := c.Tasks(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(tasks)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPLATFORM\tREWARD\tDONE\tTITLE")
		for _, t := range tasks {
			done := ""
			if t.Completed {
				done = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%.0f\t%s\t%s\n", t.ID, t.Platform, t.Reward, done, t.Title)
		}
		return w.Flush()
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim <task-id>",
	Short: "Claim a task reward",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		l, err := c.ClaimTask(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(l)
		}
		fmt.Printf("claimed %s, balance %d PTS\n", args[0], l.DisplayPoints)
		return nil
	},
}

// ── tiers ────────────────────────────────────────────────────────────────────

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "List mining tiers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		tiers, err := c.Tiers(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(tiers)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPRICE\tMULTIPLIER\t")
		for _, t := range tiers {
			mark := ""
			switch {
			case t.Current:
				mark = "active"
			case t.Owned:
				mark = "owned"
			}
			fmt.Fprintf(w, "%d\t%s\t%d SIGNAL\tx%g\t%s\n", t.ID, t.Name, t.PriceSignal, t.Multiplier, mark)
		}
		return w.Flush()
	},
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade <tier>",
	Short: "Buy a higher mining tier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("tier must be a number: %w", err)
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		res, err := c.PurchaseTier(ctx, tier)
		if err != nil {
			return err
		}
		return printSpend(res, fmt.Sprintf("upgraded to tier %d for %d SIGNAL", res.Receipt.Tier, res.Receipt.Signal))
	},
}

// ── swap ─────────────────────────────────────────────────────────────────────

var swapQuoteOnly bool

var swapCmd = &cobra.Command{
	Use:   "swap <points>",
	Short: "Swap points for SIGNAL (multiples of 1000)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		points, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("points must be a number: %w", err)
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		if swapQuoteOnly {
			q, err := c.QuoteSwap(ctx, points)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(q)
			}
			fmt.Printf("%d PTS -> %d SIGNAL (x%g)\n", q.Points, q.Signal, q.StakeMultiplier)
			return nil
		}

		res, err := c.Swap(ctx, points)
		if err != nil {
			return err
		}
		return printSpend(res, fmt.Sprintf("swapped %d PTS for %d SIGNAL", points, res.Receipt.Signal))
	},
}

func init() {
	swapCmd.Flags().BoolVar(&swapQuoteOnly, "quote", false, "only show the quote")
}

// ── stake ────────────────────────────────────────────────────────────────────

var stakeDays int

var stakeCmd = &cobra.Command{
	Use:   "stake <amount>",
	Short: "Lock SIGNAL for 7, 14 or 21 days to raise the multiplier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("amount must be a number: %w", err)
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		res, err := c.Stake(ctx, amount, stakeDays)
		if err != nil {
			return err
		}
		return printSpend(res, fmt.Sprintf("staked %d SIGNAL for %d days, multiplier x%g",
			amount, stakeDays, res.Ledger.StakeMultiplier))
	},
}

func init() {
	stakeCmd.Flags().IntVar(&stakeDays, "days", 7, "lock period in days (7, 14 or 21)")
}

var unstakeCmd = &cobra.Command{
	Use:   "unstake",
	Short: "Release an expired stake",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		res, err := c.Unstake(ctx)
		if err != nil {
			return err
		}
		return printSpend(res, fmt.Sprintf("released %d SIGNAL", res.Receipt.Signal))
	},
}

// ── boost ────────────────────────────────────────────────────────────────────

var (
	boostToken string
	boostList  bool
)

var boostCmd = &cobra.Command{
	Use:   "boost [post-url]",
	Short: "Pay to boost a Farcaster, X or Base post, or list recent boosts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !boostList && len(args) == 0 {
			return errors.New("a post URL is required unless --list is set")
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		if boostList {
			posts, err := c.Boosts(ctx)
			if err != nil {
				return err
			}
			return printBoosts(posts)
		}

		res, err := c.Boost(ctx, args[0], boostToken)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		fmt.Printf("boosted %s (paid in %s)\n", res.Receipt.URL, res.Receipt.Token)
		if res.Receipt.TxHash != "" {
			fmt.Printf("tx: %s\n", res.Receipt.TxHash)
		}
		return nil
	},
}

func init() {
	boostCmd.Flags().StringVar(&boostToken, "token", "eth", "payment token (eth or usdc)")
	boostCmd.Flags().BoolVar(&boostList, "list", false, "list recent boosts instead")
}

func printBoosts(posts []client.BoostedPost) error {
	if jsonOutput {
		return printJSON(posts)
	}
	if len(posts) == 0 {
		fmt.Println("no boosts yet")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tPLATFORM\tTOKEN\tURL")
	for _, p := range posts {
		when := "-"
		if !p.At.IsZero() {
			when = p.At.Local().Format("2006-01-02 15:04")
		}
		token := p.Token
		if token == "" {
			token = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", when, p.Platform, token, p.URL)
	}
	return w.Flush()
}

func printSpend(res *client.SpendResult, summary string) error {
	if jsonOutput {
		return printJSON(res)
	}
	fmt.Println(summary)
	if res.Receipt.TxHash != "" {
		fmt.Printf("tx: %s\n", res.Receipt.TxHash)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"beanchain/core"
	"beanchain/history"
	"beanchain/native/season"
	"beanchain/native/silo"
)

// fetch reads path into out, or prints the raw body and returns false in
// --json mode.
func (a *app) fetch(cmd *cobra.Command, path string, out any) (bool, error) {
	c, err := a.client()
	if err != nil {
		return false, err
	}
	var raw json.RawMessage
	if err := c.get(cmd.Context(), path, &raw); err != nil {
		return false, err
	}
	if a.asJSON {
		return false, printJSON(cmd, raw)
	}
	return true, json.Unmarshal(raw, out)
}

func (a *app) submit(cmd *cobra.Command, path string, body, out any) (bool, error) {
	c, err := a.client()
	if err != nil {
		return false, err
	}
	var raw json.RawMessage
	if err := c.post(cmd.Context(), path, body, &raw); err != nil {
		return false, err
	}
	if a.asJSON {
		return false, printJSON(cmd, raw)
	}
	if out == nil || len(raw) == 0 {
		return true, nil
	}
	return true, json.Unmarshal(raw, out)
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSeasonCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "season", Short: "Season state and history"}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current season",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var status season.Status
			ok, err := a.fetch(cmd, "/v1/season/status", &status)
			if !ok || err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "season\t%d\n", status.Current)
			fmt.Fprintf(tw, "period\t%ds\n", status.Period)
			fmt.Fprintf(tw, "last sunrise\t%s\n", formatUnix(status.SunriseTime, a.now()))
			fmt.Fprintf(tw, "next sunrise\t%s\n", formatUnix(status.NextSunrise(), a.now()))
			fmt.Fprintf(tw, "raining\t%t\n", status.Raining)
			fmt.Fprintf(tw, "above peg\t%t\n", status.AbovePeg)
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "weather",
		Short: "Show the last weather evaluation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var weather season.Weather
			ok, err := a.fetch(cmd, "/v1/season/weather", &weather)
			if !ok || err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "season\t%d\n", weather.Season)
			fmt.Fprintf(tw, "case\t%d\n", weather.CaseID)
			fmt.Fprintf(tw, "deltaB\t%s\n", formatBeans(weather.Signed()))
			fmt.Fprintf(tw, "price\t%s\n", formatBeans(weather.Price))
			fmt.Fprintf(tw, "temperature\t%s\n", formatPercent(weather.Temperature))
			return tw.Flush()
		},
	})

	var limit int
	historyCmd := &cobra.Command{
		Use:   "history [season]",
		Short: "List recent seasons or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				number, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("season %q: %w", args[0], err)
				}
				var record history.SeasonRecord
				ok, err := a.fetch(cmd, fmt.Sprintf("/v1/season/history/%d", number), &record)
				if !ok || err != nil {
					return err
				}
				return printRecords(cmd, []history.SeasonRecord{record})
			}
			var records []history.SeasonRecord
			ok, err := a.fetch(cmd, "/v1/season/history?limit="+strconv.Itoa(limit), &records)
			if !ok || err != nil {
				return err
			}
			return printRecords(cmd, records)
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "number of seasons")
	cmd.AddCommand(historyCmd)
	return cmd
}

func printRecords(cmd *cobra.Command, records []history.SeasonRecord) error {
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "SEASON\tCASE\tDELTA B\tMINTED\tSOIL\tINCENTIVE\tRAIN")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%t\n",
			r.Season, r.CaseID, formatRaw(r.DeltaB), formatRaw(r.Minted), formatRaw(r.Soil), formatRaw(r.Incentive), r.Raining)
	}
	return tw.Flush()
}

func newAccountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "account <address>",
		Short: "Show stalk, roots and claimable balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view core.AccountView
			ok, err := a.fetch(cmd, "/v1/accounts/"+url.PathEscape(args[0]), &view)
			if !ok || err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "address\t%s\n", view.Address)
			fmt.Fprintf(tw, "stalk\t%s\n", humanInt(view.Stalk))
			fmt.Fprintf(tw, "germinating\t%s\n", humanInt(view.Germinating))
			fmt.Fprintf(tw, "roots\t%s\n", humanInt(view.Roots))
			fmt.Fprintf(tw, "earned beans\t%s\n", formatBeans(view.EarnedBeans))
			fmt.Fprintf(tw, "plenty\t%s\n", formatBeans(view.Plenty))
			fmt.Fprintf(tw, "beans\t%s\n", formatBeans(view.Beans))
			return tw.Flush()
		},
	}
}

func newDepositsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deposits <address> <token>",
		Short: "List deposits by stem",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var deposits []*silo.Deposit
			path := fmt.Sprintf("/v1/accounts/%s/deposits/%s", url.PathEscape(args[0]), url.PathEscape(args[1]))
			ok, err := a.fetch(cmd, path, &deposits)
			if !ok || err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "STEM\tAMOUNT\tBDV")
			for _, d := range deposits {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", d.Stem, humanInt(d.Amount), formatBeans(d.Bdv))
			}
			return tw.Flush()
		},
	}
}

func newDepositCmd(a *app) *cobra.Command {
	var account, token, amount string
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit a whitelisted token into the silo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out struct {
				Stem int64 `json:"stem"`
			}
			body := map[string]string{"account": account, "token": token, "amount": amount}
			ok, err := a.submit(cmd, "/v1/silo/deposit", body, &out)
			if !ok || err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deposited %s %s at stem %d\n", amount, token, out.Stem)
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "depositing account")
	cmd.Flags().StringVar(&token, "token", "", "token identifier")
	cmd.Flags().StringVar(&amount, "amount", "", "raw token amount")
	return cmd
}

func newWithdrawCmd(a *app) *cobra.Command {
	var account, token string
	var stems []int64
	var amounts []string
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw deposits by stem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(stems) == 0 || len(stems) != len(amounts) {
				return fmt.Errorf("--stem and --amount must be given in pairs")
			}
			var out struct {
				Withdrawn string `json:"withdrawn"`
			}
			body := map[string]any{"account": account, "token": token, "stems": stems, "amounts": amounts}
			ok, err := a.submit(cmd, "/v1/silo/withdraw", body, &out)
			if !ok || err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdrew %s %s\n", out.Withdrawn, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "withdrawing account")
	cmd.Flags().StringVar(&token, "token", "", "token identifier")
	cmd.Flags().Int64SliceVar(&stems, "stem", nil, "deposit stem, repeatable")
	cmd.Flags().StringSliceVar(&amounts, "amount", nil, "amount per stem, repeatable")
	return cmd
}

type sunriseView struct {
	Season    uint64 `json:"season"`
	CaseID    int    `json:"case_id"`
	DeltaB    string `json:"delta_b"`
	Minted    string `json:"minted"`
	Soil      string `json:"soil"`
	Incentive string `json:"incentive"`
	Raining   bool   `json:"raining"`
	Digest    string `json:"digest"`
}

func newSunriseCmd(a *app) *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "sunrise",
		Short: "Advance the season and collect the incentive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var report sunriseView
			ok, err := a.submit(cmd, "/v1/season/sunrise", map[string]string{"account": account}, &report)
			if !ok || err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "season\t%d\n", report.Season)
			fmt.Fprintf(tw, "case\t%d\n", report.CaseID)
			fmt.Fprintf(tw, "deltaB\t%s\n", formatRaw(report.DeltaB))
			fmt.Fprintf(tw, "minted\t%s\n", formatRaw(report.Minted))
			fmt.Fprintf(tw, "soil\t%s\n", formatRaw(report.Soil))
			fmt.Fprintf(tw, "incentive\t%s\n", formatRaw(report.Incentive))
			fmt.Fprintf(tw, "raining\t%t\n", report.Raining)
			fmt.Fprintf(tw, "digest\t%s\n", strings.ToLower(report.Digest))
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "incentive recipient")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/moneyguard/akahu"
	"github.com/spf13/cobra"
)

func (c *cli) connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Start the bank connection and print the consent URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			req, err := c.app.Flow.Initiate(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Open this URL in a browser to connect your bank:")
			fmt.Fprintln(out, req.URL)
			fmt.Fprintf(out, "Then run: moneyguard callback '<redirect url>' before %s\n", req.ExpiresAt.Local().Format(time.Kitchen))
			return nil
		},
	}
}

func (c *cli) callbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "callback [url]",
		Short: "Finish the bank connection with the redirect URL",
		Long: `Validates the redirect URL the provider sent the browser to, exchanges the
authorization code and stores the access token.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			if _, err := c.app.Flow.Complete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Bank connected")
			return nil
		},
	}
}

func (c *cli) disconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the bank connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Flow.Disconnect(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Bank disconnected")
			return nil
		},
	}
}

func (c *cli) meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the connected Akahu user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			connected, err := c.app.Akahu.IsConnected(ctx)
			if err != nil {
				return err
			}
			if !connected {
				fmt.Fprintln(cmd.OutOrStdout(), "Not connected")
				return nil
			}
			me, err := c.app.Akahu.GetMe(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), me)
		},
	}
}

func (c *cli) accountsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List connected accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			accounts, err := c.app.Akahu.GetAccounts(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), accounts)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tBANK\tNUMBER\tTYPE\tBALANCE")
			for _, a := range accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\n", a.ID, a.Name, a.Bank, a.AccountNumber, a.Type, a.Balance)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func (c *cli) transactionsCmd() *cobra.Command {
	var (
		asJSON    bool
		accountID string
		days      int
	)
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			q := akahu.LastDays(accountID, days, time.Now())
			txs, err := c.app.Akahu.GetTransactions(cmd.Context(), q)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), txs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tDESCRIPTION\tCATEGORY\tTYPE\tAMOUNT")
			for _, t := range txs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\n", t.Date.Format("2006-01-02"), t.Description, t.Category, t.Type, t.Amount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&accountID, "account", "", "Only transactions for this account id")
	cmd.Flags().IntVar(&days, "days", 30, "How many days back to list")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

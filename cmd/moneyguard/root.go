package main

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/moneyguard/internal/app"
	"github.com/jrsteele09/moneyguard/internal/config"
	"github.com/spf13/cobra"
)

// skipApp marks commands that run without opening the vault.
const skipApp = "skip-app"

// cli carries the lazily built application across a single command run.
type cli struct {
	opts app.Options
	app  *app.App
}

func newCLI(opts app.Options) *cli {
	return &cli{opts: opts}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "moneyguard",
		Short: "Money Guard keeps the bank connection and session secure",
		Long: `Money Guard manages the local session, the optional biometric gate and the
Akahu OAuth connection used to read accounts and transactions.
Configuration is read from MONEYGUARD_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipApp] == "true" {
				return nil
			}
			return c.open()
		},
	}

	root.AddCommand(
		c.statusCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.touchCmd(),
		c.connectCmd(),
		c.callbackCmd(),
		c.disconnectCmd(),
		c.biometricCmd(),
		c.passcodeCmd(),
		c.accountsCmd(),
		c.transactionsCmd(),
		c.meCmd(),
		c.wipeCmd(),
	)
	return root
}

func (c *cli) open() error {
	if c.app != nil {
		return nil
	}
	cfg, err := config.New()
	if err != nil {
		return err
	}
	a, err := app.New(cfg, c.opts)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

// requireSession resumes a live session or authenticates a new one.
func (c *cli) requireSession(cmd *cobra.Command) error {
	ctx := cmd.Context()
	ok, err := c.app.Auth.Bootstrap(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := c.app.Auth.Authenticate(ctx); err != nil {
		return fmt.Errorf("authentication required: %w", err)
	}
	return nil
}

var errNotConfirmed = errors.New("refusing to continue without --yes")

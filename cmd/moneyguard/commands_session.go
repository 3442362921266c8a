package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/jrsteele09/moneyguard/biometric/passcode"
	"github.com/spf13/cobra"
)

func (c *cli) statusCmd() *cobra.Command {
	var banner bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session, biometric and connection state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if banner {
				displayAppname(out, c.app.Config.GetAppName())
			}

			// A storage failure is reported, an expiry is just "no".
			if _, err := c.app.Auth.Bootstrap(ctx); err != nil {
				return err
			}
			connected, err := c.app.Credentials.Connected(ctx)
			if err != nil {
				return err
			}
			pending, err := c.app.Flow.Pending(ctx)
			if err != nil {
				return err
			}

			state := c.app.Auth.State()
			kinds := state.Capabilities.String()
			if kinds == "" {
				kinds = "none"
			}
			fmt.Fprintf(out, "Authenticated:     %s\n", yesNo(state.Authenticated))
			fmt.Fprintf(out, "Biometric enabled: %s\n", yesNo(state.BiometricEnabled))
			fmt.Fprintf(out, "Biometric usable:  %s (%s)\n", yesNo(state.Capabilities.Usable()), kinds)
			fmt.Fprintf(out, "Bank connected:    %s\n", yesNo(connected))
			fmt.Fprintf(out, "Connect pending:   %s\n", yesNo(pending))
			return nil
		},
	}
	cmd.Flags().BoolVar(&banner, "banner", false, "Print the application banner")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Resume the session or authenticate a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := c.app.Auth.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Session active")
				return nil
			}
			if err := c.app.Auth.Authenticate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Authenticated")
			return nil
		},
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) touchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "touch",
		Short: "Record activity on the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Auth.Touch(cmd.Context())
		},
	}
}

func (c *cli) biometricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biometric",
		Short: "Manage the biometric unlock preference",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Require a biometric challenge before each new session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.app.Auth.EnableBiometric(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Biometric authentication enabled")
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Stop requiring a biometric challenge",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.app.Auth.DisableBiometric(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Biometric authentication disabled")
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) passcodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passcode",
		Short: "Device passcode tools",
	}
	params := passcode.DefaultParams()
	hash := &cobra.Command{
		Use:   "hash",
		Short: "Read a passcode from stdin and print its MONEYGUARD_PASSCODE_HASH value",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			skipApp: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				if err != nil {
					return fmt.Errorf("reading passcode: %w", err)
				}
				return fmt.Errorf("passcode must not be empty")
			}
			encoded, err := passcode.Hash(line, params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
	hash.Flags().Uint32Var(&params.Time, "time", params.Time, "Argon2id iterations")
	hash.Flags().Uint32Var(&params.MemoryKiB, "memory", params.MemoryKiB, "Argon2id memory in KiB")
	hash.Flags().Uint8Var(&params.Parallelism, "parallelism", params.Parallelism, "Argon2id lanes")
	cmd.AddCommand(hash)
	return cmd
}

func (c *cli) wipeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete the session, bank connection and every stored preference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNotConfirmed
			}
			if err := c.app.Auth.WipeAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All secure data cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the wipe")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gotmail/gotmail-go/internal/api"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or update account settings",
	}

	cmd.AddCommand(newAutoReplyCmd())
	cmd.AddCommand(newFontCmd())
	cmd.AddCommand(newDarkModeCmd())

	return cmd
}

func newAutoReplyCmd() *cobra.Command {
	var (
		set      bool
		settings api.AutoReplySettings
	)

	cmd := &cobra.Command{
		Use:   "autoreply",
		Short: "Show or update auto-reply settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuthenticatedClient(func(ctx context.Context, client *api.Client) error {
				if !set {
					current, err := client.AutoReply(ctx)
					if err != nil {
						return err
					}

					return printJSON(current)
				}

				settings.Enabled = true
				if cmd.Flags().Changed("disable") {
					settings.Enabled = false
				}

				updated, err := client.UpdateAutoReply(ctx, settings)
				if err != nil {
					return err
				}

				return printJSON(updated)
			})
		},
	}

	cmd.Flags().BoolVar(&set, "set", false, "apply the given auto-reply settings")
	cmd.Flags().Bool("disable", false, "disable auto-reply")
	cmd.Flags().StringVar(&settings.Message, "message", "", "auto-reply message")
	cmd.Flags().StringVar(&settings.StartDate, "start", "", "start date (RFC 3339)")
	cmd.Flags().StringVar(&settings.EndDate, "end", "", "end date (RFC 3339)")

	return cmd
}

func newFontCmd() *cobra.Command {
	var settings api.FontSettings

	cmd := &cobra.Command{
		Use:   "font",
		Short: "Show or update font settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuthenticatedClient(func(ctx context.Context, client *api.Client) error {
				if !cmd.Flags().Changed("family") && !cmd.Flags().Changed("size") {
					current, err := client.Font(ctx)
					if err != nil {
						return err
					}

					return printJSON(current)
				}

				updated, err := client.UpdateFont(ctx, settings)
				if err != nil {
					return err
				}

				return printJSON(updated)
			})
		},
	}

	cmd.Flags().StringVar(&settings.FontFamily, "family", "", "font family")
	cmd.Flags().IntVar(&settings.FontSize, "size", 0, "font size")

	return cmd
}

func newDarkModeCmd() *cobra.Command {
	var enable, disable bool

	cmd := &cobra.Command{
		Use:   "darkmode",
		Short: "Show or set the dark mode preference",
		RunE: func(_ *cobra.Command, _ []string) error {
			if enable && disable {
				return fmt.Errorf("--on and --off are mutually exclusive")
			}

			return withAuthenticatedClient(func(ctx context.Context, client *api.Client) error {
				var (
					dark bool
					err  error
				)

				switch {
				case enable:
					dark, err = client.SetDarkMode(ctx, true)
				case disable:
					dark, err = client.SetDarkMode(ctx, false)
				default:
					dark, err = client.DarkMode(ctx)
				}

				if err != nil {
					return err
				}

				statusf("Dark mode: %v\n", dark)

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&enable, "on", false, "enable dark mode")
	cmd.Flags().BoolVar(&disable, "off", false, "disable dark mode")

	return cmd
}

// withAuthenticatedClient validates the session and hands the
// session-bound API client to fn.
func withAuthenticatedClient(fn func(context.Context, *api.Client) error) error {
	logger := buildLogger()

	sess, cleanup, err := newSession(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()

	if !sess.IsSessionValid(ctx) {
		return fmt.Errorf("not logged in — run 'gotmail login' first")
	}

	return fn(ctx, sess.API())
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

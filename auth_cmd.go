package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gotmail/gotmail-go/internal/api"
	"github.com/gotmail/gotmail-go/internal/cache"
	"github.com/gotmail/gotmail-go/internal/config"
	"github.com/gotmail/gotmail-go/internal/session"
)

func newLoginCmd() *cobra.Command {
	var phone, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the GotMail service",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLogin(phone, password)
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "account phone number")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("phone")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and remove the saved token",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Display the authenticated account",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWhoami(offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "show the cached identity without a network call")

	return cmd
}

func runLogin(phone, password string) error {
	logger := buildLogger()

	if password == "" {
		var err error

		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	sess, cleanup, err := newSession(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := sess.Login(context.Background(), phone, password); err != nil {
		return loginError(err)
	}

	state := sess.Current()
	statusf("Logged in as %s %s (%s).\n",
		state.Account.FirstName, state.Account.LastName, state.Account.PhoneNumber)

	return nil
}

// loginError maps pipeline failures onto actionable messages.
func loginError(err error) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 400 {
		return fmt.Errorf("login rejected: check phone number and password")
	}

	if errors.Is(err, api.ErrNetwork) {
		return fmt.Errorf("cannot reach the server: %w", err)
	}

	return err
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	sess, cleanup, err := newSession(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := sess.Logout(context.Background()); err != nil {
		return err
	}

	statusf("Logged out.\n")

	return nil
}

func runWhoami(offline bool) error {
	logger := buildLogger()

	if offline {
		return printCachedIdentity()
	}

	sess, cleanup, err := newSession(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if !sess.IsSessionValid(context.Background()) {
		return fmt.Errorf("not logged in — run 'gotmail login' first")
	}

	// Profile is lazily fetched; best-effort here for richer output.
	if _, err := sess.FetchUserProfile(context.Background()); err != nil {
		logger.Debug("profile fetch failed", "error", err.Error())
	}

	return printIdentity(sess.Current())
}

// printCachedIdentity renders the offline snapshot.
func printCachedIdentity() error {
	path := cfg.Cache.Path
	if path == "" {
		path = config.CachePath()
	}

	snapshots, err := cache.Open(path, buildLogger())
	if err != nil {
		return fmt.Errorf("opening offline cache: %w", err)
	}
	defer snapshots.Close()

	snap, err := snapshots.LoadSnapshot(context.Background())
	if errors.Is(err, cache.ErrNoSnapshot) {
		return fmt.Errorf("no cached identity — log in at least once")
	}

	if err != nil {
		return err
	}

	statusf("(cached %s)\n", snap.CachedAt.Format(time.RFC3339))

	return printIdentity(session.State{Account: &snap.Account, Profile: snap.Profile})
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	Account *api.Account     `json:"account"`
	Profile *api.UserProfile `json:"profile,omitempty"`
}

func printIdentity(state session.State) error {
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(whoamiOutput{Account: state.Account, Profile: state.Profile})
	}

	fmt.Printf("Name:  %s %s\n", state.Account.FirstName, state.Account.LastName)
	fmt.Printf("Phone: %s\n", state.Account.PhoneNumber)
	fmt.Printf("Email: %s\n", state.Account.Email)

	if state.Profile != nil {
		if state.Profile.Bio != "" {
			fmt.Printf("Bio:   %s\n", state.Profile.Bio)
		}

		if state.Profile.Birthdate != "" {
			fmt.Printf("Born:  %s\n", state.Profile.Birthdate)
		}
	}

	return nil
}

// promptPassword reads a password from stdin. The prompt goes to stderr
// so piped stdout stays clean.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")

	reader := bufio.NewReader(os.Stdin)

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("empty password")
	}

	return password, nil
}

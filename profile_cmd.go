package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gotmail/gotmail-go/internal/session"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the user profile",
	}

	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileUpdateCmd())

	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Fetch and display the profile",
		RunE:  runProfileShow,
	}
}

func newProfileUpdateCmd() *cobra.Command {
	var update session.ProfileUpdate

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields; omitted fields are left unchanged",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runProfileUpdate(update)
		},
	}

	cmd.Flags().StringVar(&update.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&update.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&update.Email, "email", "", "email address")
	cmd.Flags().StringVar(&update.Bio, "bio", "", "profile bio")
	cmd.Flags().StringVar(&update.Birthdate, "birthdate", "", "birthdate (YYYY-MM-DD)")
	cmd.Flags().StringVar(&update.PicturePath, "picture", "", "profile picture file")

	return cmd
}

func runProfileShow(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	sess, cleanup, err := newSession(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if !sess.IsSessionValid(context.Background()) {
		return fmt.Errorf("not logged in — run 'gotmail login' first")
	}

	if _, err := sess.FetchUserProfile(context.Background()); err != nil {
		return fmt.Errorf("fetching profile: %w", err)
	}

	return printIdentity(sess.Current())
}

func runProfileUpdate(update session.ProfileUpdate) error {
	logger := buildLogger()

	sess, cleanup, err := newSession(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if !sess.IsSessionValid(context.Background()) {
		return fmt.Errorf("not logged in — run 'gotmail login' first")
	}

	if err := sess.UpdateProfile(context.Background(), update); err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}

	statusf("Profile updated.\n")

	return printIdentity(sess.Current())
}

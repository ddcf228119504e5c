package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gotmail/gotmail-go/internal/api"
)

func newRegisterCmd() *cobra.Command {
	var req api.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account (does not log in)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runRegister(req)
		},
	}

	cmd.Flags().StringVar(&req.PhoneNumber, "phone", "", "phone number")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runRegister(req api.RegisterRequest) error {
	logger := buildLogger()

	sess, cleanup, err := newSession(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	account, err := sess.Register(context.Background(), req)
	if err != nil {
		return err
	}

	statusf("Account created for %s. Run 'gotmail login' to sign in.\n", account.PhoneNumber)

	return nil
}

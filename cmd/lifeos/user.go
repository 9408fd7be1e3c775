package main

import (
	"errors"
	"fmt"

	"github.com/lifeos/internal/db"
	"github.com/spf13/cobra"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage login accounts",
	}
	cmd.AddCommand(userEnsureCmd())
	return cmd
}

func userEnsureCmd() *cobra.Command {
	var (
		username string
		password string
		userID   string
	)

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create a user or reset its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}

			_, gdb, err := openDatabase()
			if err != nil {
				return err
			}

			user, err := db.EnsureUser(gdb, userID, username, password)
			if err != nil {
				return err
			}
			if user == nil {
				return errors.New("username and password must not be blank")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s (%s) ready\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().StringVar(&userID, "id", "", "explicit user id for a new account")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/lifeos/internal/service"
	"github.com/spf13/cobra"
)

func brainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brain",
		Short: "Guardian brain maintenance",
	}
	cmd.AddCommand(brainRunCmd())
	return cmd
}

func brainRunCmd() *cobra.Command {
	var (
		date   string
		userID string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daily brain once for a user and date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gdb, err := openDatabase()
			if err != nil {
				return err
			}

			if strings.TrimSpace(userID) == "" {
				userID = cfg.DefaultUserID
			}

			tasks := service.NewTaskService(gdb)
			guardian := service.NewGuardianService(gdb, tasks, cfg.Location())
			if strings.TrimSpace(date) == "" {
				date = guardian.Today()
			}

			result, err := guardian.RunDaily(context.Background(), userID, date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "brain run for %s at %s\n", result.TargetDate, result.RanAt.Format("2006-01-02 15:04:05"))
			for _, note := range result.Notes {
				fmt.Fprintf(out, "  - %s\n", note)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "target date YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&userID, "user", "", "user id (defaults to TODO_USER_ID)")
	return cmd
}

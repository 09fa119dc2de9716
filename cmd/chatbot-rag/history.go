package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zulfachrienst/chatbot-rag/internal/app"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear stored conversations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users with stored history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(built *app.BuildResult) error {
			users, err := built.History.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Print a user's turns as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(built *app.BuildResult) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(built.History.Get(cmd.Context(), args[0]))
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a user's history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(built *app.BuildResult) error {
			if err := built.History.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted history for %s\n", args[0])
			return nil
		})
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zulfachrienst/chatbot-rag/internal/app"
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Answer one message through the full pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		asJSON, _ := cmd.Flags().GetBool("json")
		message := strings.Join(args, " ")

		return withApp(cmd.Context(), nil, func(built *app.BuildResult) error {
			res, err := built.Chat.ProcessMessage(cmd.Context(), userID, message)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintln(out, res.Response)
			if len(res.RelatedProducts) > 0 {
				fmt.Fprintln(out)
				for _, p := range res.RelatedProducts {
					fmt.Fprintf(out, "  %.3f  %s  %s\n", p.Similarity, p.ID, p.Name)
				}
			}
			return nil
		})
	},
}

func init() {
	askCmd.Flags().String("user", "cli", "user id whose history is used")
	askCmd.Flags().Bool("json", false, "print the raw result as JSON")
	rootCmd.AddCommand(askCmd)
}

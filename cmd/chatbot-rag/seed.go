package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zulfachrienst/chatbot-rag/internal/app"
	"github.com/zulfachrienst/chatbot-rag/internal/catalog"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load products from a YAML file into the store and vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		reindex, _ := cmd.Flags().GetBool("reindex")

		products, err := catalog.LoadSeedFile(path)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), nil, func(built *app.BuildResult) error {
			stored, err := built.Indexer.PutBatch(cmd.Context(), products)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products from %s\n", len(stored), path)
			if !reindex {
				return nil
			}
			n, err := built.Indexer.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d products\n", n)
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().String("file", "products.yaml", "seed catalog file")
	seedCmd.Flags().Bool("reindex", false, "re-embed every stored product after seeding")
	rootCmd.AddCommand(seedCmd)
}

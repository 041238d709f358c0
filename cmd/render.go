package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render PAGE_FILE",
	Short: "Render a page file to standard output",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		ctx := log.Logger.WithContext(context.Background())

		dir, closeDirectory, err := initializeDirectory(ctx, appCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize directory")
		}
		defer closeDirectory()

		source, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("file", args[0]).Msg("Failed to read page")
		}

		if err := newPageRenderer(dir, appCfg).Render(ctx, os.Stdout, string(source)); err != nil {
			log.Fatal().Err(err).Msg("Failed to render page")
		}
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

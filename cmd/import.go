package cmd

import (
	"context"

	"github.com/EO-DataHub/eodhp-groupmatrix/db"
	"github.com/EO-DataHub/eodhp-groupmatrix/directory"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import USERS_FILE",
	Short: "Import users from a YAML directory file into the database",
	Long:  `Reads a static directory file and creates or updates its users, attributes and group memberships in the database directory backend.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		static, err := directory.LoadStatic(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("file", args[0]).Msg("Failed to load users file")
		}

		directoryDB, err := db.NewDirectoryDB(appCfg.Database.Source, &log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize DirectoryDB")
		}
		defer directoryDB.Close()

		if err := directoryDB.ImportUsers(context.Background(), static.Records()); err != nil {
			log.Fatal().Err(err).Msg("Failed to import users")
		}

		log.Info().Msg("Import complete")
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

package cmd

import (
	"github.com/EO-DataHub/eodhp-groupmatrix/db"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the database directory migrations",
	Long:  `This job creates or upgrades the tables of the database directory backend using goose migrations.`,
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		directoryDB, err := db.NewDirectoryDB(appCfg.Database.Source, &log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize DirectoryDB")
		}
		defer directoryDB.Close()

		// Run the migrations
		log.Info().Msgf("Running migrations...")
		if err := directoryDB.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		log.Info().Msg("Migrations complete")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

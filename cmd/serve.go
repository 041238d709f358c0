package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/EO-DataHub/eodhp-groupmatrix/api/handlers"
	"github.com/EO-DataHub/eodhp-groupmatrix/api/middleware"
	"github.com/EO-DataHub/eodhp-groupmatrix/internal/wiki"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server rendering wiki pages",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		dir, closeDirectory, err := initializeDirectory(context.Background(), appCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize directory")
		}
		defer closeDirectory()

		renderer := newPageRenderer(dir, appCfg)
		store := wiki.Store{Dir: appCfg.Pages.Dir}

		// Create routes
		r := mux.NewRouter()
		api := r.PathPrefix(appCfg.BasePath).Subrouter()

		// Apply the middleware to the API routes
		api.Use(middleware.WithLogger)

		api.HandleFunc("/pages/{page}", handlers.GetPage(store, renderer)).Methods(http.MethodGet)
		api.HandleFunc("/render", handlers.RenderPage(renderer)).Methods(http.MethodPost)
		api.HandleFunc("/matrix", handlers.GetMatrix(dir)).Methods(http.MethodGet)

		addr := listenAddr(appCfg.Host, host, cmd.Flags().Changed("host"), port)

		server := &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
		}

		log.Info().Msg(fmt.Sprintf("Server started at %s", addr))

		if err := server.ListenAndServe(); err != nil {
			log.Error().Err(err).Msg("could not start server")
		}
	},
}

// listenAddr uses the configured host unless --host was given.
func listenAddr(configHost, flagHost string, flagSet bool, port int) string {
	h := flagHost
	if configHost != "" && !flagSet {
		h = configHost
	}
	return fmt.Sprintf("%s:%d", h, port)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to run the server on")
	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the server on")
}

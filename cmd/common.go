package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/EO-DataHub/eodhp-groupmatrix/db"
	"github.com/EO-DataHub/eodhp-groupmatrix/directory"
	"github.com/EO-DataHub/eodhp-groupmatrix/internal/appconfig"
	"github.com/EO-DataHub/eodhp-groupmatrix/internal/awsclient"
	"github.com/EO-DataHub/eodhp-groupmatrix/internal/groupmatrix"
	"github.com/EO-DataHub/eodhp-groupmatrix/internal/matrix"
	"github.com/EO-DataHub/eodhp-groupmatrix/internal/wiki"
	"github.com/rs/zerolog/log"
)

var appCfg *appconfig.Config

// commonSetUp sets the log level and loads the config file.
func commonSetUp() {
	setLogging(logLevel)

	var err error
	appCfg, err = appconfig.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
	}
}

// initializeDirectory creates the configured directory backend. The returned
// function releases its resources.
func initializeDirectory(ctx context.Context, cfg *appconfig.Config) (matrix.Directory, func(), error) {
	switch cfg.Directory.Backend {
	case appconfig.BackendStatic:
		static, err := directory.LoadStatic(cfg.Directory.File)
		if err != nil {
			return nil, nil, err
		}
		return static, func() {}, nil

	case appconfig.BackendKeycloak:
		keycloakClient, err := initializeKeycloakClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return keycloakClient, func() {}, nil

	case appconfig.BackendDatabase:
		directoryDB, err := db.NewDirectoryDB(cfg.Database.Source, &log.Logger)
		if err != nil {
			return nil, nil, err
		}
		return directoryDB, func() { directoryDB.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown directory backend %q", cfg.Directory.Backend)
}

// initializeKeycloakClient creates the Keycloak client. The client secret is
// read from AWS Secrets Manager when an ARN is configured, otherwise from the
// KEYCLOAK_CLIENT_SECRET environment variable.
func initializeKeycloakClient(ctx context.Context, cfg *appconfig.Config) (*directory.KeycloakClient, error) {
	secret := os.Getenv("KEYCLOAK_CLIENT_SECRET")

	if cfg.Keycloak.ClientSecretArn != "" {
		log.Info().Str("region", cfg.AWS.Region).Msg("Reading Keycloak client secret from Secrets Manager")

		awsCfg, err := awsclient.LoadAWSConfig(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		secret, err = awsclient.GetSecretString(ctx, awsclient.NewSecretsManagerClient(awsCfg), cfg.Keycloak.ClientSecretArn)
		if err != nil {
			return nil, err
		}
	}

	keycloakClient := directory.NewKeycloakClient(cfg.Keycloak.URL, cfg.Keycloak.ClientId, secret, cfg.Keycloak.Realm)
	keycloakClient.PageSize = cfg.Keycloak.PageSize

	return keycloakClient, nil
}

func newPageRenderer(dir matrix.Directory, cfg *appconfig.Config) *wiki.Renderer {
	return wiki.NewRenderer(groupmatrix.NewSyntax(dir, cfg.Render.TableClass))
}

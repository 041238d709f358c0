package appconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_ExpandsEnvironment(t *testing.T) {
	t.Setenv("GROUPMATRIX_TEST_DB", "postgres://user:pass@db:5432/wiki")

	path := writeConfig(t, `
host: wiki.example.com
basePath: /wiki
directory:
  backend: database
database:
  source: "{{.GROUPMATRIX_TEST_DB}}"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "wiki.example.com", cfg.Host)
	assert.Equal(t, BackendDatabase, cfg.Directory.Backend)
	assert.Equal(t, "postgres://user:pass@db:5432/wiki", cfg.Database.Source)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "directory:\n  file: users.yaml\n"))
	require.NoError(t, err)

	assert.Equal(t, BackendStatic, cfg.Directory.Backend)
	assert.Equal(t, "groupmatrix", cfg.Render.TableClass)
	assert.Equal(t, 100, cfg.Keycloak.PageSize)
	assert.Equal(t, "pages", cfg.Pages.Dir)
}

func TestLoadConfig_MissingPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Validation(t *testing.T) {
	tests := map[string]string{
		"static without file":    "directory:\n  backend: static\n",
		"keycloak without realm": "directory:\n  backend: keycloak\nkeycloak:\n  url: http://kc\n  clientId: wiki\n",
		"database without dsn":   "directory:\n  backend: database\n",
		"unsupported driver":     "directory:\n  backend: database\ndatabase:\n  driver: mysql\n  source: x\n",
		"unknown backend":        "directory:\n  backend: ldap\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(content))
			assert.Error(t, err)
		})
	}
}

func TestParse_Keycloak(t *testing.T) {
	cfg, err := Parse([]byte(`
directory:
  backend: Keycloak
keycloak:
  url: https://auth.example.com
  realm: wiki
  clientId: groupmatrix
  clientSecretArn: arn:aws:secretsmanager:eu-west-2:123:secret:kc
  pageSize: 50
aws:
  region: eu-west-2
`))
	require.NoError(t, err)

	assert.Equal(t, BackendKeycloak, cfg.Directory.Backend)
	assert.Equal(t, 50, cfg.Keycloak.PageSize)
	assert.Equal(t, "arn:aws:secretsmanager:eu-west-2:123:secret:kc", cfg.Keycloak.ClientSecretArn)
	assert.Equal(t, "eu-west-2", cfg.AWS.Region)
}

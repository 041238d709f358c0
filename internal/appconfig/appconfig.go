package appconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v2"
)

// Directory backends.
const (
	BackendStatic   = "static"
	BackendKeycloak = "keycloak"
	BackendDatabase = "database"
)

const (
	defaultTableClass = "groupmatrix"
	defaultPageSize   = 100
	defaultPagesDir   = "pages"
)

// Config holds all configuration details
type Config struct {
	// Host is the address the server listens on unless --host is given
	Host      string          `yaml:"host"`
	BasePath  string          `yaml:"basePath"`
	Directory DirectoryConfig `yaml:"directory"`
	Keycloak  KeycloakConfig  `yaml:"keycloak"`
	Database  DatabaseConfig  `yaml:"database"`
	AWS       AWSConfig       `yaml:"aws"`
	Pages     PagesConfig     `yaml:"pages"`
	Render    RenderConfig    `yaml:"render"`
}

// DirectoryConfig selects where group memberships are read from
type DirectoryConfig struct {
	Backend string `yaml:"backend"`
	File    string `yaml:"file"`
}

// KeycloakConfig defines authentication configuration
type KeycloakConfig struct {
	ClientId        string `yaml:"clientId"`
	URL             string `yaml:"url"`
	Realm           string `yaml:"realm"`
	ClientSecretArn string `yaml:"clientSecretArn"`
	PageSize        int    `yaml:"pageSize"`
}

// DatabaseConfig defines the database connection details
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Source string `yaml:"source"`
}

type AWSConfig struct {
	Region string `yaml:"region"`
}

// PagesConfig locates the wiki pages served over HTTP
type PagesConfig struct {
	Dir string `yaml:"dir"`
}

type RenderConfig struct {
	TableClass string `yaml:"tableClass"`
}

// LoadConfig loads and parses the configuration from a given file path
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config file path is required")
	}

	// Parse the template file
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file template: %w", err)
	}

	// Execute the template with environment variables
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, loadEnvVars()); err != nil {
		return nil, fmt.Errorf("error executing config file template: %w", err)
	}

	return Parse(buf.Bytes())
}

// Parse unmarshals YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) setDefaults() {
	if c.Directory.Backend == "" {
		c.Directory.Backend = BackendStatic
	}
	c.Directory.Backend = strings.ToLower(c.Directory.Backend)
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Keycloak.PageSize <= 0 {
		c.Keycloak.PageSize = defaultPageSize
	}
	if c.Pages.Dir == "" {
		c.Pages.Dir = defaultPagesDir
	}
	if c.Render.TableClass == "" {
		c.Render.TableClass = defaultTableClass
	}
}

// Validate checks that the selected directory backend is configured.
func (c *Config) Validate() error {
	switch c.Directory.Backend {
	case BackendStatic:
		if c.Directory.File == "" {
			return errors.New("directory.file is required for the static backend")
		}
	case BackendKeycloak:
		if c.Keycloak.URL == "" || c.Keycloak.Realm == "" || c.Keycloak.ClientId == "" {
			return errors.New("keycloak.url, keycloak.realm and keycloak.clientId are required for the keycloak backend")
		}
	case BackendDatabase:
		if c.Database.Source == "" {
			return errors.New("database.source is required for the database backend")
		}
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown directory backend %q", c.Directory.Backend)
	}
	return nil
}

// loadEnvVars loads environment variables into a map
func loadEnvVars() map[string]string {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		kv := strings.SplitN(env, "=", 2)
		if len(kv) == 2 {
			envVars[kv[0]] = kv[1]
		}
	}
	return envVars
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopsql/tsql/gen"
	"github.com/gopsql/tsql/schema"
	"github.com/spf13/viper"
)

const (
	maxWalkDepth = 25
)

// Config represents the tsql configuration from tsql.yaml.
type Config struct {
	// Path of the schema file
	Schema string `mapstructure:"schema"`

	Database DatabaseConfig `mapstructure:"database"`
	Generate GenerateConfig `mapstructure:"generate"`

	// DATABASE_URL environment variable
	EnvURL string `mapstructure:"database_url"`
	// DATABASE_URL of the .env file
	DotEnvURL string `mapstructure:"-"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL    string `mapstructure:"url"`
	Driver string `mapstructure:"driver"`
}

// GenerateConfig holds code generation settings.
type GenerateConfig struct {
	Output  string                 `mapstructure:"output"`
	Package string                 `mapstructure:"package"`
	Tables  map[string]TableConfig `mapstructure:"tables"`
}

// TableConfig holds code generation settings of a table.
type TableConfig struct {
	Package string                      `mapstructure:"package"`
	Fields  map[string]gen.FieldOptions `mapstructure:"fields"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("TSQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database_url", "DATABASE_URL"); err != nil {
		return nil, "", err
	}

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	dir := "."
	if configPath != "" {
		dir = filepath.Dir(configPath)
	}
	cfg.DotEnvURL, err = readDotEnv(filepath.Join(dir, ".env"))
	if err != nil {
		return nil, configPath, err
	}
	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema", schema.DefaultPath)

	v.SetDefault("database.url", "")
	v.SetDefault("database.driver", schema.DriverPgx)

	v.SetDefault("generate.output", "models")
	v.SetDefault("generate.package", gen.DefaultPackage)
}

// readDotEnv returns DATABASE_URL of a .env file, empty if the file does
// not exist.
func readDotEnv(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return v.GetString("DATABASE_URL"), nil
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for tsql.yaml or tsql.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"tsql.yaml", "tsql.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// DatabaseURL returns the first database url set by the flag, the
// DATABASE_URL environment variable, the .env file or the config file.
func (c *Config) DatabaseURL(flag string) (string, error) {
	url := ResolveString(flag, c.EnvURL, c.DotEnvURL, c.Database.URL)
	if url == "" {
		return "", ConfigError("missing database url, either set the DATABASE_URL environment variable, "+
			"or specify it manually via --database-url", nil)
	}
	return url, nil
}

// TableOptions returns generation options of every configured table.
func (c *Config) TableOptions() map[string]gen.Options {
	out := map[string]gen.Options{}
	for name, t := range c.Generate.Tables {
		out[name] = gen.Options{Package: t.Package, Fields: t.Fields}
	}
	return out
}

// ResolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func ResolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

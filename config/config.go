package config

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/core"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the working directory and in
// ~/.patchwork.
const FileName = "patchwork.yaml"

// Config stores all configuration of the application.
type Config struct {
	ProjectDir string            `mapstructure:"project_dir"`
	Recipe     string            `mapstructure:"recipe"`
	Policy     string            `mapstructure:"policy"`
	Journal    bool              `mapstructure:"journal"`
	DryRun     bool              `mapstructure:"dry_run"`
	Plain      bool              `mapstructure:"plain"`
	LogLevel   string            `mapstructure:"log_level"`
	Vars       map[string]string `mapstructure:"vars"`
}

// New returns a viper instance with defaults and environment binding set
// up. Command-line flags are bound onto it by the caller.
func New(fsys afero.Fs) *viper.Viper {
	v := viper.New()
	if fsys != nil {
		v.SetFs(fsys)
	}

	v.SetDefault("project_dir", ".")
	v.SetDefault("recipe", "rails-devise")
	v.SetDefault("policy", "abort")
	v.SetDefault("journal", true)
	v.SetDefault("dry_run", false)
	v.SetDefault("plain", false)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("PATCHWORK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and decodes the result. configPath
// names an explicit file; when empty, patchwork.yaml is searched for in
// the working directory and homeDir/.patchwork, and a missing file is not
// an error.
func Load(v *viper.Viper, configPath, homeDir string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if homeDir != "" {
			v.AddConfigPath(filepath.Join(homeDir, ".patchwork"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode config into struct")
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.ProjectDir == "" {
		return errors.New("project_dir must not be empty")
	}
	if cfg.Recipe == "" {
		return errors.New("recipe must not be empty")
	}
	if _, err := core.ParsePolicy(cfg.Policy); err != nil {
		return err
	}
	return nil
}

const defaultConfig = `# patchwork configuration

# Recipe to apply: a bundled recipe name or a path to a recipe file.
recipe: rails-devise

# Directory the project is generated in.
project_dir: .

# What a failing step does to the rest of the run: abort or continue.
policy: abort

# Remember finished steps in .patchwork/journal.yaml and skip them next time.
journal: true

# Log external commands instead of running them.
dry_run: false

# Print one line per step instead of the interactive view.
plain: false

log_level: info

# Values for the recipe's template variables.
# vars:
#   app_name: raft
#   deploy_host: www.example.com
#   repo_url: git@example.com:organization/raft.git
`

// CreateDefaultConfig writes a commented config file to path. An existing
// file is left alone.
func CreateDefaultConfig(fsys afero.Fs, path string) (bool, error) {
	if ok, _ := afero.Exists(fsys, path); ok {
		return false, nil
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, errors.Wrap(err, "unable to create config directory")
	}
	if err := afero.WriteFile(fsys, path, []byte(defaultConfig), 0644); err != nil {
		return false, errors.Wrap(err, "unable to write default config file")
	}
	return true, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "smellscan"
	envPrefix  = "SMELLSCAN"
	configType = "yaml"
)

// Model pairs a short alias used in artifact names with the backend model ID.
type Model struct {
	Alias string `mapstructure:"alias" yaml:"alias" json:"alias" validate:"required,excludesall=/\\"`
	ID    string `mapstructure:"id" yaml:"id" json:"id" validate:"required"`
}

// Config is the complete, immutable run configuration.
type Config struct {
	Repo              RepoConfig    `mapstructure:"repo" yaml:"repo" json:"repo"`
	Revisions         int           `mapstructure:"revisions" yaml:"revisions" json:"revisions" validate:"gte=0"`
	Workers           int           `mapstructure:"workers" yaml:"workers" json:"workers" validate:"min=1"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens" json:"maxTokens" validate:"min=1"`
	Temperature       float64       `mapstructure:"temperature" yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	FileLimit         int           `mapstructure:"file_limit" yaml:"file_limit" json:"fileLimit" validate:"gte=0"`
	MinContentChars   int           `mapstructure:"min_content_chars" yaml:"min_content_chars" json:"minContentChars" validate:"gte=0"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" json:"requestTimeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second" json:"requestsPerSecond" validate:"gte=0"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries" json:"maxRetries" validate:"gte=0,lte=10"`
	ModelParallelism  int           `mapstructure:"model_parallelism" yaml:"model_parallelism" json:"modelParallelism" validate:"min=1"`
	Provider          string        `mapstructure:"provider" yaml:"provider" json:"provider" validate:"oneof=huggingface openai ollama anthropic"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url,omitempty" json:"baseURL,omitempty" validate:"omitempty,url"`
	Models            []Model       `mapstructure:"models" yaml:"models" json:"models" validate:"required,min=1,unique=Alias,dive"`
	Collect           CollectConfig `mapstructure:"collect" yaml:"collect" json:"collect"`
	Output            OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
	Privacy           PrivacyConfig `mapstructure:"privacy" yaml:"privacy" json:"privacy"`
	Log               LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
	MetricsAddr       string        `mapstructure:"metrics_addr" yaml:"metrics_addr,omitempty" json:"metricsAddr,omitempty"`
}

// RepoConfig locates the analyzed repository.
type RepoConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir" validate:"required"`
	// URL is cloned into Dir when Dir does not exist yet.
	URL string `mapstructure:"url" yaml:"url,omitempty" json:"url,omitempty"`
}

// CollectConfig controls file discovery.
type CollectConfig struct {
	Roots      []string `mapstructure:"roots" yaml:"roots" json:"roots" validate:"required,min=1,dive,required"`
	SourceDir  string   `mapstructure:"source_dir" yaml:"source_dir" json:"sourceDir" validate:"required"`
	Extensions []string `mapstructure:"extensions" yaml:"extensions" json:"extensions" validate:"required,min=1,dive,required"`
	Exclude    []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

// OutputConfig controls where checkpoint artifacts go.
type OutputConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir" json:"dir" validate:"required"`
	Prefix string `mapstructure:"prefix" yaml:"prefix" json:"prefix" validate:"required,excludesall=/\\"`
}

// PrivacyConfig controls redaction of file content before it is sent out.
type PrivacyConfig struct {
	RedactSecrets bool     `mapstructure:"redact_secrets" yaml:"redact_secrets" json:"redactSecrets"`
	RedactPaths   []string `mapstructure:"redact_paths" yaml:"redact_paths,omitempty" json:"redactPaths,omitempty"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=text json"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Repo:              RepoConfig{Dir: "mastra", URL: "https://github.com/mastra-ai/mastra.git"},
		Revisions:         3,
		Workers:           16,
		MaxTokens:         1000,
		Temperature:       0.1,
		FileLimit:         0,
		MinContentChars:   50,
		RequestTimeout:    5 * time.Minute,
		RequestsPerSecond: 0,
		MaxRetries:        0,
		ModelParallelism:  1,
		Provider:          "huggingface",
		Models: []Model{
			{Alias: "qwen_small", ID: "Qwen/Qwen2.5-Coder-3B-Instruct"},
			{Alias: "qwen_medium", ID: "Qwen/Qwen2.5-Coder-7B-Instruct"},
			{Alias: "qwen_larger", ID: "Qwen/Qwen2.5-Coder-14B-Instruct"},
		},
		Collect: CollectConfig{
			Roots: []string{
				"packages/core",
				"packages/memory",
				"packages/rag",
				"packages/agent-builder",
				"packages/server",
				"packages/auth",
				"packages/deployer",
				"packages/cli",
			},
			SourceDir:  "src",
			Extensions: []string{".ts", ".js", ".tsx"},
			Exclude:    []string{".test.", ".spec.", ".d.ts"},
		},
		Output: OutputConfig{Dir: ".", Prefix: "results"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// ValidationError reports a configuration that failed validation.
type ValidationError struct {
	Problems []string
	Err      error
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and returns a *ValidationError on failure.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Problems: []string{err.Error()}, Err: err}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s fails %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			problems = append(problems, fmt.Sprintf("%s fails %s", field, fe.Tag()))
		}
	}
	return &ValidationError{Problems: problems, Err: err}
}

// ConfigDir returns the platform-appropriate config directory for smellscan.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName), nil
		}
		return filepath.Join(home, "AppData", "Roaming", appName), nil
	default:
		return filepath.Join(home, ".config", appName), nil
	}
}

// ConfigPath returns the full path to the user config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load builds the effective config by merging, lowest to highest:
// defaults <- config file <- .env <- environment <- overrides.
// path selects an explicit config file; when empty ./smellscan.yaml and then
// the user config file are tried. Override keys use the file key names,
// e.g. "workers" or "output.dir".
func Load(path string, overrides map[string]string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := newViper()
	bindEnv(v)

	if err := readConfigFile(v, path); err != nil {
		return Config{}, err
	}

	for key, value := range overrides {
		if value != "" {
			v.Set(key, value)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile loads defaults merged with the config file only, ignoring the
// environment. It is used when editing the file.
func LoadFile(path string) (Config, error) {
	v := newViper()
	if err := readConfigFile(v, path); err != nil {
		return Config{}, err
	}
	return unmarshal(v)
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// LoadDotEnv exports KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set win. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for _, key := range dv.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, dv.GetString(key)); err != nil {
			return fmt.Errorf("exporting %s: %w", name, err)
		}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	applyDefaults(v, Default())
	v.SetConfigType(configType)
	return v
}

func applyDefaults(v *viper.Viper, d Config) {
	v.SetDefault("repo.dir", d.Repo.Dir)
	v.SetDefault("repo.url", d.Repo.URL)
	v.SetDefault("revisions", d.Revisions)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("max_tokens", d.MaxTokens)
	v.SetDefault("temperature", d.Temperature)
	v.SetDefault("file_limit", d.FileLimit)
	v.SetDefault("min_content_chars", d.MinContentChars)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("requests_per_second", d.RequestsPerSecond)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("model_parallelism", d.ModelParallelism)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("base_url", d.BaseURL)

	models := make([]map[string]any, len(d.Models))
	for i, m := range d.Models {
		models[i] = map[string]any{"alias": m.Alias, "id": m.ID}
	}
	v.SetDefault("models", models)

	v.SetDefault("collect.roots", d.Collect.Roots)
	v.SetDefault("collect.source_dir", d.Collect.SourceDir)
	v.SetDefault("collect.extensions", d.Collect.Extensions)
	v.SetDefault("collect.exclude", d.Collect.Exclude)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.prefix", d.Output.Prefix)
	v.SetDefault("privacy.redact_secrets", d.Privacy.RedactSecrets)
	if len(d.Privacy.RedactPaths) > 0 {
		v.SetDefault("privacy.redact_paths", d.Privacy.RedactPaths)
	}
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("metrics_addr", d.MetricsAddr)
}

// legacyEnv maps config keys to the variable names used by earlier scripts.
var legacyEnv = map[string]string{
	"workers":    "MAX_WORKERS",
	"max_tokens": "MAX_TOKENS",
	"file_limit": "LIMIT_FILES_PER_TAG",
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		primary := envPrefix + "_" + strings.ToUpper(key)
		// BindEnv only errors when called without a key.
		_ = v.BindEnv(key, primary, legacy)
	}
}

func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		path = discoverConfigFile()
		if path == "" {
			return nil
		}
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

// discoverConfigFile returns ./smellscan.yaml, else the user config file,
// else "".
func discoverConfigFile() string {
	candidates := []string{appName + "." + configType}
	if p, err := ConfigPath(); err == nil {
		candidates = append(candidates, p)
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c
		}
	}
	return ""
}

func unmarshal(v *viper.Viper) (Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToModelsHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

var modelsType = reflect.TypeOf([]Model{})

// stringToModelsHook lets models be given as "alias=id,alias=id", which is
// the only form an environment variable or flag can carry.
func stringToModelsHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != modelsType {
		return data, nil
	}
	return ParseModels(data.(string))
}

// ParseModels parses "alias=id,alias=id".
func ParseModels(s string) ([]Model, error) {
	var models []Model
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		alias, id, ok := strings.Cut(part, "=")
		alias, id = strings.TrimSpace(alias), strings.TrimSpace(id)
		if !ok || alias == "" || id == "" {
			return nil, fmt.Errorf("invalid model %q: expected alias=id", part)
		}
		models = append(models, Model{Alias: alias, ID: id})
	}
	return models, nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "repo.dir":
		cfg.Repo.Dir = value
	case "repo.url":
		cfg.Repo.URL = value
	case "provider":
		cfg.Provider = value
	case "base_url":
		cfg.BaseURL = value
	case "output.dir":
		cfg.Output.Dir = value
	case "output.prefix":
		cfg.Output.Prefix = value
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	case "metrics_addr":
		cfg.MetricsAddr = value
	case "models":
		models, err := ParseModels(value)
		if err != nil {
			return err
		}
		cfg.Models = models
	case "revisions", "workers", "max_tokens", "file_limit", "min_content_chars", "max_retries", "model_parallelism":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		*intField(cfg, key) = n
	case "temperature", "requests_per_second":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", key, err)
		}
		if key == "temperature" {
			cfg.Temperature = f
		} else {
			cfg.RequestsPerSecond = f
		}
	case "request_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("request_timeout must be a duration: %w", err)
		}
		cfg.RequestTimeout = d
	case "privacy.redact_secrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("privacy.redact_secrets must be a boolean: %w", err)
		}
		cfg.Privacy.RedactSecrets = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func intField(cfg *Config, key string) *int {
	switch key {
	case "revisions":
		return &cfg.Revisions
	case "workers":
		return &cfg.Workers
	case "max_tokens":
		return &cfg.MaxTokens
	case "file_limit":
		return &cfg.FileLimit
	case "min_content_chars":
		return &cfg.MinContentChars
	case "max_retries":
		return &cfg.MaxRetries
	default:
		return &cfg.ModelParallelism
	}
}

// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Pages   PagesConfig   `mapstructure:"pages" yaml:"pages"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
	Smoke   SmokeConfig   `mapstructure:"smoke" yaml:"smoke"`
	Review  ReviewConfig  `mapstructure:"review" yaml:"review"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DriverKind names one of the supported browser automation backends.
type DriverKind string

const (
	DriverCDP        DriverKind = "cdp"
	DriverPlaywright DriverKind = "playwright"
	DriverSelenium   DriverKind = "selenium"
)

// DefaultLaunchTimeout bounds browser startup when no launch_timeout is set.
const DefaultLaunchTimeout = 60 * time.Second

// BrowserConfig selects and tunes the browser backend.
type BrowserConfig struct {
	Driver       DriverKind    `mapstructure:"driver" yaml:"driver"`
	Headless     bool          `mapstructure:"headless" yaml:"headless"`
	WindowWidth  int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int           `mapstructure:"window_height" yaml:"window_height"`
	Args         []string      `mapstructure:"args" yaml:"args"`
	// RemoteURL is the WebDriver endpoint used by the selenium backend.
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url"`
	// Install downloads the playwright browsers before launch when set.
	Install       bool          `mapstructure:"install" yaml:"install"`
	LaunchTimeout time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// PagesConfig holds the page-object layer settings.
type PagesConfig struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ReportConfig controls the Allure results output.
type ReportConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	ResultsDir string `mapstructure:"results_dir" yaml:"results_dir"`
}

// SmokeConfig holds the credentials and fan-out of the smoke command.
type SmokeConfig struct {
	Username    string `mapstructure:"username" yaml:"username"`
	Password    string `mapstructure:"password" yaml:"password"`
	BadPassword string `mapstructure:"bad_password" yaml:"bad_password"`
	Parallel    int    `mapstructure:"parallel" yaml:"parallel"`
}

// LLMProvider identifies a code review backend.
type LLMProvider string

const (
	ProviderOpenAI  LLMProvider = "openai"
	ProviderGemini  LLMProvider = "gemini"
	ProviderMistral LLMProvider = "mistral"
)

// ReviewConfig configures the code review command.
type ReviewConfig struct {
	Provider      LLMProvider    `mapstructure:"provider" yaml:"provider"`
	MaxCodeLength int            `mapstructure:"max_code_length" yaml:"max_code_length"`
	OpenAI        LLMModelConfig `mapstructure:"openai" yaml:"openai"`
	Gemini        LLMModelConfig `mapstructure:"gemini" yaml:"gemini"`
	Mistral       LLMModelConfig `mapstructure:"mistral" yaml:"mistral"`
}

// LLMModelConfig holds the settings of a single provider.
type LLMModelConfig struct {
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// ProviderConfig returns the model settings for the given provider.
func (r ReviewConfig) ProviderConfig(p LLMProvider) (LLMModelConfig, bool) {
	switch p {
	case ProviderOpenAI:
		return r.OpenAI, true
	case ProviderGemini:
		return r.Gemini, true
	case ProviderMistral:
		return r.Mistral, true
	}
	return LLMModelConfig{}, false
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "sauceprobe")
	v.SetDefault("logger.log_file", "test_run.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", string(DriverCDP))
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.args", []string{"--no-sandbox", "--disable-dev-shm-usage"})
	v.SetDefault("browser.remote_url", "http://localhost:4444/wd/hub")
	v.SetDefault("browser.install", false)
	v.SetDefault("browser.launch_timeout", "60s")

	// -- Pages --
	v.SetDefault("pages.base_url", "https://www.saucedemo.com/")
	v.SetDefault("pages.default_timeout", "10s")
	v.SetDefault("pages.poll_interval", "500ms")

	// -- Report --
	v.SetDefault("report.enabled", true)
	v.SetDefault("report.results_dir", "allure-results")

	// -- Smoke --
	v.SetDefault("smoke.username", "standard_user")
	v.SetDefault("smoke.password", "secret_sauce")
	v.SetDefault("smoke.bad_password", "wrong_password")
	v.SetDefault("smoke.parallel", 1)

	// -- Review --
	v.SetDefault("review.provider", string(ProviderOpenAI))
	v.SetDefault("review.max_code_length", 12000)
	v.SetDefault("review.openai.model", "gpt-4o-mini")
	v.SetDefault("review.openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("review.openai.temperature", 0.2)
	v.SetDefault("review.openai.max_tokens", 900)
	v.SetDefault("review.openai.api_timeout", "2m")
	v.SetDefault("review.openai.requests_per_minute", 20)
	v.SetDefault("review.gemini.model", "gemini-2.5-flash")
	v.SetDefault("review.gemini.temperature", 0.2)
	v.SetDefault("review.gemini.max_tokens", 900)
	v.SetDefault("review.gemini.api_timeout", "2m")
	v.SetDefault("review.gemini.requests_per_minute", 20)
	v.SetDefault("review.mistral.model", "mistral-small-latest")
	v.SetDefault("review.mistral.endpoint", "https://api.mistral.ai/v1")
	v.SetDefault("review.mistral.temperature", 0.2)
	v.SetDefault("review.mistral.max_tokens", 900)
	v.SetDefault("review.mistral.api_timeout", "2m")
	v.SetDefault("review.mistral.requests_per_minute", 20)
}

// BindSecrets maps provider API keys onto their conventional, unprefixed
// environment variable names.
func BindSecrets(v *viper.Viper) {
	_ = v.BindEnv("review.openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("review.gemini.api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("review.mistral.api_key", "MISTRAL_API_KEY")
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	BindSecrets(v)

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// Every problem found is reported, not just the first.
func (c *Config) Validate() error {
	var errs []error

	switch c.Browser.Driver {
	case DriverCDP, DriverPlaywright, DriverSelenium:
	default:
		errs = append(errs, fmt.Errorf("browser.driver %q is not one of cdp, playwright, selenium", c.Browser.Driver))
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		errs = append(errs, errors.New("browser.window_width and browser.window_height must be positive"))
	}
	if c.Browser.Driver == DriverSelenium && c.Browser.RemoteURL == "" {
		errs = append(errs, errors.New("browser.remote_url is required for the selenium driver"))
	}

	if u, err := url.Parse(c.Pages.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("pages.base_url %q is not an absolute URL", c.Pages.BaseURL))
	}
	if c.Pages.DefaultTimeout <= 0 {
		errs = append(errs, errors.New("pages.default_timeout must be positive"))
	}
	if c.Pages.PollInterval <= 0 {
		errs = append(errs, errors.New("pages.poll_interval must be positive"))
	}

	if c.Report.Enabled && c.Report.ResultsDir == "" {
		errs = append(errs, errors.New("report.results_dir is required when reporting is enabled"))
	}
	if c.Smoke.Parallel <= 0 {
		errs = append(errs, errors.New("smoke.parallel must be a positive integer"))
	}

	if _, ok := c.Review.ProviderConfig(c.Review.Provider); !ok {
		errs = append(errs, fmt.Errorf("review.provider %q is not one of openai, gemini, mistral", c.Review.Provider))
	}
	if c.Review.MaxCodeLength <= 0 {
		errs = append(errs, errors.New("review.max_code_length must be a positive integer"))
	}

	return errors.Join(errs...)
}

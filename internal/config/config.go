// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Target    TargetConfig    `mapstructure:"target" yaml:"target"`
	Wait      WaitPolicy      `mapstructure:"wait" yaml:"wait"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch"`
	Selectors SelectorsConfig `mapstructure:"selectors" yaml:"selectors"`
	Extract   ExtractConfig   `mapstructure:"extract" yaml:"extract"`
	Operator  OperatorConfig  `mapstructure:"operator" yaml:"operator"`
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

// ColorConfig defines the color names used for each log level on the console.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig configures the Chrome instance driven over the DevTools protocol.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	UserDataDir       string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	// Stealth hides the automation flag so sign-in pages accept the browser.
	Stealth bool `mapstructure:"stealth" yaml:"stealth"`
	// AcceptLanguage also decides which locale the notebook UI renders in.
	AcceptLanguage string `mapstructure:"accept_language" yaml:"accept_language"`
	Debug          bool   `mapstructure:"debug" yaml:"debug"`
}

// TargetConfig points at the notebook workspace that receives the sources.
type TargetConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// WaitPolicy names every pause and bound the upload engine applies.
// Nothing in the engine sleeps for a duration that is not listed here.
type WaitPolicy struct {
	PreClick   time.Duration `mapstructure:"pre_click" yaml:"pre_click"`
	PostClick  time.Duration `mapstructure:"post_click" yaml:"post_click"`
	PostSubmit time.Duration `mapstructure:"post_submit" yaml:"post_submit"`
	// InterItem is a floor measured from the start of the completion poll.
	InterItem    time.Duration `mapstructure:"inter_item" yaml:"inter_item"`
	PollBudget   time.Duration `mapstructure:"poll_budget" yaml:"poll_budget"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`

	CacheAttempt   time.Duration `mapstructure:"cache_attempt" yaml:"cache_attempt"`
	Candidate      time.Duration `mapstructure:"candidate" yaml:"candidate"`
	InputCandidate time.Duration `mapstructure:"input_candidate" yaml:"input_candidate"`
	ChooserProbe   time.Duration `mapstructure:"chooser_probe" yaml:"chooser_probe"`
	ChooserWait    time.Duration `mapstructure:"chooser_wait" yaml:"chooser_wait"`

	Startup         time.Duration `mapstructure:"startup" yaml:"startup"`
	StartupFallback time.Duration `mapstructure:"startup_fallback" yaml:"startup_fallback"`
	StartupSettle   time.Duration `mapstructure:"startup_settle" yaml:"startup_settle"`
	StartupPoll     time.Duration `mapstructure:"startup_poll" yaml:"startup_poll"`
}

// BatchConfig selects which entries of the link file are submitted.
type BatchConfig struct {
	File  string `mapstructure:"file" yaml:"file"`
	Start int    `mapstructure:"start" yaml:"start"`
	// End and Max are disabled when zero.
	End int `mapstructure:"end" yaml:"end"`
	Max int `mapstructure:"max" yaml:"max"`
}

// SelectorsConfig replaces built-in selector lists. An empty list keeps the default.
type SelectorsConfig struct {
	OpenAddDialog       []string `mapstructure:"open_add_dialog" yaml:"open_add_dialog,omitempty"`
	SelectWebsiteOption []string `mapstructure:"select_website_option" yaml:"select_website_option,omitempty"`
	FillURLField        []string `mapstructure:"fill_url_field" yaml:"fill_url_field,omitempty"`
	ClickInsert         []string `mapstructure:"click_insert" yaml:"click_insert,omitempty"`
	Ready               []string `mapstructure:"ready" yaml:"ready,omitempty"`
	Chooser             []string `mapstructure:"chooser" yaml:"chooser,omitempty"`
	Evidence            []string `mapstructure:"evidence" yaml:"evidence,omitempty"`
	NextReady           []string `mapstructure:"next_ready" yaml:"next_ready,omitempty"`
	Section             []string `mapstructure:"section" yaml:"section,omitempty"`
}

// ExtractConfig configures the documentation link extractor.
type ExtractConfig struct {
	Container string        `mapstructure:"container" yaml:"container"`
	Output    string        `mapstructure:"output" yaml:"output"`
	Static    bool          `mapstructure:"static" yaml:"static"`
	Headless  bool          `mapstructure:"headless" yaml:"headless"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Concurrency and RateLimit apply to static fetches across several pages.
	Concurrency int     `mapstructure:"concurrency" yaml:"concurrency"`
	RateLimit   float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// OperatorConfig controls the manual confirmation gates.
type OperatorConfig struct {
	ConfirmExit       bool `mapstructure:"confirm_exit" yaml:"confirm_exit"`
	PauseAfterStartup bool `mapstructure:"pause_after_startup" yaml:"pause_after_startup"`
}

// NewDefaultConfig returns a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default value on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "linkfeed")
	v.SetDefault("logger.log_file", "linkfeed.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	// The operator logs in by hand, so the upload browser is visible.
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.post_load_wait", "2s")
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.accept_language", "")
	v.SetDefault("browser.debug", false)

	// -- Wait policy --
	v.SetDefault("wait.pre_click", "200ms")
	v.SetDefault("wait.post_click", "300ms")
	v.SetDefault("wait.post_submit", "300ms")
	v.SetDefault("wait.inter_item", "500ms")
	v.SetDefault("wait.poll_budget", "800ms")
	v.SetDefault("wait.poll_interval", "100ms")
	v.SetDefault("wait.cache_attempt", "1500ms")
	v.SetDefault("wait.candidate", "3s")
	v.SetDefault("wait.input_candidate", "8s")
	v.SetDefault("wait.chooser_probe", "2s")
	v.SetDefault("wait.chooser_wait", "5s")
	v.SetDefault("wait.startup", "120s")
	v.SetDefault("wait.startup_fallback", "30s")
	v.SetDefault("wait.startup_settle", "500ms")
	v.SetDefault("wait.startup_poll", "500ms")

	// -- Target --
	v.SetDefault("target.url", "")

	// -- Batch --
	v.SetDefault("batch.file", "aws_links.txt")
	v.SetDefault("batch.start", 1)
	v.SetDefault("batch.end", 0)
	v.SetDefault("batch.max", 0)

	// -- Extract --
	v.SetDefault("extract.container", `div[data-testid="doc-page-toc"]`)
	v.SetDefault("extract.output", "aws_links.txt")
	v.SetDefault("extract.static", false)
	v.SetDefault("extract.headless", true)
	v.SetDefault("extract.timeout", "60s")
	v.SetDefault("extract.concurrency", 4)
	v.SetDefault("extract.rate_limit", 2.0)

	// -- Operator --
	v.SetDefault("operator.confirm_exit", true)
	v.SetDefault("operator.pause_after_startup", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading "~" in every path-valued field.
func (c *Config) expandPaths() error {
	for key, p := range map[string]*string{
		"logger.log_file":       &c.Logger.LogFile,
		"browser.user_data_dir": &c.Browser.UserDataDir,
		"batch.file":            &c.Batch.File,
		"extract.output":        &c.Extract.Output,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("%s could not be expanded: %w", key, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.Wait.Validate(); err != nil {
		return fmt.Errorf("wait configuration invalid: %w", err)
	}
	if err := c.Batch.Validate(); err != nil {
		return fmt.Errorf("batch configuration invalid: %w", err)
	}
	if err := c.Extract.Validate(); err != nil {
		return fmt.Errorf("extract configuration invalid: %w", err)
	}
	return nil
}

func (b *BrowserConfig) Validate() error {
	if b.WindowWidth <= 0 || b.WindowHeight <= 0 {
		return fmt.Errorf("browser.window_width and browser.window_height must be positive")
	}
	if b.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be positive")
	}
	if b.PostLoadWait < 0 {
		return fmt.Errorf("browser.post_load_wait must not be negative")
	}
	return nil
}

// Validate rejects a policy that would make the engine spin or never wait.
func (w *WaitPolicy) Validate() error {
	if w.PollInterval <= 0 {
		return fmt.Errorf("wait.poll_interval must be positive")
	}
	if w.PollBudget < w.PollInterval {
		return fmt.Errorf("wait.poll_budget must be at least wait.poll_interval")
	}
	if w.Candidate <= 0 || w.InputCandidate <= 0 || w.CacheAttempt <= 0 {
		return fmt.Errorf("wait.cache_attempt, wait.candidate and wait.input_candidate must be positive")
	}
	if w.Startup <= 0 || w.StartupPoll <= 0 {
		return fmt.Errorf("wait.startup and wait.startup_poll must be positive")
	}
	for name, d := range map[string]time.Duration{
		"wait.pre_click":        w.PreClick,
		"wait.post_click":       w.PostClick,
		"wait.post_submit":      w.PostSubmit,
		"wait.inter_item":       w.InterItem,
		"wait.chooser_probe":    w.ChooserProbe,
		"wait.chooser_wait":     w.ChooserWait,
		"wait.startup_fallback": w.StartupFallback,
		"wait.startup_settle":   w.StartupSettle,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

func (b *BatchConfig) Validate() error {
	if b.Start < 1 {
		return fmt.Errorf("batch.start must be 1 or greater")
	}
	if b.End != 0 && b.End < b.Start {
		return fmt.Errorf("batch.end must not precede batch.start")
	}
	if b.Max < 0 {
		return fmt.Errorf("batch.max must not be negative")
	}
	return nil
}

func (e *ExtractConfig) Validate() error {
	if e.Container == "" {
		return fmt.Errorf("extract.container must be set")
	}
	if e.Timeout <= 0 {
		return fmt.Errorf("extract.timeout must be positive")
	}
	if e.Concurrency < 1 {
		return fmt.Errorf("extract.concurrency must be 1 or greater")
	}
	if e.RateLimit < 0 {
		return fmt.Errorf("extract.rate_limit must not be negative")
	}
	return nil
}

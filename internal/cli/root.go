package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/deepcheck/internal/logger"
	"github.com/ppiankov/deepcheck/internal/model"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=..."
var version = "v0.1.0-dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "deepcheck",
	Short: "deepcheck - presents misinformation-analysis results and keeps their history",
	Long: `deepcheck turns the raw output of a content-analysis engine into a
readable verdict: a verified/suspicious classification, a scoring band,
a content category and a plain-language explanation of the scores.

Every completed analysis is recorded in a capped history log that other
processes can watch for changes.

deepcheck does not analyze content itself. Scores come from the engine.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "deepcheck %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.deepcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".deepcheck"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	configureViper(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configureViper registers defaults and environment bindings.
// DEEPCHECK_HISTORY_BACKEND overrides history.backend, and so on.
func configureViper(v *viper.Viper) {
	setDefaults(v, model.DefaultConfig())

	v.SetEnvPrefix("DEEPCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", "DEEPCHECK_LLM_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("llm.base_url", "DEEPCHECK_LLM_BASE_URL", "OLLAMA_BASE_URL")
}

// setDefaults registers every key so environment overrides apply to keys
// missing from the config file
func setDefaults(v *viper.Viper, d *model.Config) {
	v.SetDefault("history.backend", d.History.Backend)
	v.SetDefault("history.path", d.History.Path)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)

	v.SetDefault("notify.brokers", d.Notify.Brokers)
	v.SetDefault("notify.topic", d.Notify.Topic)
	v.SetDefault("notify.group_id", d.Notify.GroupID)

	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("http.insecure_tls", d.HTTP.InsecureTLS)
	v.SetDefault("http.http_proxy", d.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", d.HTTP.HTTPSProxy)
	v.SetDefault("http.no_proxy", d.HTTP.NoProxy)

	v.SetDefault("preview.enabled", d.Preview.Enabled)
	v.SetDefault("preview.respect_robots", d.Preview.RespectRobots)
	v.SetDefault("preview.primary_domains", d.Preview.PrimaryDomains)
	v.SetDefault("preview.secondary_domains", d.Preview.SecondaryDomains)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.strict_evidence", d.LLM.StrictEvidence)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	v.SetDefault("concurrency.workers", d.Concurrency.Workers)
	v.SetDefault("rate_limiting.requests_per_second", d.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", d.RateLimiting.BurstSize)

	v.SetDefault("output.verbose", d.Output.Verbose)
	v.SetDefault("output.include_footer", d.Output.IncludeFooter)
	v.SetDefault("log.level", d.Log.Level)
}

// loadConfig resolves the effective configuration
func loadConfig() (*model.Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger for cfg. --verbose forces debug.
func newLogger(cfg *model.Config) *slog.Logger {
	level := cfg.Log.Level
	if verbose || cfg.Output.Verbose {
		level = "debug"
	}
	log := logger.New(os.Stderr, level)
	slog.SetDefault(log)
	return log
}

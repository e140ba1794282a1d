// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qaforge/sauceprobe/internal/browser/launch"
	"github.com/qaforge/sauceprobe/internal/config"
	"github.com/qaforge/sauceprobe/internal/llmclient"
	"github.com/qaforge/sauceprobe/internal/observability"
)

const envPrefix = "SAUCEPROBE"

// dependencies are the seams the commands reach the outside world through.
type dependencies struct {
	browserFactory func(cfg config.BrowserConfig, logger *zap.Logger) launch.Factory
	llmClient      func(ctx context.Context, cfg config.ReviewConfig, logger *zap.Logger) (llmclient.Client, error)
	// console receives the log output. Command results go to cmd.OutOrStdout.
	console zapcore.WriteSyncer
}

func defaultDependencies() dependencies {
	return dependencies{
		browserFactory: launch.NewFactory,
		llmClient:      llmclient.NewClient,
		console:        zapcore.Lock(os.Stderr),
	}
}

// app is the state shared by one invocation of the command tree.
type app struct {
	deps    dependencies
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// Execute runs the command tree with a signal-aware context.
func Execute(ctx context.Context) error {
	return newRootCmd(defaultDependencies()).ExecuteContext(ctx)
}

func newRootCmd(deps dependencies) *cobra.Command {
	a := &app{deps: deps, v: viper.New(), logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:           "sauceprobe",
		Short:         "Page-object smoke tests for the Sauce Labs demo store, plus AI code review.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync(a.logger)
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml or $HOME/.sauceprobe/config.yaml)")

	rootCmd.AddCommand(newSmokeCmd(a))
	rootCmd.AddCommand(newReviewCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// initialize loads .env, the config file, the environment and bound flags,
// then builds the logger.
func (a *app) initialize() error {
	if err := loadDotEnv(".env"); err != nil {
		return err
	}

	v := a.v
	config.SetDefaults(v)
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sauceprobe"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := observability.NewLogger(cfg.Logger, a.deps.console)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("Configuration loaded", zap.String("file", used))
	}
	return nil
}

// loadDotEnv exports the variables of path into the process environment.
// A missing file is fine; existing variables are never overwritten.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// bindFlag ties a command flag to a configuration key.
func (a *app) bindFlag(cmd *cobra.Command, key, flag string) {
	if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %q: %v", flag, err))
	}
}

func writeLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}

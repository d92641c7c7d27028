package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/malbeclabs/resolver-setup/config"
	"github.com/spf13/cobra"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

// BuildInfo is set by LDFLAGS in main.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func Run(info BuildInfo) ExitCode {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := NewRootCmd(info, os.Stdout)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return exitCodeError
	}

	return exitCodeSuccess
}

func NewRootCmd(info BuildInfo, out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "resolver-setup",
		Short:        "Provision a resolver on the staking, delegation and whitelist contracts.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := cmd.Help()
			if err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}
	rootCmd.SetOut(out)

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set debug logging level")

	var env string
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", config.EnvFork, "The network environment to use (fork, mainnet)")

	var rpcURL string
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc-url", "", "Override the RPC URL of the environment")

	var configPath string
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML file overriding the environment's RPC URL, chain id and contracts")

	rootCmd.AddCommand(
		NewRunCmd(info).Command(),
		NewStatusCmd().Command(),
		NewVersionCmd(info).Command(),
	)

	return rootCmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// networkConfig resolves the environment preset, then applies the config file and the
// --rpc-url flag in that order.
func networkConfig(cmd *cobra.Command) (*config.NetworkConfig, error) {
	flags := cmd.Root().PersistentFlags()
	env, err := flags.GetString("env")
	if err != nil {
		return nil, fmt.Errorf("failed to get env flag: %w", err)
	}
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	rpcURL, err := flags.GetString("rpc-url")
	if err != nil {
		return nil, fmt.Errorf("failed to get rpc-url flag: %w", err)
	}

	networkConfig, err := config.NetworkConfigForEnv(env)
	if err != nil {
		return nil, fmt.Errorf("failed to get network config: %w", err)
	}
	if configPath != "" {
		file, err := config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := file.Apply(networkConfig); err != nil {
			return nil, fmt.Errorf("failed to apply config file: %w", err)
		}
	}
	if rpcURL != "" {
		networkConfig.RPCURL = rpcURL
	}
	return networkConfig, nil
}

func verboseFlag(cmd *cobra.Command) (bool, error) {
	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return false, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	return verbose, nil
}

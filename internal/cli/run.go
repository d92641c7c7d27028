package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/malbeclabs/resolver-setup/config"
	"github.com/malbeclabs/resolver-setup/internal/metrics"
	"github.com/malbeclabs/resolver-setup/internal/setup"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
	"github.com/malbeclabs/resolver-setup/sdk/staking"
	"github.com/spf13/cobra"
)

const (
	// EnvVarPrivateKey is read when --private-key is not given. A .env file in the working
	// directory is loaded first.
	EnvVarPrivateKey = "RESOLVER_PRIVATE_KEY"

	defaultConfirmations = 1
	defaultPollInterval  = 1 * time.Second
	pushTimeout          = 10 * time.Second
)

// runOptions are the resolved inputs of the run command.
type runOptions struct {
	Network       *config.NetworkConfig
	Verbose       bool
	PrivateKey    string
	Impersonate   common.Address
	Worker        common.Address
	Stake         setup.StakeRequest
	ShareToken    setup.ShareTokenSpec
	FarmArtifact  string
	Confirmations uint64
	PollInterval  time.Duration
	AwaitApproval bool
	SkipCompleted bool
	ReportPath    string
	Pushgateway   string
	Timeout       time.Duration
}

type RunCmd struct {
	info BuildInfo
	// exec runs the pipeline; replaced in tests.
	exec func(ctx context.Context, log *slog.Logger, out io.Writer, info BuildInfo, opts runOptions) error
}

func NewRunCmd(info BuildInfo) *RunCmd {
	return &RunCmd{info: info, exec: executeRun}
}

func (c *RunCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the resolver setup pipeline once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseRunOptions(cmd)
			if err != nil {
				return err
			}
			log := newLogger(opts.Verbose)
			return c.exec(cmd.Context(), log, cmd.OutOrStdout(), c.info, *opts)
		},
	}

	cmd.Flags().String("private-key", "", "Hex private key of the resolver (default $"+EnvVarPrivateKey+")")
	addressFlag(cmd.Flags(), "impersonate", "Account to impersonate on a development node (default: the environment's funded account when no key is given)")
	addressFlag(cmd.Flags(), "worker", "Worker account to promote (default: the resolver)")
	cmd.Flags().String("stake-amount", "10000", "Amount of stake token to lock, in whole tokens")
	cmd.Flags().Duration("lock-duration", setup.DefaultLockDuration, "How long the stake is locked")
	cmd.Flags().String("share-token-name", setup.DefaultShareTokenName, "Name of the share token created on registration")
	cmd.Flags().String("share-token-symbol", setup.DefaultShareTokenSymbol, "Symbol of the share token created on registration")
	cmd.Flags().String("farm-artifact", "", "Path to the compiled farming pod artifact (Hardhat or Foundry JSON)")
	cmd.Flags().Uint64("confirmations", defaultConfirmations, "Blocks required on top of the inclusion block before a step is final")
	cmd.Flags().Duration("poll-interval", defaultPollInterval, "Interval between receipt polls")
	cmd.Flags().Bool("await-approval", true, "Wait for the approval receipt before depositing")
	cmd.Flags().Bool("skip-completed", false, "Check on-chain state before each step and skip steps already applied")
	cmd.Flags().String("report", "", "Write the run report as JSON to this path")
	cmd.Flags().String("pushgateway-url", "", "Push run metrics to this Prometheus Pushgateway")
	cmd.Flags().Duration("timeout", 0, "Abort the run after this long (0 waits indefinitely)")
	_ = cmd.MarkFlagRequired("farm-artifact")
	cmd.MarkFlagsMutuallyExclusive("private-key", "impersonate")

	return cmd
}

func parseRunOptions(cmd *cobra.Command) (*runOptions, error) {
	verbose, err := verboseFlag(cmd)
	if err != nil {
		return nil, err
	}
	network, err := networkConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	opts := &runOptions{Network: network, Verbose: verbose}

	if opts.PrivateKey, err = flags.GetString("private-key"); err != nil {
		return nil, fmt.Errorf("failed to get private-key flag: %w", err)
	}
	if opts.Impersonate, err = getAddress(flags, "impersonate"); err != nil {
		return nil, err
	}
	impersonating := opts.Impersonate != (common.Address{})
	if opts.PrivateKey == "" && !impersonating {
		opts.PrivateKey = os.Getenv(EnvVarPrivateKey)
	}
	if opts.PrivateKey == "" && !impersonating {
		opts.Impersonate = network.ImpersonatedAccount
	}
	if opts.Worker, err = getAddress(flags, "worker"); err != nil {
		return nil, err
	}

	stakeAmount, err := flags.GetString("stake-amount")
	if err != nil {
		return nil, fmt.Errorf("failed to get stake-amount flag: %w", err)
	}
	if opts.Stake.Amount, err = parseTokenAmount(stakeAmount, setup.StakeTokenDecimals); err != nil {
		return nil, err
	}
	if opts.Stake.LockDuration, err = flags.GetDuration("lock-duration"); err != nil {
		return nil, fmt.Errorf("failed to get lock-duration flag: %w", err)
	}
	if opts.ShareToken.Name, err = flags.GetString("share-token-name"); err != nil {
		return nil, fmt.Errorf("failed to get share-token-name flag: %w", err)
	}
	if opts.ShareToken.Symbol, err = flags.GetString("share-token-symbol"); err != nil {
		return nil, fmt.Errorf("failed to get share-token-symbol flag: %w", err)
	}
	if opts.FarmArtifact, err = flags.GetString("farm-artifact"); err != nil {
		return nil, fmt.Errorf("failed to get farm-artifact flag: %w", err)
	}
	if opts.Confirmations, err = flags.GetUint64("confirmations"); err != nil {
		return nil, fmt.Errorf("failed to get confirmations flag: %w", err)
	}
	if opts.PollInterval, err = flags.GetDuration("poll-interval"); err != nil {
		return nil, fmt.Errorf("failed to get poll-interval flag: %w", err)
	}
	if opts.AwaitApproval, err = flags.GetBool("await-approval"); err != nil {
		return nil, fmt.Errorf("failed to get await-approval flag: %w", err)
	}
	if opts.SkipCompleted, err = flags.GetBool("skip-completed"); err != nil {
		return nil, fmt.Errorf("failed to get skip-completed flag: %w", err)
	}
	if opts.ReportPath, err = flags.GetString("report"); err != nil {
		return nil, fmt.Errorf("failed to get report flag: %w", err)
	}
	if opts.Pushgateway, err = flags.GetString("pushgateway-url"); err != nil {
		return nil, fmt.Errorf("failed to get pushgateway-url flag: %w", err)
	}
	if opts.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, fmt.Errorf("failed to get timeout flag: %w", err)
	}
	if opts.Confirmations == 0 {
		return nil, errors.New("confirmations must be at least 1")
	}
	if opts.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}
	return opts, nil
}

func executeRun(ctx context.Context, log *slog.Logger, out io.Writer, info BuildInfo, opts runOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	artifact, err := staking.LoadArtifact(opts.FarmArtifact)
	if err != nil {
		return err
	}

	client, err := rpc.DialContext(ctx, opts.Network.RPCURL)
	if err != nil {
		return fmt.Errorf("%w: failed to dial %s: %w", setup.ErrResolution, opts.Network.RPCURL, err)
	}
	defer client.Close()
	eth := ethclient.NewClient(client)

	actors, err := setup.ResolveActors(ctx, log, eth, client, setup.ActorConfig{
		PrivateKey:      opts.PrivateKey,
		Impersonate:     opts.Impersonate,
		Worker:          opts.Worker,
		ExpectedChainID: opts.Network.ChainID,
	})
	if err != nil {
		return err
	}

	exec := evm.NewExecutor(log, eth, actors.Signer,
		evm.WithConfirmations(opts.Confirmations),
		evm.WithPollInterval(opts.PollInterval),
	)
	orchestrator, err := setup.New(setup.Config{
		Logger:           log,
		StakeToken:       staking.NewToken(exec, opts.Network.StakeToken),
		Staking:          staking.NewStaking(exec, opts.Network.StakingContract),
		PowerPod:         staking.NewPowerPod(exec, opts.Network.PowerPod),
		Whitelist:        staking.NewWhitelist(exec, opts.Network.WhitelistRegistry),
		FarmDeployer:     staking.NewFarmFactory(exec, artifact),
		Network:          opts.Network.Moniker,
		ChainID:          actors.ChainID,
		Resolver:         actors.Resolver,
		Worker:           actors.Worker,
		GiftToken:        opts.Network.GiftToken,
		Stake:            opts.Stake,
		ShareToken:       opts.ShareToken,
		SkipApprovalWait: !opts.AwaitApproval,
		SkipCompleted:    opts.SkipCompleted,
	})
	if err != nil {
		return err
	}

	report, runErr := orchestrator.Run(ctx)
	if runErr != nil {
		var stepErr *setup.StepError
		if errors.As(runErr, &stepErr) {
			log.Error("Setup failed", "index", stepErr.Index, "step", stepErr.Name, "error", stepErr.Err)
		}
	}
	report.Render(out)

	if opts.ReportPath != "" {
		if err := report.WriteJSON(opts.ReportPath); err != nil {
			log.Error("Failed to write report", "path", opts.ReportPath, "error", err)
		} else {
			log.Info("Wrote report", "path", opts.ReportPath)
		}
	}

	if opts.Pushgateway != "" {
		metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, info.Date).Set(1)
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if err := metrics.Push(pushCtx, opts.Pushgateway, opts.Network.Moniker, nil); err != nil {
			log.Error("Failed to push metrics", "error", err)
		}
	}

	return runErr
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/malbeclabs/resolver-setup/config"
	"github.com/malbeclabs/resolver-setup/internal/setup"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
	"github.com/malbeclabs/resolver-setup/sdk/staking"
	"github.com/spf13/cobra"
)

var ErrIncomplete = errors.New("resolver setup is incomplete")

type statusOptions struct {
	Network  *config.NetworkConfig
	Verbose  bool
	Resolver common.Address
	Worker   common.Address
}

type StatusCmd struct {
	exec func(ctx context.Context, log *slog.Logger, out io.Writer, opts statusOptions) error
}

func NewStatusCmd() *StatusCmd {
	return &StatusCmd{exec: executeStatus}
}

func (c *StatusCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the on-chain state created by a setup run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseStatusOptions(cmd)
			if err != nil {
				return err
			}
			return c.exec(cmd.Context(), newLogger(opts.Verbose), cmd.OutOrStdout(), *opts)
		},
	}

	addressFlag(cmd.Flags(), "resolver", "Resolver account to inspect (default: the environment's funded account)")
	addressFlag(cmd.Flags(), "worker", "Expected promoted worker (default: the resolver)")

	return cmd
}

func parseStatusOptions(cmd *cobra.Command) (*statusOptions, error) {
	verbose, err := verboseFlag(cmd)
	if err != nil {
		return nil, err
	}
	network, err := networkConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := &statusOptions{Network: network, Verbose: verbose, Resolver: network.ImpersonatedAccount}

	resolver, err := getAddress(cmd.Flags(), "resolver")
	if err != nil {
		return nil, err
	}
	if resolver != (common.Address{}) {
		opts.Resolver = resolver
	}
	if opts.Resolver == (common.Address{}) {
		return nil, errors.New("--resolver is required on this environment")
	}
	if opts.Worker, err = getAddress(cmd.Flags(), "worker"); err != nil {
		return nil, err
	}
	return opts, nil
}

func executeStatus(ctx context.Context, log *slog.Logger, out io.Writer, opts statusOptions) error {
	client, err := ethclient.DialContext(ctx, opts.Network.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", opts.Network.RPCURL, err)
	}
	defer client.Close()

	exec := evm.NewExecutor(log, client, nil)
	status, err := setup.QueryStatus(ctx, setup.StatusConfig{
		Logger:     log,
		StakeToken: staking.NewToken(exec, opts.Network.StakeToken),
		Staking:    staking.NewStaking(exec, opts.Network.StakingContract),
		PowerPod:   staking.NewPowerPod(exec, opts.Network.PowerPod),
		Whitelist:  staking.NewWhitelist(exec, opts.Network.WhitelistRegistry),
		Resolver:   opts.Resolver,
		Worker:     opts.Worker,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Environment:", opts.Network.Moniker)
	status.Render(out)
	if !status.Complete() {
		return ErrIncomplete
	}
	return nil
}

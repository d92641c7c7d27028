package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/malbeclabs/resolver-setup/sdk/staking"
	"github.com/olekukonko/tablewriter"
)

type StatusConfig struct {
	Logger     *slog.Logger
	StakeToken StakeTokenClient
	Staking    StakingClient
	PowerPod   PowerPodClient
	Whitelist  WhitelistClient

	Resolver    common.Address
	Worker      common.Address
	PromoteSlot uint64

	ReadMaxTries    uint
	ReadRetryPeriod time.Duration

	// Concurrency bounds the number of reads in flight.
	Concurrency int
}

func (c *StatusConfig) Validate() error {
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	if c.StakeToken == nil {
		return ErrStakeTokenRequired
	}
	if c.Staking == nil {
		return ErrStakingRequired
	}
	if c.PowerPod == nil {
		return ErrPowerPodRequired
	}
	if c.Whitelist == nil {
		return ErrWhitelistRequired
	}
	if c.Resolver == (common.Address{}) {
		return ErrResolverRequired
	}
	if c.Worker == (common.Address{}) {
		c.Worker = c.Resolver
	}
	if c.PromoteSlot == 0 {
		c.PromoteSlot = DefaultPromoteSlot
	}
	if c.ReadMaxTries == 0 {
		c.ReadMaxTries = defaultReadMaxTries
	}
	if c.ReadRetryPeriod <= 0 {
		c.ReadRetryPeriod = defaultReadRetryPeriod
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultStatusConcurrency
	}
	return nil
}

// Status is the on-chain state of a resolver's setup.
type Status struct {
	Resolver    common.Address
	Worker      common.Address
	Allowance   *big.Int
	Stake       *staking.Depositor
	PodAttached bool
	ShareToken  common.Address
	DefaultFarm common.Address
	Delegatee   common.Address
	Whitelisted bool
	Promotee    common.Address
}

// Complete reports whether every effect of a setup run is present.
func (s *Status) Complete() bool {
	return s.Stake != nil && s.Stake.Amount != nil && s.Stake.Amount.Sign() > 0 &&
		s.PodAttached &&
		s.ShareToken != (common.Address{}) &&
		s.DefaultFarm != (common.Address{}) &&
		s.Delegatee == s.Resolver &&
		s.Whitelisted &&
		s.Promotee == s.Worker
}

// QueryStatus reads back the state created by a setup run without sending anything.
func QueryStatus(ctx context.Context, cfg StatusConfig) (*Status, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Status{Resolver: cfg.Resolver, Worker: cfg.Worker}

	pool := pond.NewPool(cfg.Concurrency)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)

	group.SubmitErr(func() (err error) {
		s.Allowance, err = readStatus(ctx, &cfg, "allowance", func(ctx context.Context) (*big.Int, error) {
			return cfg.StakeToken.Allowance(ctx, cfg.Resolver, cfg.Staking.Address())
		})
		return err
	})
	group.SubmitErr(func() (err error) {
		s.Stake, err = readStatus(ctx, &cfg, "stake", func(ctx context.Context) (*staking.Depositor, error) {
			return cfg.Staking.Depositor(ctx, cfg.Resolver)
		})
		return err
	})
	group.SubmitErr(func() (err error) {
		s.PodAttached, err = readStatus(ctx, &cfg, "pod membership", func(ctx context.Context) (bool, error) {
			return cfg.Staking.HasPod(ctx, cfg.Resolver, cfg.PowerPod.Address())
		})
		return err
	})
	group.SubmitErr(func() (err error) {
		s.ShareToken, err = readStatus(ctx, &cfg, "share token registration", func(ctx context.Context) (common.Address, error) {
			return cfg.PowerPod.Registration(ctx, cfg.Resolver)
		})
		return err
	})
	group.SubmitErr(func() (err error) {
		s.DefaultFarm, err = readStatus(ctx, &cfg, "default farm", func(ctx context.Context) (common.Address, error) {
			return cfg.PowerPod.DefaultFarm(ctx, cfg.Resolver)
		})
		return err
	})
	group.SubmitErr(func() (err error) {
		s.Delegatee, err = readStatus(ctx, &cfg, "delegatee", func(ctx context.Context) (common.Address, error) {
			return cfg.PowerPod.Delegated(ctx, cfg.Resolver)
		})
		return err
	})
	group.SubmitErr(func() (err error) {
		s.Whitelisted, err = readStatus(ctx, &cfg, "whitelist", func(ctx context.Context) (bool, error) {
			return cfg.Whitelist.IsWhitelisted(ctx, cfg.Resolver)
		})
		return err
	})
	group.SubmitErr(func() error {
		promotion, err := readStatus(ctx, &cfg, "promotion", func(ctx context.Context) (*staking.Promotion, error) {
			return cfg.Whitelist.Promotion(ctx, cfg.Resolver, cfg.PromoteSlot)
		})
		if err != nil {
			return err
		}
		s.Promotee = promotion.Promotee
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("failed to query status: %w", err)
	}
	return s, nil
}

func readStatus[T any](ctx context.Context, cfg *StatusConfig, what string, fn func(context.Context) (T, error)) (T, error) {
	return readWithRetry(ctx, cfg.Logger, what, cfg.ReadMaxTries, cfg.ReadRetryPeriod, fn)
}

func (s *Status) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetRowLine(true)
	table.SetHeader([]string{"Check", "Value", "OK"})

	stakeAmount, unlock := "0", "-"
	if s.Stake != nil && s.Stake.Amount != nil {
		stakeAmount = s.Stake.Amount.String()
		if !s.Stake.UnlockTime.IsZero() {
			unlock = s.Stake.UnlockTime.Format(time.RFC3339)
		}
	}
	allowance := "0"
	if s.Allowance != nil {
		allowance = s.Allowance.String()
	}
	hasStake := s.Stake != nil && s.Stake.Amount != nil && s.Stake.Amount.Sign() > 0

	rows := [][]string{
		{"Resolver", s.Resolver.Hex(), ""},
		{"Worker", s.Worker.Hex(), ""},
		{"Allowance", allowance, ""},
		{"Stake", stakeAmount, check(hasStake)},
		{"Unlock time", unlock, ""},
		{"Pod attached", strconv.FormatBool(s.PodAttached), check(s.PodAttached)},
		{"Share token", addressOrDash(s.ShareToken), check(s.ShareToken != (common.Address{}))},
		{"Default farm", addressOrDash(s.DefaultFarm), check(s.DefaultFarm != (common.Address{}))},
		{"Delegatee", addressOrDash(s.Delegatee), check(s.Delegatee == s.Resolver)},
		{"Whitelisted", strconv.FormatBool(s.Whitelisted), check(s.Whitelisted)},
		{"Promoted worker", addressOrDash(s.Promotee), check(s.Promotee == s.Worker)},
	}
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

func check(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

package setup

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
	"github.com/malbeclabs/resolver-setup/sdk/staking"
)

var (
	ErrLoggerRequired       = errors.New("logger is required")
	ErrStakeTokenRequired   = errors.New("stake token is required")
	ErrStakingRequired      = errors.New("staking is required")
	ErrPowerPodRequired     = errors.New("power pod is required")
	ErrWhitelistRequired    = errors.New("whitelist is required")
	ErrFarmDeployerRequired = errors.New("farm deployer is required")
	ErrResolverRequired     = errors.New("resolver is required")
	ErrGiftTokenRequired    = errors.New("gift token is required")
	ErrStakeAmountRequired  = errors.New("stake amount is required")
	ErrLockDurationRequired = errors.New("lock duration is required")
	ErrShareTokenRequired   = errors.New("share token name and symbol are required")
)

const (
	DefaultLockDuration     = 2 * 365 * 24 * time.Hour
	DefaultShareTokenName   = "MyShareTokenName"
	DefaultShareTokenSymbol = "MST"
	DefaultPromoteSlot      = 1
	DefaultStakeTokens      = 10000
	StakeTokenDecimals      = 18
	defaultReadMaxTries     = 5
	defaultReadRetryPeriod  = 500 * time.Millisecond
)

const defaultStatusConcurrency = 4

// StakeRequest is the amount of stake token, in base units, locked for LockDuration.
type StakeRequest struct {
	Amount       *big.Int
	LockDuration time.Duration
}

// ShareTokenSpec names the share token created by registering with the power pod.
type ShareTokenSpec struct {
	Name   string
	Symbol string
}

// DefaultStakeAmount is 10000 tokens at 18 decimals.
func DefaultStakeAmount() *big.Int {
	return TokensToBaseUnits(DefaultStakeTokens)
}

// TokensToBaseUnits scales a whole token count by the stake token decimals.
func TokensToBaseUnits(tokens uint64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(StakeTokenDecimals), nil)
	return new(big.Int).Mul(new(big.Int).SetUint64(tokens), scale)
}

type Config struct {
	Logger       *slog.Logger
	StakeToken   StakeTokenClient
	Staking      StakingClient
	PowerPod     PowerPodClient
	Whitelist    WhitelistClient
	FarmDeployer FarmDeployer

	Network     string
	ChainID     uint64
	Resolver    common.Address
	Worker      common.Address
	GiftToken   common.Address
	Stake       StakeRequest
	ShareToken  ShareTokenSpec
	PromoteSlot uint64

	// SkipApprovalWait sends the approval without waiting for its receipt, relying on nonce
	// ordering to land it before the deposit.
	SkipApprovalWait bool
	// SkipCompleted checks on-chain state before each step and skips steps already applied.
	SkipCompleted bool

	Clock           clockwork.Clock
	ReadMaxTries    uint
	ReadRetryPeriod time.Duration
}

func (c *Config) Validate() error {
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
	if c.FarmDeployer == nil {
		return ErrFarmDeployerRequired
	}
	if c.Resolver == (common.Address{}) {
		return ErrResolverRequired
	}
	if c.GiftToken == (common.Address{}) {
		return ErrGiftTokenRequired
	}
	if c.Stake.Amount == nil || c.Stake.Amount.Sign() <= 0 {
		return ErrStakeAmountRequired
	}
	if c.Stake.LockDuration < time.Second {
		return ErrLockDurationRequired
	}
	if c.ShareToken.Name == "" || c.ShareToken.Symbol == "" {
		return ErrShareTokenRequired
	}
	if c.Worker == (common.Address{}) {
		c.Worker = c.Resolver
	}
	if c.PromoteSlot == 0 {
		c.PromoteSlot = DefaultPromoteSlot
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.ReadMaxTries == 0 {
		c.ReadMaxTries = defaultReadMaxTries
	}
	if c.ReadRetryPeriod <= 0 {
		c.ReadRetryPeriod = defaultReadRetryPeriod
	}
	return nil
}

type StakeTokenClient interface {
	Address() common.Address
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (*evm.PendingTx, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
}

type StakingClient interface {
	Address() common.Address
	Deposit(ctx context.Context, amount *big.Int, duration time.Duration) (*evm.PendingTx, error)
	AddPod(ctx context.Context, pod common.Address) (*evm.PendingTx, error)
	HasPod(ctx context.Context, account, pod common.Address) (bool, error)
	Depositor(ctx context.Context, account common.Address) (*staking.Depositor, error)
}

type PowerPodClient interface {
	Address() common.Address
	Register(ctx context.Context, name, symbol string) (*evm.PendingTx, error)
	Registration(ctx context.Context, account common.Address) (common.Address, error)
	SetDefaultFarm(ctx context.Context, farm common.Address) (*evm.PendingTx, error)
	DefaultFarm(ctx context.Context, account common.Address) (common.Address, error)
	Delegate(ctx context.Context, delegatee common.Address) (*evm.PendingTx, error)
	Delegated(ctx context.Context, delegator common.Address) (common.Address, error)
}

type WhitelistClient interface {
	Register(ctx context.Context) (*evm.PendingTx, error)
	Promote(ctx context.Context, slot uint64, worker common.Address) (*evm.PendingTx, error)
	Promotion(ctx context.Context, account common.Address, slot uint64) (*staking.Promotion, error)
	IsWhitelisted(ctx context.Context, account common.Address) (bool, error)
}

type FarmDeployer interface {
	DeployFarm(ctx context.Context, shareToken, rewardToken common.Address) (*evm.PendingTx, error)
}

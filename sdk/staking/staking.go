package staking

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
)

// Depositor is the stake recorded for an account.
type Depositor struct {
	LockTime   time.Time
	UnlockTime time.Time
	Amount     *big.Int
}

// Staking is a client for the staking contract that locks the stake token for voting power.
type Staking struct {
	contract
}

func NewStaking(exec Executor, address common.Address) *Staking {
	return &Staking{contract{exec: exec, abi: StakingABI, address: address}}
}

// Deposit locks amount for duration, truncated to whole seconds.
func (s *Staking) Deposit(ctx context.Context, amount *big.Int, duration time.Duration) (*evm.PendingTx, error) {
	if duration < time.Second {
		return nil, fmt.Errorf("invalid lock duration: %s", duration)
	}
	seconds := big.NewInt(int64(duration / time.Second))
	return s.transact(ctx, "deposit(uint256,uint256)", amount, seconds)
}

func (s *Staking) AddPod(ctx context.Context, pod common.Address) (*evm.PendingTx, error) {
	return s.transact(ctx, "addPod(address)", pod)
}

func (s *Staking) HasPod(ctx context.Context, account, pod common.Address) (bool, error) {
	out, err := s.call(ctx, "hasPod(address,address)", account, pod)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (s *Staking) Depositor(ctx context.Context, account common.Address) (*Depositor, error) {
	out, err := s.call(ctx, "depositors(address)", account)
	if err != nil {
		return nil, err
	}
	return &Depositor{
		LockTime:   unixTime(out[0].(*big.Int)),
		UnlockTime: unixTime(out[1].(*big.Int)),
		Amount:     out[2].(*big.Int),
	}, nil
}

// Power returns the staking power of the account.
func (s *Staking) Power(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := s.call(ctx, "balanceOf(address)", account)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func unixTime(v *big.Int) time.Time {
	if v == nil || v.Sign() == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}

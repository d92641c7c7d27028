package staking

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
)

// PowerPod is a client for the delegation pod. Registering creates a share token bound to the
// caller.
type PowerPod struct {
	contract
}

func NewPowerPod(exec Executor, address common.Address) *PowerPod {
	return &PowerPod{contract{exec: exec, abi: PowerPodABI, address: address}}
}

func (p *PowerPod) Register(ctx context.Context, name, symbol string) (*evm.PendingTx, error) {
	return p.transact(ctx, "register(string,string)", name, symbol)
}

// Registration returns the share token bound to account, or the zero address.
func (p *PowerPod) Registration(ctx context.Context, account common.Address) (common.Address, error) {
	return p.readAddress(ctx, "registration(address)", account)
}

func (p *PowerPod) SetDefaultFarm(ctx context.Context, farm common.Address) (*evm.PendingTx, error) {
	return p.transact(ctx, "setDefaultFarm(address)", farm)
}

func (p *PowerPod) DefaultFarm(ctx context.Context, account common.Address) (common.Address, error) {
	return p.readAddress(ctx, "defaultFarms(address)", account)
}

func (p *PowerPod) Delegate(ctx context.Context, delegatee common.Address) (*evm.PendingTx, error) {
	return p.transact(ctx, "delegate(address)", delegatee)
}

func (p *PowerPod) Delegated(ctx context.Context, delegator common.Address) (common.Address, error) {
	return p.readAddress(ctx, "delegated(address)", delegator)
}

func (p *PowerPod) readAddress(ctx context.Context, sig string, account common.Address) (common.Address, error) {
	out, err := p.call(ctx, sig, account)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

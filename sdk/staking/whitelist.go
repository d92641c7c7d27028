package staking

import (
	"context"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
)

// Promotion is the worker promoted by an account for a chain id slot.
type Promotion struct {
	Timestamp *big.Int
	Promotee  common.Address
}

// Whitelist is a client for the resolver whitelist registry.
type Whitelist struct {
	contract
}

func NewWhitelist(exec Executor, address common.Address) *Whitelist {
	return &Whitelist{contract{exec: exec, abi: WhitelistABI, address: address}}
}

func (w *Whitelist) Register(ctx context.Context) (*evm.PendingTx, error) {
	return w.transact(ctx, "register()")
}

// Promote authorizes worker to act for the caller on the given chain id slot.
func (w *Whitelist) Promote(ctx context.Context, slot uint64, worker common.Address) (*evm.PendingTx, error) {
	return w.transact(ctx, "promote(uint256,address)", new(big.Int).SetUint64(slot), worker)
}

func (w *Whitelist) Promotion(ctx context.Context, account common.Address, slot uint64) (*Promotion, error) {
	out, err := w.call(ctx, "promotions(address,uint256)", account, new(big.Int).SetUint64(slot))
	if err != nil {
		return nil, err
	}
	return &Promotion{
		Timestamp: out[0].(*big.Int),
		Promotee:  out[1].(common.Address),
	}, nil
}

func (w *Whitelist) Members(ctx context.Context) ([]common.Address, error) {
	out, err := w.call(ctx, "getWhitelist()")
	if err != nil {
		return nil, err
	}
	return out[0].([]common.Address), nil
}

func (w *Whitelist) IsWhitelisted(ctx context.Context, account common.Address) (bool, error) {
	members, err := w.Members(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(members, account), nil
}

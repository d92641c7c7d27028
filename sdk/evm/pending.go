package evm

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var errNoWaiter = errors.New("pending transaction has no waiter")

// PendingTx is a submitted transaction. Dependent calls must not be issued before Wait returns.
type PendingTx struct {
	Hash common.Hash
	wait func(ctx context.Context) (*types.Receipt, error)
}

func NewPendingTx(hash common.Hash, wait func(ctx context.Context) (*types.Receipt, error)) *PendingTx {
	return &PendingTx{Hash: hash, wait: wait}
}

func (p *PendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	if p.wait == nil {
		return nil, errNoWaiter
	}
	return p.wait(ctx)
}

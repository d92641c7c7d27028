package staking

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
)

// Executor submits transactions and performs read-only calls. It is satisfied by *evm.Executor.
type Executor interface {
	Send(ctx context.Context, to common.Address, data []byte) (*evm.PendingTx, error)
	Deploy(ctx context.Context, code []byte) (*evm.PendingTx, error)
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

type contract struct {
	exec    Executor
	abi     abi.ABI
	address common.Address
}

func (c *contract) Address() common.Address {
	return c.address
}

func (c *contract) transact(ctx context.Context, sig string, args ...any) (*evm.PendingTx, error) {
	data, err := c.pack(sig, args...)
	if err != nil {
		return nil, err
	}
	tx, err := c.exec.Send(ctx, c.address, data)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", sig, explainRevert(c.abi, err))
	}
	return evm.NewPendingTx(tx.Hash, func(ctx context.Context) (*types.Receipt, error) {
		receipt, err := tx.Wait(ctx)
		if err != nil {
			return receipt, fmt.Errorf("%s: %w", sig, explainRevert(c.abi, err))
		}
		return receipt, nil
	}), nil
}

func (c *contract) call(ctx context.Context, sig string, args ...any) ([]any, error) {
	m, err := methodBySig(c.abi, sig)
	if err != nil {
		return nil, err
	}
	data, err := c.pack(sig, args...)
	if err != nil {
		return nil, err
	}
	out, err := c.exec.Call(ctx, c.address, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", sig, explainRevert(c.abi, err))
	}
	values, err := m.Outputs.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s output: %w", sig, err)
	}
	if len(values) != len(m.Outputs) {
		return nil, fmt.Errorf("unexpected %s output count: %d", sig, len(values))
	}
	return values, nil
}

func (c *contract) pack(sig string, args ...any) ([]byte, error) {
	m, err := methodBySig(c.abi, sig)
	if err != nil {
		return nil, err
	}
	packed, err := m.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", sig, err)
	}
	return append(append([]byte{}, m.ID...), packed...), nil
}

// explainRevert names a custom error from the contract ABI when the revert payload matches one.
func explainRevert(a abi.ABI, err error) error {
	var revertErr *evm.RevertError
	if !errors.As(err, &revertErr) || len(revertErr.Data) < 4 {
		return err
	}
	var id [4]byte
	copy(id[:], revertErr.Data[:4])
	abiErr, lookupErr := a.ErrorByID(id)
	if lookupErr != nil {
		return err
	}
	return &evm.RevertError{
		TxHash: revertErr.TxHash,
		Reason: abiErr.Sig,
		Data:   revertErr.Data,
	}
}

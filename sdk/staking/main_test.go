package staking_test

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
)

var (
	testAccount  = common.HexToAddress("0x720D8790666bd40B9CA289CBe73cb1334f0aE7e3")
	testContract = common.HexToAddress("0xdaf782667d98d5069ee7ba139932945c4d08fde9")
	testHash     = common.HexToHash("0x01")
)

type mockExecutor struct {
	SendFunc   func(ctx context.Context, to common.Address, data []byte) (*evm.PendingTx, error)
	DeployFunc func(ctx context.Context, code []byte) (*evm.PendingTx, error)
	CallFunc   func(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

func (m *mockExecutor) Send(ctx context.Context, to common.Address, data []byte) (*evm.PendingTx, error) {
	return m.SendFunc(ctx, to, data)
}

func (m *mockExecutor) Deploy(ctx context.Context, code []byte) (*evm.PendingTx, error) {
	return m.DeployFunc(ctx, code)
}

func (m *mockExecutor) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return m.CallFunc(ctx, to, data)
}

// recordingSend captures the calldata of a send and returns a transaction that is mined at once.
func recordingSend(gotTo *common.Address, gotData *[]byte) func(context.Context, common.Address, []byte) (*evm.PendingTx, error) {
	return func(_ context.Context, to common.Address, data []byte) (*evm.PendingTx, error) {
		*gotTo = to
		*gotData = data
		return minedTx(), nil
	}
}

func minedTx() *evm.PendingTx {
	return evm.NewPendingTx(testHash, func(context.Context) (*types.Receipt, error) {
		return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}, nil
	})
}

func selector(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

func mustPackOutputs(a abi.ABI, method string, values ...any) []byte {
	out, err := a.Methods[method].Outputs.Pack(values...)
	if err != nil {
		panic(err)
	}
	return out
}

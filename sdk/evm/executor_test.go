package evm_test

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
	"github.com/stretchr/testify/require"
)

var (
	testFrom = common.HexToAddress("0x720D8790666bd40B9CA289CBe73cb1334f0aE7e3")
	testTo   = common.HexToAddress("0x9a0c8ff858d273f57072d714bca7411d717501d7")
	testHash = common.HexToHash("0x5d1c6d1c7a3a0b1e57d2a4b7a0f4f0e1a9b1d0c2e3f4a5b6c7d8e9f0a1b2c3d4")
)

func fixedSigner(hash common.Hash, got *evm.TxRequest) *mockSigner {
	return &mockSigner{
		AddressFunc: func() common.Address { return testFrom },
		SendTransactionFunc: func(_ context.Context, req evm.TxRequest) (common.Hash, error) {
			if got != nil {
				*got = req
			}
			return hash, nil
		},
	}
}

func visible(_ context.Context, _ common.Hash) (*types.Transaction, bool, error) {
	return types.NewTx(&types.DynamicFeeTx{}), false, nil
}

func TestSDK_EVM_Executor_SendAndWait(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	mockRPC := &mockRPCClient{
		TransactionByHashFunc: visible,
		TransactionReceiptFunc: func(_ context.Context, hash common.Hash) (*types.Receipt, error) {
			require.Equal(t, testHash, hash)
			if calls.Add(1) < 3 {
				return nil, ethereum.NotFound
			}
			return &types.Receipt{
				Status:      types.ReceiptStatusSuccessful,
				TxHash:      hash,
				BlockNumber: big.NewInt(42),
				GasUsed:     21000,
			}, nil
		},
	}

	var req evm.TxRequest
	exec := evm.NewExecutor(log, mockRPC, fixedSigner(testHash, &req), evm.WithPollInterval(time.Millisecond))

	pending, err := exec.Send(t.Context(), testTo, []byte{0x01, 0x02})
	require.NoError(t, err)
	require.Equal(t, testHash, pending.Hash)
	require.NotNil(t, req.To)
	require.Equal(t, testTo, *req.To)
	require.Equal(t, []byte{0x01, 0x02}, req.Data)

	receipt, err := pending.Wait(t.Context())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(42), receipt.BlockNumber)
	require.Equal(t, int32(3), calls.Load())
}

func TestSDK_EVM_Executor_DeployHasNoRecipient(t *testing.T) {
	t.Parallel()

	mockRPC := &mockRPCClient{TransactionByHashFunc: visible}

	req := evm.TxRequest{To: &testTo}
	exec := evm.NewExecutor(log, mockRPC, fixedSigner(testHash, &req), evm.WithPollInterval(time.Millisecond))

	pending, err := exec.Deploy(t.Context(), []byte{0x60, 0x80})
	require.NoError(t, err)
	require.Equal(t, testHash, pending.Hash)
	require.Nil(t, req.To)
	require.Equal(t, []byte{0x60, 0x80}, req.Data)
}

func TestSDK_EVM_Executor_MissingSigner(t *testing.T) {
	t.Parallel()

	exec := evm.NewExecutor(log, &mockRPCClient{}, nil)

	pending, err := exec.Send(t.Context(), testTo, nil)
	require.ErrorIs(t, err, evm.ErrNoSigner)
	require.Nil(t, pending)
	require.Equal(t, common.Address{}, exec.From())
}

func TestSDK_EVM_Executor_SignerError(t *testing.T) {
	t.Parallel()

	signer := &mockSigner{
		AddressFunc: func() common.Address { return testFrom },
		SendTransactionFunc: func(context.Context, evm.TxRequest) (common.Hash, error) {
			return common.Hash{}, &evm.RevertError{Reason: "ERC20: transfer amount exceeds balance"}
		},
	}
	exec := evm.NewExecutor(log, &mockRPCClient{}, signer)

	_, err := exec.Send(t.Context(), testTo, nil)
	require.ErrorIs(t, err, evm.ErrTransactionReverted)
	require.Contains(t, err.Error(), "exceeds balance")
}

func TestSDK_EVM_Executor_TransactionNotVisible(t *testing.T) {
	t.Parallel()

	mockRPC := &mockRPCClient{
		TransactionByHashFunc: func(context.Context, common.Hash) (*types.Transaction, bool, error) {
			return nil, false, ethereum.NotFound
		},
	}
	exec := evm.NewExecutor(log, mockRPC, fixedSigner(testHash, nil),
		evm.WithPollInterval(time.Millisecond),
		evm.WithWaitForVisibleTimeout(20*time.Millisecond),
	)

	pending, err := exec.Send(t.Context(), testTo, nil)
	require.ErrorIs(t, err, evm.ErrTransactionNotVisible)
	require.Nil(t, pending)
}

func TestSDK_EVM_Executor_RevertedReceipt(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	chainID := big.NewInt(31337)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	tx, err := types.SignNewTx(key, types.LatestSignerForChainID(chainID), &types.DynamicFeeTx{
		ChainID: chainID,
		To:      &testTo,
		Gas:     100000,
		Data:    []byte{0xaa},
	})
	require.NoError(t, err)

	var replayBlock *big.Int
	var replayFrom common.Address
	mockRPC := &mockRPCClient{
		TransactionByHashFunc: func(context.Context, common.Hash) (*types.Transaction, bool, error) {
			return tx, false, nil
		},
		TransactionReceiptFunc: func(_ context.Context, hash common.Hash) (*types.Receipt, error) {
			return &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: hash, BlockNumber: big.NewInt(100)}, nil
		},
		CallContractFunc: func(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
			replayBlock = block
			replayFrom = msg.From
			return nil, &rpcDataError{msg: "execution reverted", data: hexutil.Encode(revertPayload("already registered"))}
		},
	}
	exec := evm.NewExecutor(log, mockRPC, fixedSigner(testHash, nil), evm.WithPollInterval(time.Millisecond))

	pending, err := exec.Send(t.Context(), testTo, []byte{0xaa})
	require.NoError(t, err)

	receipt, err := pending.Wait(t.Context())
	require.ErrorIs(t, err, evm.ErrTransactionReverted)
	require.NotNil(t, receipt)

	var revertErr *evm.RevertError
	require.True(t, errors.As(err, &revertErr))
	require.Equal(t, testHash, revertErr.TxHash)
	require.Equal(t, "already registered", revertErr.Reason)
	require.Equal(t, big.NewInt(99), replayBlock)
	require.Equal(t, sender, replayFrom)
}

func TestSDK_EVM_Executor_WaitsForConfirmations(t *testing.T) {
	t.Parallel()

	blockHash := common.HexToHash("0xb10c")
	var head atomic.Uint64
	head.Store(10)
	var headCalls atomic.Int32

	mockRPC := &mockRPCClient{
		TransactionByHashFunc: visible,
		TransactionReceiptFunc: func(_ context.Context, hash common.Hash) (*types.Receipt, error) {
			return &types.Receipt{
				Status:      types.ReceiptStatusSuccessful,
				TxHash:      hash,
				BlockHash:   blockHash,
				BlockNumber: big.NewInt(10),
			}, nil
		},
		BlockNumberFunc: func(context.Context) (uint64, error) {
			headCalls.Add(1)
			return head.Add(1) - 1, nil
		},
	}
	exec := evm.NewExecutor(log, mockRPC, fixedSigner(testHash, nil),
		evm.WithPollInterval(time.Millisecond),
		evm.WithConfirmations(3),
	)

	receipt, err := exec.WaitForReceipt(t.Context(), testHash)
	require.NoError(t, err)
	require.Equal(t, blockHash, receipt.BlockHash)
	require.Equal(t, int32(3), headCalls.Load())
}

func TestSDK_EVM_Executor_ReceiptError(t *testing.T) {
	t.Parallel()

	mockRPC := &mockRPCClient{
		TransactionReceiptFunc: func(context.Context, common.Hash) (*types.Receipt, error) {
			return nil, errors.New("connection refused")
		},
	}
	exec := evm.NewExecutor(log, mockRPC, nil)

	_, err := exec.WaitForReceipt(t.Context(), testHash)
	require.ErrorContains(t, err, "connection refused")
	require.NotErrorIs(t, err, evm.ErrTransactionReverted)
}

func TestSDK_EVM_Executor_WaitCancelled(t *testing.T) {
	t.Parallel()

	mockRPC := &mockRPCClient{
		TransactionReceiptFunc: func(context.Context, common.Hash) (*types.Receipt, error) {
			return nil, ethereum.NotFound
		},
	}
	exec := evm.NewExecutor(log, mockRPC, nil, evm.WithPollInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := exec.WaitForReceipt(ctx, testHash)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSDK_EVM_Executor_Call(t *testing.T) {
	t.Parallel()

	t.Run("returns output", func(t *testing.T) {
		t.Parallel()

		mockRPC := &mockRPCClient{
			CallContractFunc: func(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
				require.Nil(t, block)
				require.Equal(t, testTo, *msg.To)
				require.Equal(t, testFrom, msg.From)
				return []byte{0x01}, nil
			},
		}
		exec := evm.NewExecutor(log, mockRPC, fixedSigner(testHash, nil))

		out, err := exec.Call(t.Context(), testTo, []byte{0xde, 0xad})
		require.NoError(t, err)
		require.Equal(t, []byte{0x01}, out)
	})

	t.Run("revert", func(t *testing.T) {
		t.Parallel()

		mockRPC := &mockRPCClient{
			CallContractFunc: func(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
				return nil, errors.New("execution reverted")
			},
		}
		exec := evm.NewExecutor(log, mockRPC, nil)

		_, err := exec.Call(t.Context(), testTo, nil)
		require.ErrorIs(t, err, evm.ErrTransactionReverted)
	})
}

func TestSDK_EVM_PendingTx_NoWaiter(t *testing.T) {
	t.Parallel()

	_, err := (&evm.PendingTx{Hash: testHash}).Wait(t.Context())
	require.Error(t, err)
}

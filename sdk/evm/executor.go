package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jonboulle/clockwork"
)

const (
	defaultPollInterval          = 1 * time.Second
	defaultWaitForVisibleTimeout = 5 * time.Second
	defaultConfirmations         = 1
)

type Executor struct {
	log                   *slog.Logger
	rpc                   RPCClient
	signer                Signer
	clock                 clockwork.Clock
	pollInterval          time.Duration
	waitForVisibleTimeout time.Duration
	confirmations         uint64
}

type ExecutorOption func(*Executor)

func WithClock(clock clockwork.Clock) ExecutorOption {
	return func(e *Executor) {
		e.clock = clock
	}
}

func WithPollInterval(interval time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.pollInterval = interval
	}
}

func WithWaitForVisibleTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.waitForVisibleTimeout = timeout
	}
}

// WithConfirmations sets how many blocks, counting the inclusion block, must exist before a
// transaction is considered final.
func WithConfirmations(n uint64) ExecutorOption {
	return func(e *Executor) {
		e.confirmations = n
	}
}

func NewExecutor(log *slog.Logger, rpc RPCClient, signer Signer, opts ...ExecutorOption) *Executor {
	e := &Executor{
		log:                   log,
		rpc:                   rpc,
		signer:                signer,
		clock:                 clockwork.NewRealClock(),
		pollInterval:          defaultPollInterval,
		waitForVisibleTimeout: defaultWaitForVisibleTimeout,
		confirmations:         defaultConfirmations,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.confirmations == 0 {
		e.confirmations = defaultConfirmations
	}
	return e
}

// From returns the signing account, or the zero address for a read-only executor.
func (e *Executor) From() common.Address {
	if e.signer == nil {
		return common.Address{}
	}
	return e.signer.Address()
}

// Send submits a call to a contract. The returned transaction has been seen by the node but is
// not final until Wait returns.
func (e *Executor) Send(ctx context.Context, to common.Address, data []byte) (*PendingTx, error) {
	return e.send(ctx, TxRequest{To: &to, Data: data})
}

// Deploy submits a contract creation transaction. The created address is in the receipt
// returned by Wait.
func (e *Executor) Deploy(ctx context.Context, code []byte) (*PendingTx, error) {
	return e.send(ctx, TxRequest{Data: code})
}

func (e *Executor) send(ctx context.Context, req TxRequest) (*PendingTx, error) {
	if e.signer == nil {
		return nil, ErrNoSigner
	}

	hash, err := e.signer.SendTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	e.log.Debug("--> Transaction sent", "tx", hash, "from", e.signer.Address(), "to", req.To)

	if err := e.waitForTransactionVisible(ctx, hash); err != nil {
		return nil, fmt.Errorf("transaction dropped or rejected before node saw it: %w", err)
	}

	return NewPendingTx(hash, func(ctx context.Context) (*types.Receipt, error) {
		return e.WaitForReceipt(ctx, hash)
	}), nil
}

// Call performs a read-only call against the latest block.
func (e *Executor) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := e.rpc.CallContract(ctx, ethereum.CallMsg{
		From: e.From(),
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return nil, AsRevertError(err)
	}
	return out, nil
}

func (e *Executor) waitForTransactionVisible(ctx context.Context, hash common.Hash) error {
	deadline := e.clock.Now().Add(e.waitForVisibleTimeout)

	for e.clock.Now().Before(deadline) {
		_, _, err := e.rpc.TransactionByHash(ctx, hash)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.clock.After(e.pollInterval):
		}
	}
	return ErrTransactionNotVisible
}

// WaitForReceipt blocks until the transaction is included and the configured number of
// confirmations exist. A failed receipt is returned together with a RevertError.
func (e *Executor) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	e.log.Debug("--> Waiting for transaction to be final", "tx", hash, "confirmations", e.confirmations)
	start := e.clock.Now()

	for {
		receipt, err := e.pollReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			revertErr := e.replayRevert(ctx, hash, receipt)
			revertErr.TxHash = hash
			return receipt, revertErr
		}
		if e.confirmations <= 1 {
			e.log.Debug("--> Transaction final", "tx", hash, "block", receipt.BlockNumber, "duration", e.clock.Since(start))
			return receipt, nil
		}

		target := receipt.BlockNumber.Uint64() + e.confirmations - 1
		if err := e.waitForBlock(ctx, target); err != nil {
			return nil, err
		}

		// The inclusion block may have been reorged out while waiting.
		current, err := e.rpc.TransactionReceipt(ctx, hash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}
		if current != nil && current.BlockHash == receipt.BlockHash {
			e.log.Debug("--> Transaction final", "tx", hash, "block", receipt.BlockNumber, "duration", e.clock.Since(start))
			return current, nil
		}
		e.log.Warn("Transaction moved after inclusion, waiting again", "tx", hash, "block", receipt.BlockNumber)
	}
}

func (e *Executor) pollReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	start := e.clock.Now()
	for {
		receipt, err := e.rpc.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-e.clock.After(e.pollInterval):
			if e.clock.Since(start)/time.Second%10 == 0 {
				e.log.Debug("--> Still waiting for transaction receipt", "tx", hash, "elapsed", e.clock.Since(start))
			}
		}
	}
}

func (e *Executor) waitForBlock(ctx context.Context, target uint64) error {
	for {
		head, err := e.rpc.BlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("failed to get block number: %w", err)
		}
		if head >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.clock.After(e.pollInterval):
		}
	}
}

// replayRevert re-executes a failed transaction against the parent block to recover the revert
// reason. Best effort: the reason stays empty when the replay is not possible.
func (e *Executor) replayRevert(ctx context.Context, hash common.Hash, receipt *types.Receipt) *RevertError {
	tx, _, err := e.rpc.TransactionByHash(ctx, hash)
	if err != nil || tx == nil || receipt.BlockNumber == nil || receipt.BlockNumber.Sign() == 0 {
		return &RevertError{}
	}
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		from = e.From()
	}
	parent := new(big.Int).Sub(receipt.BlockNumber, big.NewInt(1))
	_, err = e.rpc.CallContract(ctx, ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}, parent)
	if err == nil {
		return &RevertError{}
	}
	var revertErr *RevertError
	if errors.As(AsRevertError(err), &revertErr) {
		return &RevertError{Reason: revertErr.Reason, Data: revertErr.Data}
	}
	return &RevertError{}
}

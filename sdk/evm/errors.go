package evm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrNoSigner is returned when a state-changing call is attempted without a configured signer.
	ErrNoSigner = errors.New("no signer configured")

	// ErrTransactionReverted is matched by every RevertError.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrTransactionNotVisible is returned when the node does not report a submitted transaction
	// within the visibility timeout.
	ErrTransactionNotVisible = errors.New("transaction not visible after wait")
)

// RevertError is a remote rejection, either at gas estimation time (TxHash is zero) or as a
// mined receipt with a failed status.
type RevertError struct {
	TxHash common.Hash
	Reason string
	// Data is the raw revert payload when the node returned one.
	Data []byte
}

func (e *RevertError) Error() string {
	var b strings.Builder
	b.WriteString(ErrTransactionReverted.Error())
	if e.TxHash != (common.Hash{}) {
		fmt.Fprintf(&b, " (tx %s)", e.TxHash.Hex())
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

func (e *RevertError) Unwrap() error {
	return ErrTransactionReverted
}

// AsRevertError converts an RPC error into a RevertError when the node reports an execution
// revert. Any other error is returned unchanged.
func AsRevertError(err error) error {
	if err == nil {
		return nil
	}
	var revertErr *RevertError
	if errors.As(err, &revertErr) {
		return err
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := revertData(dataErr.ErrorData()); ok {
			return &RevertError{Reason: revertReason(data, err.Error()), Data: data}
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "revert") {
		return &RevertError{Reason: err.Error()}
	}
	return err
}

func revertData(v any) ([]byte, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	data, err := hexutil.Decode(s)
	if err != nil {
		return nil, false
	}
	return data, true
}

func revertReason(data []byte, fallback string) string {
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason
	}
	if len(data) >= 4 {
		return fmt.Sprintf("custom error %s", hexutil.Encode(data[:4]))
	}
	return fallback
}

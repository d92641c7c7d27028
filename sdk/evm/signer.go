package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidPrivateKey = errors.New("invalid private key")

// TxRequest describes a transaction before the signer fills in nonce, gas and fees. A nil To
// creates a contract.
type TxRequest struct {
	To    *common.Address
	Data  []byte
	Value *big.Int
}

// Signer submits transactions on behalf of one account.
type Signer interface {
	Address() common.Address
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
}

// KeySigner signs EIP-1559 transactions locally with a private key.
type KeySigner struct {
	rpc     RPCClient
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

func NewKeySigner(rpc RPCClient, key *ecdsa.PrivateKey, chainID *big.Int) *KeySigner {
	return &KeySigner{
		rpc:     rpc,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}
}

// ParsePrivateKey parses a hex encoded secp256k1 key, with or without 0x prefix.
func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return key, nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := s.rpc.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gas, err := s.rpc.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.address,
		To:    req.To,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", AsRevertError(err))
	}

	tip, err := s.rpc.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	head, err := s.rpc.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		// Estimates drift between estimation and inclusion.
		Gas:   gas + gas/5,
		To:    req.To,
		Value: value,
		Data:  req.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.rpc.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", AsRevertError(err))
	}
	return signed.Hash(), nil
}

// ImpersonatedSigner submits unsigned transactions through eth_sendTransaction on a development
// node (hardhat, anvil) that has been told to impersonate the account.
type ImpersonatedSigner struct {
	raw     RawRPCClient
	address common.Address
}

func NewImpersonatedSigner(raw RawRPCClient, address common.Address) *ImpersonatedSigner {
	return &ImpersonatedSigner{raw: raw, address: address}
}

type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data"`
}

func (s *ImpersonatedSigner) Address() common.Address {
	return s.address
}

func (s *ImpersonatedSigner) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	args := sendTxArgs{
		From:  s.address,
		To:    req.To,
		Value: (*hexutil.Big)(req.Value),
		Data:  req.Data,
	}
	var hash common.Hash
	if err := s.raw.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", AsRevertError(err))
	}
	return hash, nil
}

// Impersonate asks a development node to accept unsigned transactions from the account.
func Impersonate(ctx context.Context, raw RawRPCClient, account common.Address) error {
	var ignored any
	hardhatErr := raw.CallContext(ctx, &ignored, "hardhat_impersonateAccount", account)
	if hardhatErr == nil {
		return nil
	}
	anvilErr := raw.CallContext(ctx, &ignored, "anvil_impersonateAccount", account)
	if anvilErr == nil {
		return nil
	}
	return fmt.Errorf("failed to impersonate account %s: %w", account, errors.Join(hardhatErr, anvilErr))
}

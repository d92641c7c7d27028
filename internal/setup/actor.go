package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
)

var (
	// ErrResolution wraps every failure to establish the acting identities.
	ErrResolution = errors.New("failed to resolve actors")

	ErrNoIdentity        = errors.New("a private key or an account to impersonate is required")
	ErrAmbiguousIdentity = errors.New("a private key and an impersonated account are mutually exclusive")
	ErrChainIDMismatch   = errors.New("chain id mismatch")
)

type ActorConfig struct {
	PrivateKey  string
	Impersonate common.Address
	Worker      common.Address
	// ExpectedChainID is checked against the node when non-zero.
	ExpectedChainID uint64
}

// Actors are the identities used by the run. Resolver signs every transaction.
type Actors struct {
	Resolver common.Address
	Worker   common.Address
	ChainID  uint64
	Signer   evm.Signer
}

// ResolveActors establishes the signer for the run. Nothing is sent to the chain except the
// impersonation request in impersonation mode.
func ResolveActors(ctx context.Context, log *slog.Logger, rpc evm.RPCClient, raw evm.RawRPCClient, cfg ActorConfig) (*Actors, error) {
	actors, err := resolveActors(ctx, log, rpc, raw, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolution, err)
	}
	return actors, nil
}

func resolveActors(ctx context.Context, log *slog.Logger, rpc evm.RPCClient, raw evm.RawRPCClient, cfg ActorConfig) (*Actors, error) {
	impersonate := cfg.Impersonate != (common.Address{})
	if cfg.PrivateKey == "" && !impersonate {
		return nil, ErrNoIdentity
	}
	if cfg.PrivateKey != "" && impersonate {
		return nil, ErrAmbiguousIdentity
	}

	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	if cfg.ExpectedChainID != 0 && (!chainID.IsUint64() || chainID.Uint64() != cfg.ExpectedChainID) {
		return nil, fmt.Errorf("%w: node reports %s, expected %d", ErrChainIDMismatch, chainID, cfg.ExpectedChainID)
	}

	var signer evm.Signer
	if impersonate {
		if raw == nil {
			return nil, errors.New("impersonation requires a raw rpc client")
		}
		if err := evm.Impersonate(ctx, raw, cfg.Impersonate); err != nil {
			return nil, err
		}
		signer = evm.NewImpersonatedSigner(raw, cfg.Impersonate)
		log.Debug("--> impersonating account", "account", cfg.Impersonate)
	} else {
		key, err := evm.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		signer = evm.NewKeySigner(rpc, key, chainID)
	}

	worker := cfg.Worker
	if worker == (common.Address{}) {
		worker = signer.Address()
	}
	return &Actors{
		Resolver: signer.Address(),
		Worker:   worker,
		ChainID:  chainID.Uint64(),
		Signer:   signer,
	}, nil
}

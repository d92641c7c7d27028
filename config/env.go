package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

const (
	EnvMainnet = "mainnet"
	EnvFork    = "fork"
)

var (
	ErrInvalidEnvironment = errors.New("invalid environment")
	ErrInvalidAddress     = errors.New("invalid address")
)

type NetworkConfig struct {
	Moniker           string
	RPCURL            string
	ChainID           uint64
	StakeToken        common.Address
	StakingContract   common.Address
	PowerPod          common.Address
	WhitelistRegistry common.Address
	GiftToken         common.Address

	// ImpersonatedAccount is the account used when no private key is given. Zero on
	// networks where impersonation is not available.
	ImpersonatedAccount common.Address
}

func NetworkConfigForEnv(env string) (*NetworkConfig, error) {
	var config *NetworkConfig
	switch env {
	case EnvMainnet:
		contracts, err := mainnetContracts()
		if err != nil {
			return nil, err
		}
		config = contracts
		config.Moniker = EnvMainnet
		config.RPCURL = MainnetRPCURL
		config.ChainID = MainnetChainID
	case EnvFork:
		contracts, err := mainnetContracts()
		if err != nil {
			return nil, err
		}
		impersonated, err := ParseAddress(ForkImpersonatedAccount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse impersonated account: %w", err)
		}
		config = contracts
		config.Moniker = EnvFork
		config.RPCURL = ForkRPCURL
		config.ChainID = ForkChainID
		config.ImpersonatedAccount = impersonated
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidEnvironment, env)
	}

	rpcURL := os.Getenv(EnvVarRPCURL)
	if rpcURL != "" {
		config.RPCURL = rpcURL
	}

	return config, nil
}

func mainnetContracts() (*NetworkConfig, error) {
	stakeToken, err := ParseAddress(MainnetStakeToken)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stake token: %w", err)
	}
	staking, err := ParseAddress(MainnetStakingContract)
	if err != nil {
		return nil, fmt.Errorf("failed to parse staking contract: %w", err)
	}
	powerPod, err := ParseAddress(MainnetPowerPod)
	if err != nil {
		return nil, fmt.Errorf("failed to parse power pod: %w", err)
	}
	whitelist, err := ParseAddress(MainnetWhitelistRegistry)
	if err != nil {
		return nil, fmt.Errorf("failed to parse whitelist registry: %w", err)
	}
	gift, err := ParseAddress(MainnetGiftToken)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gift token: %w", err)
	}
	return &NetworkConfig{
		StakeToken:        stakeToken,
		StakingContract:   staking,
		PowerPod:          powerPod,
		WhitelistRegistry: whitelist,
		GiftToken:         gift,
	}, nil
}

// ParseAddress parses a 0x-prefixed hex address, rejecting anything that is not 20 bytes.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// FileConfig holds overrides applied on top of a preset. Empty fields keep the preset value.
type FileConfig struct {
	RPCURL              string        `yaml:"rpcURL"`
	ChainID             uint64        `yaml:"chainID"`
	ImpersonatedAccount string        `yaml:"impersonatedAccount"`
	Contracts           FileContracts `yaml:"contracts"`
}

type FileContracts struct {
	StakeToken        string `yaml:"stakeToken"`
	StakingContract   string `yaml:"stakingContract"`
	PowerPod          string `yaml:"powerPod"`
	WhitelistRegistry string `yaml:"whitelistRegistry"`
	GiftToken         string `yaml:"giftToken"`
}

func LoadFile(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg FileConfig
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

func (f *FileConfig) Apply(cfg *NetworkConfig) error {
	if f.RPCURL != "" {
		cfg.RPCURL = f.RPCURL
	}
	if f.ChainID != 0 {
		cfg.ChainID = f.ChainID
	}

	overrides := []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"impersonatedAccount", f.ImpersonatedAccount, &cfg.ImpersonatedAccount},
		{"contracts.stakeToken", f.Contracts.StakeToken, &cfg.StakeToken},
		{"contracts.stakingContract", f.Contracts.StakingContract, &cfg.StakingContract},
		{"contracts.powerPod", f.Contracts.PowerPod, &cfg.PowerPod},
		{"contracts.whitelistRegistry", f.Contracts.WhitelistRegistry, &cfg.WhitelistRegistry},
		{"contracts.giftToken", f.Contracts.GiftToken, &cfg.GiftToken},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		addr, err := ParseAddress(o.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", o.name, err)
		}
		*o.dst = addr
	}
	return nil
}

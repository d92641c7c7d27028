package staking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
)

var (
	ErrZeroAddress   = errors.New("zero address")
	ErrEmptyBytecode = errors.New("artifact has no creation bytecode")
	ErrNilArtifact   = errors.New("artifact is required")
)

// Artifact is a compiled contract: its ABI and creation bytecode.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte
}

// LoadArtifact reads a Hardhat or Foundry artifact JSON file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	artifact, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return artifact, nil
}

// ParseArtifact accepts Hardhat's string bytecode and Foundry's {"object": ...} form.
func ParseArtifact(data []byte) (*Artifact, error) {
	var raw struct {
		ContractName string          `json:"contractName"`
		ABI          json.RawMessage `json:"abi"`
		Bytecode     json.RawMessage `json:"bytecode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.ABI) == 0 {
		return nil, errors.New("artifact has no abi")
	}
	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("invalid abi: %w", err)
	}

	code, err := artifactBytecode(raw.Bytecode)
	if err != nil {
		return nil, err
	}
	return &Artifact{ContractName: raw.ContractName, ABI: parsed, Bytecode: code}, nil
}

func artifactBytecode(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyBytecode
	}
	var hexCode string
	if err := json.Unmarshal(raw, &hexCode); err != nil {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("invalid bytecode: %w", err)
		}
		hexCode = obj.Object
	}
	hexCode = strings.TrimSpace(hexCode)
	if !strings.HasPrefix(hexCode, "0x") {
		hexCode = "0x" + hexCode
	}
	if hexCode == "0x" {
		return nil, ErrEmptyBytecode
	}
	if strings.Contains(hexCode, "__") {
		return nil, errors.New("bytecode has unlinked library references")
	}
	code, err := hexutil.Decode(hexCode)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode: %w", err)
	}
	return code, nil
}

// FarmFactory deploys farming pods from a compiled artifact.
type FarmFactory struct {
	exec     Executor
	artifact *Artifact
}

func NewFarmFactory(exec Executor, artifact *Artifact) *FarmFactory {
	return &FarmFactory{exec: exec, artifact: artifact}
}

// DeployFarm submits the creation transaction for a farm distributing rewardToken to holders
// of shareToken. The farm address is the receipt's contract address.
func (f *FarmFactory) DeployFarm(ctx context.Context, shareToken, rewardToken common.Address) (*evm.PendingTx, error) {
	if f.artifact == nil {
		return nil, ErrNilArtifact
	}
	if shareToken == (common.Address{}) {
		return nil, fmt.Errorf("%w: share token", ErrZeroAddress)
	}
	if rewardToken == (common.Address{}) {
		return nil, fmt.Errorf("%w: reward token", ErrZeroAddress)
	}
	args, err := f.artifact.ABI.Pack("", shareToken, rewardToken)
	if err != nil {
		return nil, fmt.Errorf("failed to pack farm constructor: %w", err)
	}
	code := append(bytes.Clone(f.artifact.Bytecode), args...)
	tx, err := f.exec.Deploy(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy farm: %w", explainRevert(f.artifact.ABI, err))
	}
	return tx, nil
}

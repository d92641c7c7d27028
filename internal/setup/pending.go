package setup

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var ErrUnresolved = errors.New("value is not resolved yet")

// PendingAddress is an address produced by an earlier step. It cannot be read until the step
// that produces it has resolved it.
type PendingAddress struct {
	name     string
	addr     common.Address
	resolved bool
}

func NewPendingAddress(name string) *PendingAddress {
	return &PendingAddress{name: name}
}

func (p *PendingAddress) Resolve(addr common.Address) {
	p.addr = addr
	p.resolved = true
}

func (p *PendingAddress) Resolved() bool {
	return p.resolved
}

func (p *PendingAddress) Get() (common.Address, error) {
	if !p.resolved {
		return common.Address{}, fmt.Errorf("%s: %w", p.name, ErrUnresolved)
	}
	return p.addr, nil
}

// FarmDeployment is the farming pod created during the run.
type FarmDeployment struct {
	Address  common.Address
	DeployTx common.Hash
}

func (f *FarmDeployment) Deployed() bool {
	return f != nil && f.Address != (common.Address{})
}

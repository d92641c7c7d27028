package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/malbeclabs/resolver-setup/config"
	"github.com/spf13/pflag"
)

// addressValue is a pflag.Value holding an EVM address. The zero address means unset.
type addressValue struct {
	addr common.Address
}

func (v *addressValue) String() string {
	if v.addr == (common.Address{}) {
		return ""
	}
	return v.addr.Hex()
}

func (v *addressValue) Set(s string) error {
	addr, err := config.ParseAddress(s)
	if err != nil {
		return err
	}
	v.addr = addr
	return nil
}

func (v *addressValue) Type() string {
	return "address"
}

func addressFlag(flags *pflag.FlagSet, name, usage string) {
	flags.Var(&addressValue{}, name, usage)
}

func getAddress(flags *pflag.FlagSet, name string) (common.Address, error) {
	f := flags.Lookup(name)
	if f == nil {
		return common.Address{}, fmt.Errorf("flag accessed but not defined: %s", name)
	}
	v, ok := f.Value.(*addressValue)
	if !ok {
		return common.Address{}, fmt.Errorf("flag %s is not an address", name)
	}
	return v.addr, nil
}

package staking

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABI = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const stakingABI = `[
	{"type":"function","name":"deposit","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"duration","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"addPod","stateMutability":"nonpayable","inputs":[{"name":"pod","type":"address"}],"outputs":[]},
	{"type":"function","name":"hasPod","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"pod","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"depositors","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"lockTime","type":"uint40"},{"name":"unlockTime","type":"uint40"},{"name":"amount","type":"uint176"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// The power pod overloads register; the two argument form is the one used here.
const powerPodABI = `[
	{"type":"function","name":"register","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"},{"name":"symbol","type":"string"}],"outputs":[]},
	{"type":"function","name":"register","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"maxUserFarms","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"registration","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"setDefaultFarm","stateMutability":"nonpayable","inputs":[{"name":"farm","type":"address"}],"outputs":[]},
	{"type":"function","name":"defaultFarms","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"delegate","stateMutability":"nonpayable","inputs":[{"name":"delegatee","type":"address"}],"outputs":[]},
	{"type":"function","name":"delegated","stateMutability":"view","inputs":[{"name":"delegator","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"error","name":"AlreadyRegistered","inputs":[]},
	{"type":"error","name":"NotRegisteredDelegatee","inputs":[]}
]`

const whitelistABI = `[
	{"type":"function","name":"register","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"promote","stateMutability":"nonpayable","inputs":[{"name":"chainId","type":"uint256"},{"name":"promotee","type":"address"}],"outputs":[]},
	{"type":"function","name":"promotions","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"chainId","type":"uint256"}],"outputs":[{"name":"timestamp","type":"uint256"},{"name":"promotee","type":"address"}]},
	{"type":"function","name":"getWhitelist","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"error","name":"BalanceLessThanThreshold","inputs":[]},
	{"type":"error","name":"AlreadyRegistered","inputs":[]},
	{"type":"error","name":"SamePromotee","inputs":[]}
]`

var (
	ERC20ABI     = mustParseABI("erc20", erc20ABI)
	StakingABI   = mustParseABI("staking", stakingABI)
	PowerPodABI  = mustParseABI("power pod", powerPodABI)
	WhitelistABI = mustParseABI("whitelist", whitelistABI)
)

func mustParseABI(name, def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("failed to parse %s ABI: %v", name, err))
	}
	return parsed
}

// methodBySig finds a method by its canonical signature, which is unambiguous for overloaded
// functions.
func methodBySig(a abi.ABI, sig string) (abi.Method, error) {
	for _, m := range a.Methods {
		if m.Sig == sig {
			return m, nil
		}
	}
	return abi.Method{}, fmt.Errorf("method %s not found in ABI", sig)
}

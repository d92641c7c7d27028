package setup_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
	"github.com/malbeclabs/resolver-setup/sdk/staking"
)

var (
	stakeTokenAddr = common.HexToAddress("0x111111111117dc0aa78b770fa6a738034120c302")
	stakingAddr    = common.HexToAddress("0x9a0c8ff858d273f57072d714bca7411d717501d7")
	powerPodAddr   = common.HexToAddress("0xdaf782667d98d5069ee7ba139932945c4d08fde9")
	whitelistAddr  = common.HexToAddress("0xa49e5f1d7b4d4e3c4f7e7c5e3b2a1a0b1a0b1a0b")
	resolverAddr   = common.HexToAddress("0x720D8790666bd40B9CA289CBe73cb1334f0aE7e3")

	farmBytecode = []byte{0x60, 0x80, 0x60, 0x40}
	farmABI      = mustABI(`[{"type":"constructor","inputs":[{"name":"stakingToken","type":"address"},{"name":"rewardsToken","type":"address"}]}]`)
)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

func farmArtifact() *staking.Artifact {
	return &staking.Artifact{ContractName: "FarmingPod", ABI: farmABI, Bytecode: farmBytecode}
}

// fakeChain is an in-memory rendition of the stake token, staking contract, power pod and
// whitelist registry. Transactions from the single sender are applied immediately and rejected
// the way the contracts reject them at gas estimation.
type fakeChain struct {
	mu sync.Mutex

	sender    common.Address
	now       time.Time
	block     uint64
	threshold *big.Int

	balances      map[common.Address]*big.Int
	allowances    map[[2]common.Address]*big.Int
	deposits      map[common.Address]*big.Int
	unlockTimes   map[common.Address]time.Time
	pods          map[common.Address]map[common.Address]bool
	registrations map[common.Address]common.Address
	defaultFarms  map[common.Address]common.Address
	delegated     map[common.Address]common.Address
	whitelist     []common.Address
	promotions    map[common.Address]map[uint64]common.Address
	farms         map[common.Address][2]common.Address

	// registerNoop makes register succeed without binding a share token.
	registerNoop bool
	// callErrs fails the next reads of a method with a transport error.
	callErrs map[string]int

	sent  []string
	calls int
}

func newFakeChain(balance *big.Int) *fakeChain {
	return &fakeChain{
		sender:        resolverAddr,
		now:           time.Unix(1700000000, 0).UTC(),
		block:         100,
		threshold:     big.NewInt(1),
		balances:      map[common.Address]*big.Int{resolverAddr: new(big.Int).Set(balance)},
		allowances:    map[[2]common.Address]*big.Int{},
		deposits:      map[common.Address]*big.Int{},
		unlockTimes:   map[common.Address]time.Time{},
		pods:          map[common.Address]map[common.Address]bool{},
		registrations: map[common.Address]common.Address{},
		defaultFarms:  map[common.Address]common.Address{},
		delegated:     map[common.Address]common.Address{},
		promotions:    map[common.Address]map[uint64]common.Address{},
		farms:         map[common.Address][2]common.Address{},
		callErrs:      map[string]int{},
	}
}

var errTransport = errors.New("connection reset by peer")

func reverted(reason string) error {
	return &evm.RevertError{Reason: reason}
}

func customError(sig string) error {
	return &evm.RevertError{Reason: "custom error", Data: crypto.Keccak256([]byte(sig))[:4]}
}

func (c *fakeChain) contractABI(to common.Address) (abi.ABI, string, error) {
	switch to {
	case stakeTokenAddr:
		return staking.ERC20ABI, "token", nil
	case stakingAddr:
		return staking.StakingABI, "staking", nil
	case powerPodAddr:
		return staking.PowerPodABI, "pod", nil
	case whitelistAddr:
		return staking.WhitelistABI, "whitelist", nil
	}
	return abi.ABI{}, "", fmt.Errorf("no contract at %s", to)
}

func (c *fakeChain) mined() *evm.PendingTx {
	c.block++
	block := c.block
	hash := common.BigToHash(new(big.Int).SetUint64(block))
	return evm.NewPendingTx(hash, func(context.Context) (*types.Receipt, error) {
		return &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			TxHash:      hash,
			BlockNumber: new(big.Int).SetUint64(block),
			GasUsed:     50000,
		}, nil
	})
}

func (c *fakeChain) Send(ctx context.Context, to common.Address, data []byte) (*evm.PendingTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	a, name, err := c.contractABI(to)
	if err != nil {
		return nil, err
	}
	m, err := a.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	if err := c.apply(name+"."+m.Sig, args); err != nil {
		return nil, err
	}
	c.sent = append(c.sent, name+"."+m.Name)
	return c.mined(), nil
}

func (c *fakeChain) apply(sig string, args []any) error {
	from := c.sender
	switch sig {
	case "token.approve(address,uint256)":
		c.allowances[[2]common.Address{from, args[0].(common.Address)}] = args[1].(*big.Int)
	case "staking.deposit(uint256,uint256)":
		amount, duration := args[0].(*big.Int), args[1].(*big.Int)
		key := [2]common.Address{from, stakingAddr}
		allowance := c.allowances[key]
		if allowance == nil || allowance.Cmp(amount) < 0 {
			return reverted("ERC20: insufficient allowance")
		}
		if c.balances[from] == nil || c.balances[from].Cmp(amount) < 0 {
			return reverted("ERC20: transfer amount exceeds balance")
		}
		c.allowances[key] = new(big.Int).Sub(allowance, amount)
		c.balances[from] = new(big.Int).Sub(c.balances[from], amount)
		if c.deposits[from] == nil {
			c.deposits[from] = new(big.Int)
		}
		c.deposits[from] = new(big.Int).Add(c.deposits[from], amount)
		c.unlockTimes[from] = c.now.Add(time.Duration(duration.Int64()) * time.Second)
	case "staking.addPod(address)":
		pod := args[0].(common.Address)
		if c.pods[from][pod] {
			return customError("PodAlreadyAdded()")
		}
		if c.pods[from] == nil {
			c.pods[from] = map[common.Address]bool{}
		}
		c.pods[from][pod] = true
	case "pod.register(string,string)":
		if c.registrations[from] != (common.Address{}) {
			return customError("AlreadyRegistered()")
		}
		if !c.registerNoop {
			c.registrations[from] = crypto.CreateAddress(powerPodAddr, uint64(len(c.registrations)+1))
		}
	case "pod.setDefaultFarm(address)":
		farm := args[0].(common.Address)
		pair, ok := c.farms[farm]
		if !ok || pair[0] != c.registrations[from] {
			return reverted("farm is not for the sender's share token")
		}
		c.defaultFarms[from] = farm
	case "pod.delegate(address)":
		delegatee := args[0].(common.Address)
		if c.registrations[delegatee] == (common.Address{}) {
			return customError("NotRegisteredDelegatee()")
		}
		c.delegated[from] = delegatee
	case "whitelist.register()":
		for _, a := range c.whitelist {
			if a == from {
				return customError("AlreadyRegistered()")
			}
		}
		if c.deposits[from] == nil || c.deposits[from].Cmp(c.threshold) < 0 {
			return customError("BalanceLessThanThreshold()")
		}
		c.whitelist = append(c.whitelist, from)
	case "whitelist.promote(uint256,address)":
		slot, worker := args[0].(*big.Int).Uint64(), args[1].(common.Address)
		whitelisted := false
		for _, a := range c.whitelist {
			whitelisted = whitelisted || a == from
		}
		if !whitelisted {
			return reverted("sender is not whitelisted")
		}
		if c.promotions[from][slot] == worker {
			return customError("SamePromotee()")
		}
		if c.promotions[from] == nil {
			c.promotions[from] = map[uint64]common.Address{}
		}
		c.promotions[from][slot] = worker
	default:
		return fmt.Errorf("unexpected transaction %s", sig)
	}
	return nil
}

func (c *fakeChain) Deploy(ctx context.Context, code []byte) (*evm.PendingTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	args, err := farmABI.Constructor.Inputs.Unpack(code[len(farmBytecode):])
	if err != nil {
		return nil, err
	}
	addr := crypto.CreateAddress(c.sender, uint64(len(c.sent)))
	c.farms[addr] = [2]common.Address{args[0].(common.Address), args[1].(common.Address)}
	c.sent = append(c.sent, "deploy")

	pending := c.mined()
	return evm.NewPendingTx(pending.Hash, func(ctx context.Context) (*types.Receipt, error) {
		receipt, err := pending.Wait(ctx)
		if err != nil {
			return nil, err
		}
		receipt.ContractAddress = addr
		return receipt, nil
	}), nil
}

func (c *fakeChain) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	a, _, err := c.contractABI(to)
	if err != nil {
		return nil, err
	}
	m, err := a.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	if c.callErrs[m.Name] > 0 {
		c.callErrs[m.Name]--
		return nil, errTransport
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}

	var out []any
	switch m.Name {
	case "allowance":
		out = []any{orZero(c.allowances[[2]common.Address{args[0].(common.Address), args[1].(common.Address)}])}
	case "balanceOf":
		if to == stakingAddr {
			out = []any{orZero(c.deposits[args[0].(common.Address)])}
		} else {
			out = []any{orZero(c.balances[args[0].(common.Address)])}
		}
	case "depositors":
		account := args[0].(common.Address)
		var lock, unlock *big.Int = new(big.Int), new(big.Int)
		if t, ok := c.unlockTimes[account]; ok {
			lock = big.NewInt(c.now.Unix())
			unlock = big.NewInt(t.Unix())
		}
		out = []any{lock, unlock, orZero(c.deposits[account])}
	case "hasPod":
		out = []any{c.pods[args[0].(common.Address)][args[1].(common.Address)]}
	case "registration":
		out = []any{c.registrations[args[0].(common.Address)]}
	case "defaultFarms":
		out = []any{c.defaultFarms[args[0].(common.Address)]}
	case "delegated":
		out = []any{c.delegated[args[0].(common.Address)]}
	case "getWhitelist":
		out = []any{append([]common.Address{}, c.whitelist...)}
	case "promotions":
		out = []any{big.NewInt(c.now.Unix()), c.promotions[args[0].(common.Address)][args[1].(*big.Int).Uint64()]}
	default:
		return nil, fmt.Errorf("unexpected call %s", m.Sig)
	}
	return m.Outputs.Pack(out...)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (c *fakeChain) sentTxs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.sent...)
}

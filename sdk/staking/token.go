package staking

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
)

// Token is an ERC-20 token client.
type Token struct {
	contract
}

func NewToken(exec Executor, address common.Address) *Token {
	return &Token{contract{exec: exec, abi: ERC20ABI, address: address}}
}

func (t *Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*evm.PendingTx, error) {
	return t.transact(ctx, "approve(address,uint256)", spender, amount)
}

func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	out, err := t.call(ctx, "allowance(address,address)", owner, spender)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := t.call(ctx, "balanceOf(address)", account)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

package setup

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
)

const (
	StepApprove           = "approve"
	StepDeposit           = "deposit"
	StepAddPod            = "add-pod"
	StepRegister          = "register"
	StepFetchShareToken   = "fetch-share-token"
	StepDeployFarm        = "deploy-farm"
	StepSetDefaultFarm    = "set-default-farm"
	StepDelegate          = "delegate"
	StepWhitelistRegister = "whitelist-register"
	StepPromote           = "promote"
)

var (
	ErrFarmNotDeployed = errors.New("farm is not deployed")
	ErrNoContract      = errors.New("receipt has no contract address")
)

// step is one entry of the pipeline. Exactly one of send or read is set.
type step struct {
	name string

	// send submits the step's transaction.
	send func(ctx context.Context) (*evm.PendingTx, error)
	// noWait records the transaction without awaiting its receipt.
	noWait bool
	// confirmed runs after the receipt is final.
	confirmed func(receipt *types.Receipt) error

	// read is a read-only step.
	read func(ctx context.Context) error

	// done reports whether the effect of the step is already on chain. Only consulted when
	// resuming.
	done func(ctx context.Context) (bool, error)
}

// runState carries the values produced by earlier steps.
type runState struct {
	shareToken *PendingAddress
	farm       *FarmDeployment
}

func newRunState() *runState {
	return &runState{
		shareToken: NewPendingAddress("share token"),
		farm:       &FarmDeployment{},
	}
}

// pipeline is the ordered list of steps. Each step only starts once the previous one is final.
func (o *Orchestrator) pipeline(st *runState) []step {
	return []step{
		o.approveStep(),
		o.depositStep(),
		o.addPodStep(),
		o.registerStep(),
		o.fetchShareTokenStep(st.shareToken),
		o.deployFarmStep(st.shareToken, st.farm),
		o.setDefaultFarmStep(st.farm),
		o.delegateStep(),
		o.whitelistRegisterStep(),
		o.promoteStep(),
	}
}

func (o *Orchestrator) approveStep() step {
	return step{
		name: StepApprove,
		send: func(ctx context.Context) (*evm.PendingTx, error) {
			return o.cfg.StakeToken.Approve(ctx, o.cfg.Staking.Address(), o.cfg.Stake.Amount)
		},
		noWait: o.cfg.SkipApprovalWait,
		done: func(ctx context.Context) (bool, error) {
			staked, err := o.staked(ctx)
			if err != nil || staked {
				return staked, err
			}
			allowance, err := read(ctx, o, "allowance", func(ctx context.Context) (*big.Int, error) {
				return o.cfg.StakeToken.Allowance(ctx, o.cfg.Resolver, o.cfg.Staking.Address())
			})
			if err != nil {
				return false, err
			}
			return allowance.Cmp(o.cfg.Stake.Amount) >= 0, nil
		},
	}
}

func (o *Orchestrator) depositStep() step {
	return step{
		name: StepDeposit,
		send: func(ctx context.Context) (*evm.PendingTx, error) {
			return o.cfg.Staking.Deposit(ctx, o.cfg.Stake.Amount, o.cfg.Stake.LockDuration)
		},
		done: o.staked,
	}
}

func (o *Orchestrator) addPodStep() step {
	return step{
		name: StepAddPod,
		send: func(ctx context.Context) (*evm.PendingTx, error) {
			return o.cfg.Staking.AddPod(ctx, o.cfg.PowerPod.Address())
		},
		done: func(ctx context.Context) (bool, error) {
			return read(ctx, o, "pod membership", func(ctx context.Context) (bool, error) {
				return o.cfg.Staking.HasPod(ctx, o.cfg.Resolver, o.cfg.PowerPod.Address())
			})
		},
	}
}

func (o *Orchestrator) registerStep() step {
	return step{
		name: StepRegister,
		send: func(ctx context.Context) (*evm.PendingTx, error) {
			return o.cfg.PowerPod.Register(ctx, o.cfg.ShareToken.Name, o.cfg.ShareToken.Symbol)
		},
		done: func(ctx context.Context) (bool, error) {
			token, err := o.registration(ctx)
			return token != (common.Address{}), err
		},
	}
}

// fetchShareTokenStep resolves the share token bound to the resolver. Before registration the
// power pod reports the zero address, which is resolved as is.
func (o *Orchestrator) fetchShareTokenStep(shareToken *PendingAddress) step {
	return step{
		name: StepFetchShareToken,
		read: func(ctx context.Context) error {
			token, err := o.registration(ctx)
			if err != nil {
				return err
			}
			shareToken.Resolve(token)
			o.log.Info("Fetched share token", "resolver", o.cfg.Resolver, "shareToken", token)
			return nil
		},
	}
}

func (o *Orchestrator) deployFarmStep(shareToken *PendingAddress, farm *FarmDeployment) step {
	return step{
		name: StepDeployFarm,
		send: func(ctx context.Context) (*evm.PendingTx, error) {
			token, err := shareToken.Get()
			if err != nil {
				return nil, err
			}
			return o.cfg.FarmDeployer.DeployFarm(ctx, token, o.cfg.GiftToken)
		},
		confirmed: func(receipt *types.Receipt) error {
			if receipt.ContractAddress == (common.Address{}) {
				return ErrNoContract
			}
			farm.Address = receipt.ContractAddress
			farm.DeployTx = receipt.TxHash
			o.log.Info("Deployed farm", "farm", farm.Address, "tx", farm.DeployTx)
			return nil
		},
		done: func(ctx context.Context) (bool, error) {
			current, err := o.defaultFarm(ctx)
			if err != nil || current == (common.Address{}) {
				return false, err
			}
			farm.Address = current
			return true, nil
		},
	}
}

func (o *Orchestrator) setDefaultFarmStep(farm *FarmDeployment) step {
	return step{
		name: StepSetDefaultFarm,
		send: func(ctx context.Context) (*evm.PendingTx, error) {
			if !farm.Deployed() {
				return nil, ErrFarmNotDeployed
			}
			return o.cfg.PowerPod.SetDefaultFarm(ctx, farm.Address)
		},
		done: func(ctx context.Context) (bool, error) {
			current, err := o.defaultFarm(ctx)
			return farm.Deployed() && current == farm.Address, err
		},
	}
}

func (o *Orchestrator) delegateStep() step {
	return step{
		name: StepDelegate,
		send: func(ctx context.Context) (*evm.PendingTx, error) {
			return o.cfg.PowerPod.Delegate(ctx, o.cfg.Resolver)
		},
		done: func(ctx context.Context) (bool, error) {
			delegatee, err := read(ctx, o, "delegatee", func(ctx context.Context) (common.Address, error) {
				return o.cfg.PowerPod.Delegated(ctx, o.cfg.Resolver)
			})
			return delegatee == o.cfg.Resolver, err
		},
	}
}

func (o *Orchestrator) whitelistRegisterStep() step {
	return step{
		name: StepWhitelistRegister,
		send: func(ctx context.Context) (*evm.PendingTx, error) {
			return o.cfg.Whitelist.Register(ctx)
		},
		done: func(ctx context.Context) (bool, error) {
			return read(ctx, o, "whitelist", func(ctx context.Context) (bool, error) {
				return o.cfg.Whitelist.IsWhitelisted(ctx, o.cfg.Resolver)
			})
		},
	}
}

func (o *Orchestrator) promoteStep() step {
	return step{
		name: StepPromote,
		send: func(ctx context.Context) (*evm.PendingTx, error) {
			return o.cfg.Whitelist.Promote(ctx, o.cfg.PromoteSlot, o.cfg.Worker)
		},
		done: func(ctx context.Context) (bool, error) {
			promotion, err := read(ctx, o, "promotion", func(ctx context.Context) (common.Address, error) {
				p, err := o.cfg.Whitelist.Promotion(ctx, o.cfg.Resolver, o.cfg.PromoteSlot)
				if err != nil {
					return common.Address{}, err
				}
				return p.Promotee, nil
			})
			return promotion == o.cfg.Worker, err
		},
	}
}

func (o *Orchestrator) staked(ctx context.Context) (bool, error) {
	amount, err := read(ctx, o, "stake", func(ctx context.Context) (*big.Int, error) {
		d, err := o.cfg.Staking.Depositor(ctx, o.cfg.Resolver)
		if err != nil {
			return nil, err
		}
		return d.Amount, nil
	})
	if err != nil {
		return false, err
	}
	return amount != nil && amount.Cmp(o.cfg.Stake.Amount) >= 0, nil
}

func (o *Orchestrator) registration(ctx context.Context) (common.Address, error) {
	return read(ctx, o, "share token registration", func(ctx context.Context) (common.Address, error) {
		return o.cfg.PowerPod.Registration(ctx, o.cfg.Resolver)
	})
}

func (o *Orchestrator) defaultFarm(ctx context.Context) (common.Address, error) {
	return read(ctx, o, "default farm", func(ctx context.Context) (common.Address, error) {
		return o.cfg.PowerPod.DefaultFarm(ctx, o.cfg.Resolver)
	})
}

func read[T any](ctx context.Context, o *Orchestrator, what string, fn func(context.Context) (T, error)) (T, error) {
	return readWithRetry(ctx, o.log, what, o.cfg.ReadMaxTries, o.cfg.ReadRetryPeriod, fn)
}

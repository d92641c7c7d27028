package config

const (
	// Mainnet constants.
	MainnetRPCURL            = "https://cloudflare-eth.com"
	MainnetChainID           = 1
	MainnetStakeToken        = "0x111111111117dc0aa78b770fa6a738034120c302"
	MainnetStakingContract   = "0x9a0c8ff858d273f57072d714bca7411d717501d7"
	MainnetPowerPod          = "0xdaf782667d98d5069ee7ba139932945c4d08fde9"
	MainnetWhitelistRegistry = "0xa49ecb28cc8ab39659be2bfb6f7b86f0c4461a0b"
	MainnetGiftToken         = MainnetStakeToken

	// Fork constants. A local hardhat or anvil node forked from mainnet, so the contract
	// addresses are the mainnet ones.
	ForkRPCURL  = "http://127.0.0.1:8545"
	ForkChainID = 31337

	// ForkImpersonatedAccount holds both ETH and stake tokens on mainnet.
	ForkImpersonatedAccount = "0x720D8790666bd40B9CA289CBe73cb1334f0aE7e3"

	// Environment variable that overrides the preset RPC URL.
	EnvVarRPCURL = "RESOLVER_SETUP_RPC_URL"
)

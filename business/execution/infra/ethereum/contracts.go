package ethereum

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FlashCycleExecutorABI is the deployed executor contract. It borrows
// the start token via flash loan, swaps through the pinned hops, repays
// the loan plus fee and keeps the surplus. The whole transaction
// reverts if the cycle no longer covers the repayment.
const FlashCycleExecutorABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "borrowToken", "type": "address"},
			{"internalType": "uint256", "name": "borrowAmount", "type": "uint256"},
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "address", "name": "factory", "type": "address"},
					{"internalType": "address", "name": "router", "type": "address"},
					{"internalType": "address", "name": "permit", "type": "address"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"}
				],
				"internalType": "struct FlashCycleExecutor.SwapHop[]",
				"name": "swapHops",
				"type": "tuple[]"
			},
			{"internalType": "uint256", "name": "gasPriceCeiling", "type": "uint256"}
		],
		"name": "executeFlashLoan",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// ExecHop mirrors the contract's SwapHop tuple for abi packing.
type ExecHop struct {
	TokenIn  common.Address
	TokenOut common.Address
	Factory  common.Address
	Router   common.Address
	Permit   common.Address
	Fee      *big.Int // uint24
}

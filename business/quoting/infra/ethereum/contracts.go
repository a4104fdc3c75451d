// Package ethereum implements the ContractQuoter port against the
// on-chain route quoter through Multicall3.
package ethereum

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RouteQuoterABI covers quoteBestRoute, the only function we call on
// the quoter contract.
const RouteQuoterABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "initialAmount", "type": "uint256"},
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{
						"components": [
							{"internalType": "address", "name": "factory", "type": "address"},
							{"internalType": "uint24", "name": "fee", "type": "uint24"}
						],
						"internalType": "struct IRouteQuoter.Candidate[]",
						"name": "candidates",
						"type": "tuple[]"
					}
				],
				"internalType": "struct IRouteQuoter.SwapHop[]",
				"name": "swapHops",
				"type": "tuple[]"
			}
		],
		"name": "quoteBestRoute",
		"outputs": [
			{
				"components": [
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "uint256", "name": "amountOut", "type": "uint256"},
					{"internalType": "address", "name": "factory", "type": "address"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"}
				],
				"internalType": "struct IRouteQuoter.HopResult[]",
				"name": "results",
				"type": "tuple[]"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Multicall3ABI covers aggregate3, which batches quoter calls with
// per-call failure tolerance.
const Multicall3ABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "target", "type": "address"},
					{"internalType": "bool", "name": "allowFailure", "type": "bool"},
					{"internalType": "bytes", "name": "callData", "type": "bytes"}
				],
				"internalType": "struct Multicall3.Call3[]",
				"name": "calls",
				"type": "tuple[]"
			}
		],
		"name": "aggregate3",
		"outputs": [
			{
				"components": [
					{"internalType": "bool", "name": "success", "type": "bool"},
					{"internalType": "bytes", "name": "returnData", "type": "bytes"}
				],
				"internalType": "struct Multicall3.Result[]",
				"name": "returnData",
				"type": "tuple[]"
			}
		],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// Candidate is the quoter's per-hop venue option.
type Candidate struct {
	Factory common.Address
	Fee     *big.Int // uint24
}

// SwapHop is the quoter's hop descriptor.
type SwapHop struct {
	TokenIn    common.Address
	TokenOut   common.Address
	Candidates []Candidate
}

// HopResult is the quoter's per-hop return record.
type HopResult struct {
	AmountIn  *big.Int
	AmountOut *big.Int
	Factory   common.Address
	Fee       *big.Int // uint24
}

// Call3 is a Multicall3 aggregate3 call entry.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Call3Result is a Multicall3 aggregate3 result entry.
type Call3Result struct {
	Success    bool
	ReturnData []byte
}

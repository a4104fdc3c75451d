package token

// ChainIDBSC is the BNB Smart Chain mainnet chain id.
const ChainIDBSC = 56

// Well-known BSC tokens.
var (
	WBNB = MustNew(ChainIDBSC, "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", 18, "WBNB")
	USDT = MustNew(ChainIDBSC, "0x55d398326f99059fF775485246999027B3197955", 18, "USDT")
	BTCB = MustNew(ChainIDBSC, "0x7130d2A12B9BCbFAe4f2634d864A1Ee1Ce3Ead9c", 18, "BTCB")
	BUSD = MustNew(ChainIDBSC, "0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56", 18, "BUSD")
	ETH  = MustNew(ChainIDBSC, "0x2170Ed0880ac9A755fd29B2688956BD959F933F8", 18, "ETH")
	CAKE = MustNew(ChainIDBSC, "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82", 18, "CAKE")
	USDC = MustNew(ChainIDBSC, "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", 18, "USDC")
)

// DefaultRegistry returns a Registry pre-populated with well-known BSC tokens.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range []Token{WBNB, USDT, BTCB, BUSD, ETH, CAKE, USDC} {
		r.Register(t)
	}
	return r
}

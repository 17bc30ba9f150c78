package types

// Token represents a swappable asset on a specific network.
//
// Fields:
// - ID: the unique identifier of the token (symbol-network slug).
// - Symbol: the ticker symbol of the token.
// - Name: the human readable name of the token.
// - Network: the name of the network the token lives on.
// - Balance: the balance held by the connected account.
// - Price: the last known USD price of the token.
type Token struct {
	ID      string
	Symbol  string
	Name    string
	Network string
	Balance float64
	Price   float64
}

// CustomToken describes a non-native token by its on-chain coordinates.
// It is the shape the quote API expects for customTokenIn/customTokenOut.
type CustomToken struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	ChainID  int64  `json:"chainId"`
}

package types

// QuoteRequest is the request body sent to the quote API.
//
// Exactly one token-selection shape is populated per request:
// - legacy: TokenIn symbol plus CustomTokenOut (both tokens non-native),
// - UseNativeTokenIn plus CustomTokenOut (native pay token),
// - UseNativeTokenOut plus CustomTokenIn (native receive token),
// - UseNativeTokenIn plus UseNativeTokenOut (both native).
type QuoteRequest struct {
	FromChainID int64  `json:"fromChainId"`
	ToChainID   int64  `json:"toChainId"`
	Amount      string `json:"amount"`
	From        string `json:"from"`
	To          string `json:"to"`

	// SelectMode is the route priority: "fastest", "cheapest",
	// "best_return" or "best_price".
	SelectMode string `json:"selectMode,omitempty"`
	// Slippage is the tolerated slippage in basis points (200 = 2%).
	Slippage int `json:"slippage,omitempty"`

	UseNativeTokenIn  bool         `json:"useNativeTokenIn,omitempty"`
	UseNativeTokenOut bool         `json:"useNativeTokenOut,omitempty"`
	TokenIn           string       `json:"tokenIn,omitempty"`
	CustomTokenIn     *CustomToken `json:"customTokenIn,omitempty"`
	CustomTokenOut    *CustomToken `json:"customTokenOut,omitempty"`
}

// RouteToken identifies a hop token inside a provider route.
type RouteToken struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	ChainID  int64  `json:"chainId"`
	Decimals int    `json:"decimals"`
}

// Route is a provider-specific path fulfilling the swap. Routes are
// informational only and never affect execution semantics.
type Route struct {
	Provider string       `json:"provider"`
	Tokens   []RouteToken `json:"tokens"`
}

// Fee is a provider fee attached to a quote.
type Fee struct {
	Provider string `json:"provider"`
	Value    string `json:"value"`
}

// TransactionRequest is the exact transaction payload computed by the
// quote API. Its fields must be broadcast verbatim: recomputing any of
// them client-side invalidates the server-signed route.
type TransactionRequest struct {
	ChainID int64  `json:"chainId"`
	To      string `json:"to"`
	Data    string `json:"data"`
	Value   string `json:"value"`
}

// Quote represents a server-computed swap plan.
//
// Fields:
// - SelectMode: the route priority the quote was computed for.
// - TransactionType: the kind of transaction the quote resolves to.
// - TokenAmountOut: the expected output amount.
// - TokenAmountOutMin: the minimum output amount after slippage.
// - PriceImpact: the price impact of the swap.
// - ApproveTo: the address to approve token spending for.
// - Routes: the provider routes fulfilling the swap.
// - Fees: the provider fees charged for the swap.
// - TransactionRequest: the exact transaction payload to broadcast.
type Quote struct {
	SelectMode         string             `json:"selectMode"`
	TransactionType    string             `json:"transactionType"`
	TokenAmountOut     string             `json:"tokenAmountOut"`
	TokenAmountOutMin  string             `json:"tokenAmountOutMin"`
	PriceImpact        string             `json:"priceImpact"`
	ApproveTo          string             `json:"approveTo"`
	Routes             []Route            `json:"routes"`
	Fees               []Fee              `json:"fees"`
	TransactionRequest TransactionRequest `json:"transactionRequest"`
}

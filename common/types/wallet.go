package types

import "context"

// TransactionSender provides transaction broadcast functionality.
type TransactionSender interface {
	// SendTransaction broadcasts the given transaction payload verbatim.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - txReq: the exact transaction payload from the quote.
	//
	// Returns:
	// - string: the hash of the broadcast transaction.
	// - error: an error if the broadcast fails or is rejected.
	SendTransaction(ctx context.Context, txReq *TransactionRequest) (string, error)
}

// TransactionWatcher provides transaction confirmation functionality.
type TransactionWatcher interface {
	// WaitForReceipt waits until the transaction is mined.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - txHash: the hash of the transaction to wait for.
	//
	// Returns:
	// - bool: true if the transaction succeeded, false otherwise.
	// - error: an error if the confirmation wait fails.
	WaitForReceipt(ctx context.Context, txHash string) (bool, error)
}

// ChainSwitcher provides connected-chain inspection and switching.
type ChainSwitcher interface {
	// CurrentChainID returns the chain id the wallet is connected to.
	CurrentChainID() int64

	// SwitchChain requests the wallet to switch to the given chain.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - chainID: the target chain id.
	//
	// Returns:
	// - error: an error if the switch fails or the user rejects it.
	SwitchChain(ctx context.Context, chainID int64) error
}

// Wallet combines the signer capabilities the engine depends on. The
// engine never depends on a specific wallet implementation.
type Wallet interface {
	// Address returns the connected account address, empty if none.
	Address() string
	// Connected reports whether a signer is available.
	Connected() bool

	TransactionSender
	TransactionWatcher
	ChainSwitcher
}

// BalanceReader is an optional wallet capability for reading on-chain
// token balances. Wallets that cannot read balances simply do not
// implement it.
type BalanceReader interface {
	// TokenBalance returns the signing account's balance in whole token
	// units. tokenAddress is empty for the native asset.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - tokenAddress: the token contract address, empty for native.
	// - decimals: the token's decimal places.
	//
	// Returns:
	// - float64: the balance in whole token units.
	// - error: an error if the balance check fails.
	TokenBalance(ctx context.Context, tokenAddress string, decimals int) (float64, error)
}

// PriceConverter provides optimistic local amount conversion backed by
// cached USD prices.
type PriceConverter interface {
	// Convert converts an amount between two symbols using USD as pivot.
	// It returns 0 when either price is missing or the amount is not
	// positive.
	Convert(fromSymbol, toSymbol string, amount float64) float64

	// Prices returns the live USD price map.
	Prices() map[string]float64
}

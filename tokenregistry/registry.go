// Package tokenregistry holds the static token and chain metadata the
// engine consults synchronously when building requests and classifying
// native versus custom tokens.
package tokenregistry

import (
	"fmt"
	"strings"

	"github.com/bentoswap/swap-lib/common/types"
)

// ChainInfo describes a supported network.
type ChainInfo struct {
	ChainID  int64
	Decimals int
	Symbol   string
	Name     string
}

// TokenInfo describes a token available on a network. ContractAddress
// is empty for the network's native asset.
type TokenInfo struct {
	Decimals        int
	Symbol          string
	Name            string
	ContractAddress string
}

// networkTokens groups a chain with the tokens listed on it.
type networkTokens struct {
	chain  ChainInfo
	tokens map[string]TokenInfo
}

var registry = map[string]networkTokens{
	"ETHEREUM": {
		chain: ChainInfo{ChainID: 1, Decimals: 18, Symbol: "ETH", Name: "Ethereum"},
		tokens: map[string]TokenInfo{
			"ETH":  {Decimals: 18, Symbol: "ETH", Name: "Ethereum"},
			"USDC": {Decimals: 6, Symbol: "USDC", Name: "USD Coin", ContractAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
			"WBTC": {Decimals: 8, Symbol: "WBTC", Name: "Wrapped Bitcoin", ContractAddress: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"},
			"BRZ":  {Decimals: 18, Symbol: "BRZ", Name: "Brazilian Digital Token", ContractAddress: "0x01d33fd36ec67c6ada32cf36b31e88ee190b1839"},
		},
	},
	"BASE": {
		chain: ChainInfo{ChainID: 8453, Decimals: 18, Symbol: "ETH", Name: "Base"},
		tokens: map[string]TokenInfo{
			"ETH":  {Decimals: 18, Symbol: "ETH", Name: "Ethereum"},
			"USDC": {Decimals: 6, Symbol: "USDC", Name: "USD Coin", ContractAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"},
			"BRZ":  {Decimals: 18, Symbol: "BRZ", Name: "Brazilian Digital Token", ContractAddress: "0xE9185Ee218cae427aF7B9764A011bb89FeA761B4"},
		},
	},
	"ARBITRUM": {
		chain: ChainInfo{ChainID: 42161, Decimals: 18, Symbol: "ETH", Name: "Arbitrum"},
		tokens: map[string]TokenInfo{
			"ETH":  {Decimals: 18, Symbol: "ETH", Name: "Ethereum"},
			"USDC": {Decimals: 6, Symbol: "USDC", Name: "USD Coin", ContractAddress: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"},
		},
	},
	"POLYGON": {
		chain: ChainInfo{ChainID: 137, Decimals: 18, Symbol: "MATIC", Name: "Polygon"},
		tokens: map[string]TokenInfo{
			"MATIC": {Decimals: 18, Symbol: "MATIC", Name: "Polygon"},
			"USDC":  {Decimals: 6, Symbol: "USDC", Name: "USD Coin", ContractAddress: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"},
			"BRZ":   {Decimals: 18, Symbol: "BRZ", Name: "Brazilian Digital Token", ContractAddress: "0x4eD141110F6EeeAbA9A1df36d8c26f684d2475Dc"},
		},
	},
	"OPTIMISM": {
		chain: ChainInfo{ChainID: 10, Decimals: 18, Symbol: "ETH", Name: "Optimism"},
		tokens: map[string]TokenInfo{
			"ETH":  {Decimals: 18, Symbol: "ETH", Name: "Ethereum"},
			"OP":   {Decimals: 18, Symbol: "OP", Name: "Optimism", ContractAddress: "0x4200000000000000000000000000000000000042"},
			"USDC": {Decimals: 6, Symbol: "USDC", Name: "USD Coin", ContractAddress: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"},
			"BRZ":  {Decimals: 18, Symbol: "BRZ", Name: "Brazilian Digital Token", ContractAddress: "0xE9185Ee218cae427aF7B9764A011bb89FeA761B4"},
		},
	},
	"AVALANCHE": {
		chain: ChainInfo{ChainID: 43114, Decimals: 18, Symbol: "AVAX", Name: "Avalanche"},
		tokens: map[string]TokenInfo{
			"AVAX": {Decimals: 18, Symbol: "AVAX", Name: "Avalanche"},
			"USDC": {Decimals: 6, Symbol: "USDC", Name: "USD Coin", ContractAddress: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E"},
			"BRZ":  {Decimals: 18, Symbol: "BRZ", Name: "Brazilian Digital Token", ContractAddress: "0x05539F021b66Fd01d1FB1ff8E167CdD09bf7c2D0"},
		},
	},
}

// GetChainInfo returns the chain metadata for a network name.
//
// Parameters:
// - network: the network name, case-insensitive.
//
// Returns:
// - *ChainInfo: the chain metadata, nil if the network is unknown.
func GetChainInfo(network string) *ChainInfo {
	entry, ok := registry[strings.ToUpper(network)]
	if !ok {
		return nil
	}
	chain := entry.chain
	return &chain
}

// GetTokenInfo returns the token metadata for a (network, symbol) pair.
//
// Parameters:
// - network: the network name, case-insensitive.
// - symbol: the token symbol, case-insensitive.
//
// Returns:
// - *TokenInfo: the token metadata, nil if not listed.
func GetTokenInfo(network, symbol string) *TokenInfo {
	entry, ok := registry[strings.ToUpper(network)]
	if !ok {
		return nil
	}
	token, ok := entry.tokens[strings.ToUpper(symbol)]
	if !ok {
		return nil
	}
	return &token
}

// ChainID returns the chain id for a network name, 0 if unknown.
func ChainID(network string) int64 {
	chain := GetChainInfo(network)
	if chain == nil {
		return 0
	}
	return chain.ChainID
}

// NetworkName returns the network name for a chain id, "Unknown" if the
// chain is not supported.
func NetworkName(chainID int64) string {
	for _, entry := range registry {
		if entry.chain.ChainID == chainID {
			return entry.chain.Name
		}
	}
	return "Unknown"
}

// IsNative reports whether the token is the gas-paying asset of its
// network.
func IsNative(token types.Token) bool {
	chain := GetChainInfo(token.Network)
	return chain != nil && chain.Symbol == token.Symbol
}

// AllNetworks returns the names of all supported networks.
func AllNetworks() []string {
	networks := make([]string, 0, len(registry))
	for _, entry := range registry {
		networks = append(networks, entry.chain.Name)
	}
	return networks
}

// AllTokens returns every listed token across all networks with zero
// balance and price.
func AllTokens() []types.Token {
	tokens := make([]types.Token, 0)
	for _, entry := range registry {
		for _, info := range entry.tokens {
			tokens = append(tokens, types.Token{
				ID:      tokenID(info.Symbol, entry.chain.Name),
				Symbol:  info.Symbol,
				Name:    info.Name,
				Network: entry.chain.Name,
			})
		}
	}
	return tokens
}

// UniqueSymbols returns the deduplicated symbols of the given tokens,
// used to build price fetch requests.
func UniqueSymbols(tokens []types.Token) []string {
	seen := make(map[string]struct{})
	symbols := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token.Symbol]; ok {
			continue
		}
		seen[token.Symbol] = struct{}{}
		symbols = append(symbols, token.Symbol)
	}
	return symbols
}

// DefaultTokens returns the startup token pair: native ETH on Base as
// pay token and USDC on Base as receive token.
func DefaultTokens() (types.Token, types.Token) {
	pay := types.Token{
		ID:      tokenID("ETH", "Base"),
		Symbol:  "ETH",
		Name:    "Ethereum",
		Network: "Base",
	}
	receive := types.Token{
		ID:      tokenID("USDC", "Base"),
		Symbol:  "USDC",
		Name:    "USD Coin",
		Network: "Base",
	}
	return pay, receive
}

func tokenID(symbol, network string) string {
	return fmt.Sprintf("%s-%s", strings.ToLower(symbol), strings.ReplaceAll(strings.ToLower(network), " ", "-"))
}

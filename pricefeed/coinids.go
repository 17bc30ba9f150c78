package pricefeed

import "strings"

// coinIDMap maps token symbols to price oracle identifiers. Wrapped ETH
// intentionally maps to ethereum since it tracks the same price.
var coinIDMap = map[string]string{
	"ETH":      "ethereum",
	"BTC":      "bitcoin",
	"WBTC":     "wrapped-bitcoin",
	"USDC":     "usd-coin",
	"USDT":     "tether",
	"DAI":      "dai",
	"MATIC":    "matic-network",
	"AVAX":     "avalanche-2",
	"BNB":      "binancecoin",
	"ADA":      "cardano",
	"DOT":      "polkadot",
	"LINK":     "chainlink",
	"UNI":      "uniswap",
	"AAVE":     "aave",
	"COMP":     "compound-governance-token",
	"MKR":      "maker",
	"SNX":      "havven",
	"YFI":      "yearn-finance",
	"SUSHI":    "sushi",
	"WETH":     "ethereum",
	"ETHEREUM": "ethereum",
	"BITCOIN":  "bitcoin",
}

// oracleID resolves a symbol to its oracle identifier. Identifiers that
// already look like oracle ids pass through unchanged; unknown symbols
// pass through lower-cased as a best effort.
func oracleID(symbol string) string {
	if strings.Contains(symbol, "-") {
		return symbol
	}
	for _, id := range coinIDMap {
		if id == symbol {
			return symbol
		}
	}
	if id, ok := coinIDMap[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

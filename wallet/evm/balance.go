package evm

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	commonerrors "github.com/bentoswap/swap-lib/common/errors"
)

// zeroAddress marks a native-asset balance request.
const zeroAddress = "0x0000000000000000000000000000000000000000"

// balanceOfABI is the minimal ERC20 fragment needed for balance reads.
const balanceOfABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}]`

// GetTokenBalance gets the token balance of the signing account. For
// native balances use an empty string or the zero address as
// tokenAddress.
//
// Parameters:
// - ctx: the context for managing the request.
// - tokenAddress: the token contract address.
//
// Returns:
// - *big.Int: the balance in the token's smallest unit.
// - error: an error if the balance check fails.
func (w *Wallet) GetTokenBalance(ctx context.Context, tokenAddress string) (*big.Int, error) {
	w.clientMutex.RLock()
	client := w.client
	w.clientMutex.RUnlock()

	if client == nil {
		return nil, commonerrors.ErrNotConnected
	}

	if tokenAddress == "" || tokenAddress == zeroAddress {
		balance, err := client.BalanceAt(ctx, w.address, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get native token balance")
		}
		return balance, nil
	}

	tokenAbi, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token ABI")
	}

	data, err := tokenAbi.Pack("balanceOf", w.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack balanceOf data")
	}

	tokenAddr := common.HexToAddress(tokenAddress)
	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &tokenAddr,
		Data: data,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call balanceOf")
	}
	if len(result) == 0 {
		return nil, errors.New("empty result from balanceOf call")
	}

	return new(big.Int).SetBytes(result), nil
}

// TokenBalance returns the balance of the signing account in whole
// token units.
//
// Parameters:
// - ctx: the context for managing the request.
// - tokenAddress: the token contract address, empty for the native
//   asset.
// - decimals: the token's decimal places.
//
// Returns:
// - float64: the balance in whole token units.
// - error: an error if the balance check fails.
func (w *Wallet) TokenBalance(ctx context.Context, tokenAddress string, decimals int) (float64, error) {
	raw, err := w.GetTokenBalance(ctx, tokenAddress)
	if err != nil {
		return 0, err
	}

	balance, _ := decimal.NewFromBigInt(raw, -int32(decimals)).Float64()
	return balance, nil
}

// Package evm provides a go-ethereum backed implementation of the
// wallet capability interface the engine depends on.
package evm

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	commonerrors "github.com/bentoswap/swap-lib/common/errors"
	"github.com/bentoswap/swap-lib/common/types"
)

const (
	// receiptPollInterval is the spacing between receipt poll attempts.
	receiptPollInterval = 3 * time.Second
	// gasLimitHeadroom pads the gas estimate for the final gas limit.
	gasLimitHeadroom = 1.1

	// TxTypeLegacy represents the legacy transaction type.
	TxTypeLegacy = 0
	// TxTypeEIP1559 represents the EIP-1559 transaction type.
	TxTypeEIP1559 = 2
)

// Wallet is a private-key signer driving swap transactions through an
// RPC client. It implements types.Wallet.
type Wallet struct {
	logger    *logrus.Logger
	endpoints *Endpoints

	privateKey *ecdsa.PrivateKey
	address    common.Address

	clientMutex    sync.RWMutex
	client         *ethclient.Client
	currentChainID int64
	txType         int
}

// SetTxType selects the transaction type used for broadcasts,
// TxTypeLegacy by default.
func (w *Wallet) SetTxType(txType int) {
	w.clientMutex.Lock()
	w.txType = txType
	w.clientMutex.Unlock()
}

// NewWallet creates a wallet from a hex private key, connected to the
// endpoint registered for the initial chain.
//
// Parameters:
// - privateKeyHex: the hex-encoded signing key.
// - endpoints: the RPC endpoints registry.
// - chainID: the chain to connect to initially.
// - logger: the logger for logging events.
//
// Returns:
// - *Wallet: the connected wallet instance.
// - error: an error if the key is invalid or the endpoint unreachable.
func NewWallet(privateKeyHex string, endpoints *Endpoints, chainID int64, logger *logrus.Logger) (*Wallet, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}

	url := endpoints.Get(chainID)
	if url == "" {
		return nil, errors.Wrapf(commonerrors.ErrUnsupportedNetwork, "no RPC endpoint for chain %d", chainID)
	}

	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}

	return &Wallet{
		logger:         logger,
		endpoints:      endpoints,
		privateKey:     privateKey,
		address:        crypto.PubkeyToAddress(privateKey.PublicKey),
		client:         client,
		currentChainID: chainID,
	}, nil
}

// Close releases the RPC client.
func (w *Wallet) Close() {
	w.clientMutex.Lock()
	defer w.clientMutex.Unlock()

	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
}

// Address returns the signing account address.
func (w *Wallet) Address() string {
	return w.address.Hex()
}

// Connected reports whether the wallet has a live RPC client.
func (w *Wallet) Connected() bool {
	w.clientMutex.RLock()
	defer w.clientMutex.RUnlock()
	return w.client != nil
}

// CurrentChainID returns the chain the wallet is connected to.
func (w *Wallet) CurrentChainID() int64 {
	w.clientMutex.RLock()
	defer w.clientMutex.RUnlock()
	return w.currentChainID
}

// SwitchChain re-dials the endpoint registered for the target chain.
//
// Parameters:
// - ctx: the context for managing the request.
// - chainID: the target chain id.
//
// Returns:
// - error: an error if no endpoint is registered or dialing fails.
func (w *Wallet) SwitchChain(ctx context.Context, chainID int64) error {
	url := w.endpoints.Get(chainID)
	if url == "" {
		return errors.Wrapf(commonerrors.ErrUnsupportedNetwork, "no RPC endpoint for chain %d", chainID)
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to chain %d", chainID)
	}

	w.clientMutex.Lock()
	if w.client != nil {
		w.client.Close()
	}
	w.client = client
	w.currentChainID = chainID
	w.clientMutex.Unlock()

	w.logger.WithField("chainId", chainID).Info("Switched chain")
	return nil
}

// SendTransaction signs and broadcasts the transaction payload exactly
// as computed by the quote API. Gas parameters are the only fields
// supplied locally.
//
// Parameters:
// - ctx: the context for managing the request.
// - txReq: the exact transaction payload from the quote.
//
// Returns:
// - string: the hash of the broadcast transaction.
// - error: an error if the wallet is on the wrong chain or any RPC
//   call fails.
func (w *Wallet) SendTransaction(ctx context.Context, txReq *types.TransactionRequest) (string, error) {
	w.clientMutex.RLock()
	client := w.client
	currentChainID := w.currentChainID
	txType := w.txType
	w.clientMutex.RUnlock()

	if client == nil {
		return "", commonerrors.ErrNotConnected
	}
	if txReq.ChainID != currentChainID {
		return "", errors.Wrapf(commonerrors.ErrChainMismatch,
			"chain %d does not match the target chain %d", currentChainID, txReq.ChainID)
	}

	to := common.HexToAddress(txReq.To)

	value, err := parseValue(txReq.Value)
	if err != nil {
		return "", err
	}

	data, err := parseData(txReq.Data)
	if err != nil {
		return "", err
	}

	nonce, err := client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return "", errors.Wrap(err, "failed to get nonce")
	}

	tx, err := w.prepareTransaction(ctx, client, txType, nonce, to, value, data, txReq.ChainID)
	if err != nil {
		return "", err
	}

	chainID := big.NewInt(txReq.ChainID)
	auth, err := bind.NewKeyedTransactorWithChainID(w.privateKey, chainID)
	if err != nil {
		return "", errors.Wrap(err, "failed to create keyed transactor")
	}

	signedTx, err := auth.Signer(w.address, tx)
	if err != nil {
		w.logger.WithError(err).Error("Failed to sign transaction")
		return "", errors.Wrap(err, "failed to sign transaction")
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		w.logger.WithError(err).Error("Failed to send transaction")
		return "", errors.Wrap(err, "failed to send transaction")
	}

	return signedTx.Hash().Hex(), nil
}

// WaitForReceipt polls for the transaction receipt until it is mined
// or the context expires.
//
// Parameters:
// - ctx: the context for managing the wait.
// - txHash: the hash of the transaction to wait for.
//
// Returns:
// - bool: true if the transaction succeeded, false otherwise.
// - error: an error if receipt retrieval fails.
func (w *Wallet) WaitForReceipt(ctx context.Context, txHash string) (bool, error) {
	w.clientMutex.RLock()
	client := w.client
	w.clientMutex.RUnlock()

	if client == nil {
		return false, commonerrors.ErrNotConnected
	}

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	hash := common.HexToHash(txHash)

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()

		case <-ticker.C:
			receipt, err := client.TransactionReceipt(ctx, hash)
			if err != nil {
				if errors.Is(err, ethereum.NotFound) {
					continue
				}
				return false, errors.Wrap(err, "failed to get transaction receipt")
			}

			return receipt.Status == ethtypes.ReceiptStatusSuccessful, nil
		}
	}
}

// prepareTransaction builds the unsigned transaction with estimated gas
// and the fee fields for the selected transaction type.
func (w *Wallet) prepareTransaction(
	ctx context.Context,
	client *ethclient.Client,
	txType int,
	nonce uint64,
	to common.Address,
	value *big.Int,
	data []byte,
	chainID int64,
) (*ethtypes.Transaction, error) {
	estimatedGas, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to estimate gas")
	}
	gasLimit := uint64(float64(estimatedGas) * gasLimitHeadroom)

	if txType == TxTypeEIP1559 {
		maxFeePerGas, tip, err := w.eip1559GasPrice(ctx, client)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get EIP-1559 gas price")
		}

		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   big.NewInt(chainID),
			Nonce:     nonce,
			GasFeeCap: maxFeePerGas,
			GasTipCap: tip,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      data,
		}), nil
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gas price")
	}
	gasPrice = new(big.Int).Mul(gasPrice, big.NewInt(150))
	gasPrice = new(big.Int).Div(gasPrice, big.NewInt(100))

	return ethtypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, data), nil
}

// eip1559GasPrice computes the fee cap from the latest base fee with a
// 30% buffer plus the suggested tip.
func (w *Wallet) eip1559GasPrice(ctx context.Context, client *ethclient.Client) (*big.Int, *big.Int, error) {
	suggestedTip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		w.logger.WithError(err).Error("Failed to get suggested gas tip")
		suggestedTip = big.NewInt(1)
	}
	if suggestedTip.Sign() == 0 {
		suggestedTip = big.NewInt(1)
	}

	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get header by number")
	}
	if header.BaseFee == nil {
		return nil, nil, errors.New("base fee is nil")
	}

	baseFeeBuf := new(big.Int).Mul(header.BaseFee, big.NewInt(130))
	baseFeeBuf = baseFeeBuf.Div(baseFeeBuf, big.NewInt(100))
	maxFeePerGas := new(big.Int).Add(baseFeeBuf, suggestedTip)

	return maxFeePerGas, suggestedTip, nil
}

// parseValue accepts both decimal and 0x-prefixed hex value strings.
func parseValue(raw string) (*big.Int, error) {
	if raw == "" {
		return big.NewInt(0), nil
	}
	if strings.HasPrefix(raw, "0x") {
		value, err := hexutil.DecodeBig(raw)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse transaction value")
		}
		return value, nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.Errorf("invalid transaction value %q", raw)
	}
	return value, nil
}

// parseData decodes the 0x-prefixed call data from the quote.
func parseData(raw string) ([]byte, error) {
	if raw == "" || raw == "0x" {
		return nil, nil
	}
	data, err := hexutil.Decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse transaction data")
	}
	return data, nil
}

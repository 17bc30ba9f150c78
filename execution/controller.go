// Package execution submits a quote's transaction and tracks its send
// and confirmation lifecycle.
package execution

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	commonerrors "github.com/bentoswap/swap-lib/common/errors"
	"github.com/bentoswap/swap-lib/common/types"
)

// Controller drives a single swap execution at a time. Phases only move
// forward: idle, sending, pending, then confirmed or failed. Reset
// returns the controller to idle but cannot cancel a transaction that
// was already broadcast.
type Controller struct {
	logger *logrus.Logger
	wallet types.Wallet

	stateMutex sync.RWMutex
	epoch      uint64
	phase      types.ExecutionPhase
	txHash     string
	sendErr    error
	confirmErr error
}

// NewController creates an execution controller bound to a wallet.
//
// Parameters:
// - wallet: the signer capability interface.
// - logger: the logger for logging events.
//
// Returns:
// - *Controller: the new controller instance.
func NewController(wallet types.Wallet, logger *logrus.Logger) *Controller {
	return &Controller{
		logger: logger,
		wallet: wallet,
		phase:  types.PhaseIdle,
	}
}

// ExecuteSwap broadcasts the transaction payload from a quote and waits
// for its receipt. The payload fields are used exactly as computed by
// the quote API; recomputing any of them client-side would invalidate
// the server-signed route.
//
// Parameters:
// - ctx: the context for managing the request.
// - txReq: the exact transaction payload from the quote.
//
// Returns:
// - error: the classified execution error, nil on confirmation.
func (c *Controller) ExecuteSwap(ctx context.Context, txReq *types.TransactionRequest) error {
	if !c.wallet.Connected() {
		// Phase is deliberately left untouched: a missing signer is a
		// connect prompt, not an execution failure.
		return commonerrors.ErrNotConnected
	}

	c.stateMutex.Lock()
	if c.phase == types.PhaseSending || c.phase == types.PhasePending {
		c.stateMutex.Unlock()
		return commonerrors.ErrExecutionInFlight
	}
	c.epoch++
	epoch := c.epoch
	c.phase = types.PhaseSending
	c.txHash = ""
	c.sendErr = nil
	c.confirmErr = nil
	c.stateMutex.Unlock()

	txHash, err := c.wallet.SendTransaction(ctx, txReq)
	if err != nil {
		classified := ClassifyError(err)
		c.transition(epoch, types.PhaseFailed, "", classified, nil)
		c.logger.WithFields(logrus.Fields{
			"chainId": txReq.ChainID,
			"error":   classified,
		}).Error("Failed to broadcast swap transaction")
		return classified
	}

	c.transition(epoch, types.PhasePending, txHash, nil, nil)
	c.logger.WithFields(logrus.Fields{
		"txHash":  txHash,
		"chainId": txReq.ChainID,
	}).Info("Swap transaction broadcast")

	confirmed, err := c.wallet.WaitForReceipt(ctx, txHash)
	if err != nil {
		c.transition(epoch, types.PhaseFailed, txHash, nil, errors.Wrap(err, "failed to confirm transaction"))
		return err
	}
	if !confirmed {
		revertErr := errors.Errorf("transaction %s reverted", txHash)
		c.transition(epoch, types.PhaseFailed, txHash, nil, revertErr)
		return revertErr
	}

	c.transition(epoch, types.PhaseConfirmed, txHash, nil, nil)
	c.logger.WithField("txHash", txHash).Info("Swap transaction confirmed")
	return nil
}

// Reset clears the error and hash and returns the phase to idle. An
// already-broadcast transaction keeps confirming on chain regardless;
// its late result is discarded.
func (c *Controller) Reset() {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()

	c.epoch++
	c.phase = types.PhaseIdle
	c.txHash = ""
	c.sendErr = nil
	c.confirmErr = nil
}

// State returns a snapshot of the execution lifecycle.
func (c *Controller) State() types.ExecutionState {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()

	return types.ExecutionState{
		Phase:  c.phase,
		TxHash: c.txHash,
		Err:    c.combinedError(),
	}
}

// IsExecuting reports whether a broadcast is in flight.
func (c *Controller) IsExecuting() bool {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.phase == types.PhaseSending
}

// IsPending reports whether a confirmation is awaited.
func (c *Controller) IsPending() bool {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.phase == types.PhasePending
}

// IsSuccess reports whether the receipt confirmed success.
func (c *Controller) IsSuccess() bool {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.phase == types.PhaseConfirmed
}

// TxHash returns the broadcast transaction hash, empty if none.
func (c *Controller) TxHash() string {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.txHash
}

// Err returns the first non-nil of the send and confirmation errors.
func (c *Controller) Err() error {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.combinedError()
}

func (c *Controller) combinedError() error {
	if c.sendErr != nil {
		return c.sendErr
	}
	return c.confirmErr
}

// transition applies a state change only if no Reset happened since the
// execution started.
func (c *Controller) transition(epoch uint64, phase types.ExecutionPhase, txHash string, sendErr, confirmErr error) {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()

	if epoch != c.epoch {
		return
	}

	c.phase = phase
	if txHash != "" {
		c.txHash = txHash
	}
	if sendErr != nil {
		c.sendErr = sendErr
	}
	if confirmErr != nil {
		c.confirmErr = confirmErr
	}
}

// ClassifyError maps raw signer errors onto the engine error taxonomy:
// a user-declined signature, a wrong-chain signer, or a generic network
// failure.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	message := err.Error()
	switch {
	case strings.Contains(message, "User rejected") || strings.Contains(strings.ToLower(message), "user rejected"):
		return commonerrors.ErrUserRejected
	case strings.Contains(message, "does not match the target chain"):
		return commonerrors.ErrChainMismatch
	}
	return err
}

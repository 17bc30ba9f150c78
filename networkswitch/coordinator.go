// Package networkswitch reconciles the connected chain with the chain
// required by the trade's pay token.
package networkswitch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bentoswap/swap-lib/common/types"
	"github.com/bentoswap/swap-lib/config"
	"github.com/bentoswap/swap-lib/tokenregistry"
)

// Coordinator reacts to (connected, pay token network, current chain)
// changes. When the connected chain differs from the required one it
// requests a switch exactly once per mismatch episode after a settle
// delay. A user-rejected switch is not retried; the mismatch persists
// and is surfaced through notifications only.
type Coordinator struct {
	logger *logrus.Logger
	cfg    *config.Config
	wallet types.Wallet

	stateMutex   sync.Mutex
	isSwitching  bool
	requested    bool
	episodeChain int64
	settleTimer  *time.Timer
}

// NewCoordinator creates a network switch coordinator.
//
// Parameters:
// - cfg: the engine configuration.
// - wallet: the signer capability interface.
// - logger: the logger for logging events.
//
// Returns:
// - *Coordinator: the new coordinator instance.
func NewCoordinator(cfg *config.Config, wallet types.Wallet, logger *logrus.Logger) *Coordinator {
	return &Coordinator{
		logger: logger,
		cfg:    cfg,
		wallet: wallet,
	}
}

// OnChange reconciles the coordinator with the latest observed state.
// Call it whenever connection state, the pay token network or the
// connected chain changes.
//
// Parameters:
// - ctx: the context for an eventual switch request.
// - connected: whether a signer is available.
// - payNetwork: the network of the pay token.
// - currentChain: the chain id the wallet is connected to.
func (c *Coordinator) OnChange(ctx context.Context, connected bool, payNetwork string, currentChain int64) {
	requiredChain := tokenregistry.ChainID(payNetwork)
	if requiredChain == 0 {
		return
	}

	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()

	if !connected {
		c.cancelSettleTimerLocked()
		c.isSwitching = false
		c.requested = false
		c.episodeChain = 0
		return
	}

	if currentChain == requiredChain {
		// Mismatch episode resolved; the guard rearms for the next one.
		c.cancelSettleTimerLocked()
		c.isSwitching = false
		c.requested = false
		c.episodeChain = 0
		return
	}

	if c.requested && c.episodeChain == requiredChain {
		// One switch request per mismatch episode.
		return
	}

	c.cancelSettleTimerLocked()
	c.requested = true
	c.episodeChain = requiredChain

	c.logger.WithFields(logrus.Fields{
		"currentChain":  currentChain,
		"requiredChain": requiredChain,
		"network":       payNetwork,
	}).Info("Chain mismatch detected, scheduling switch")

	c.settleTimer = time.AfterFunc(c.cfg.NetworkSettleDelay, func() {
		c.requestSwitch(ctx, requiredChain)
	})
}

// IsSwitching reports whether a switch request is outstanding.
func (c *Coordinator) IsSwitching() bool {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	return c.isSwitching
}

// requestSwitch performs the actual switch request after the settle
// delay elapsed without the mismatch resolving itself.
func (c *Coordinator) requestSwitch(ctx context.Context, requiredChain int64) {
	c.stateMutex.Lock()
	if !c.requested || c.episodeChain != requiredChain {
		c.stateMutex.Unlock()
		return
	}
	c.isSwitching = true
	c.stateMutex.Unlock()

	err := c.wallet.SwitchChain(ctx, requiredChain)

	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()

	// The request is no longer outstanding either way. On rejection the
	// guard stays armed so the episode is not retried.
	c.isSwitching = false

	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"requiredChain": requiredChain,
			"error":         err,
		}).Warn("Chain switch request declined")
		return
	}

	c.logger.WithField("requiredChain", requiredChain).Info("Chain switch requested")
}

func (c *Coordinator) cancelSettleTimerLocked() {
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
}

// Package orchestrator owns the swap session state, debounces quote
// refetches on parameter change and composes the price feed, quote,
// execution and network-switch services.
package orchestrator

import (
	"context"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	commonerrors "github.com/bentoswap/swap-lib/common/errors"
	"github.com/bentoswap/swap-lib/common/types"
	"github.com/bentoswap/swap-lib/config"
	"github.com/bentoswap/swap-lib/execution"
	"github.com/bentoswap/swap-lib/networkswitch"
	"github.com/bentoswap/swap-lib/notification"
	"github.com/bentoswap/swap-lib/quote"
	"github.com/bentoswap/swap-lib/tokenregistry"
	"github.com/bentoswap/swap-lib/validation"
)

var (
	minAmountPattern = regexp.MustCompile(`Min amount: ([\d.]+)`)
	feeAmountPattern = regexp.MustCompile(`less than fee ([\d.]+)`)
)

// maxAmountFeeFactor discounts the optimistic max-amount preview the
// same way the authoritative quote discounts fees.
const maxAmountFeeFactor = 0.997

// Orchestrator is a single swap session. Any mutation of a re-quote
// trigger field (pay amount, either token, slippage, route priority,
// connection state) invalidates the current quote and restarts the
// debounce timer.
type Orchestrator struct {
	logger *logrus.Logger
	cfg    *config.Config

	prices  types.PriceConverter
	quotes  *quote.Service
	exec    *execution.Controller
	network *networkswitch.Coordinator
	wallet  types.Wallet

	stateMutex    sync.Mutex
	id            string
	payToken      types.Token
	receiveToken  types.Token
	payAmount     string
	receiveAmount string
	slippageBps   int
	routePriority string
	connected     bool
	debounceTimer *time.Timer
}

// newOrchestrator is invoked by the Builder once all collaborators are
// set. The session starts with the default Base token pair.
func newOrchestrator(
	cfg *config.Config,
	prices types.PriceConverter,
	quotes *quote.Service,
	exec *execution.Controller,
	network *networkswitch.Coordinator,
	wallet types.Wallet,
	logger *logrus.Logger,
) *Orchestrator {
	payToken, receiveToken := tokenregistry.DefaultTokens()

	return &Orchestrator{
		logger:        logger,
		cfg:           cfg,
		prices:        prices,
		quotes:        quotes,
		exec:          exec,
		network:       network,
		wallet:        wallet,
		id:            uuid.NewString(),
		payToken:      payToken,
		receiveToken:  receiveToken,
		payAmount:     "0.001",
		receiveAmount: "0",
		slippageBps:   100,
		routePriority: "best_return",
	}
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string {
	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()
	return o.id
}

// SetPayAmount updates the pay amount after sanitizing the input.
func (o *Orchestrator) SetPayAmount(amount string) {
	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()

	o.payAmount = validation.SanitizeAmount(amount)
	o.invalidateQuoteLocked()
}

// SetPayToken updates the token being sold and nudges the network
// coordinator, since the required chain follows the pay token.
func (o *Orchestrator) SetPayToken(token types.Token) {
	o.stateMutex.Lock()
	o.payToken = token
	o.invalidateQuoteLocked()
	o.stateMutex.Unlock()

	o.SyncNetwork(context.Background())
}

// SetReceiveToken updates the token being bought.
func (o *Orchestrator) SetReceiveToken(token types.Token) {
	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()

	o.receiveToken = token
	o.invalidateQuoteLocked()
}

// SetSlippageBps updates the slippage tolerance in basis points.
func (o *Orchestrator) SetSlippageBps(slippageBps int) {
	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()

	o.slippageBps = slippageBps
	o.invalidateQuoteLocked()
}

// SetRoutePriority updates the route selection mode.
func (o *Orchestrator) SetRoutePriority(routePriority string) {
	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()

	o.routePriority = routePriority
	o.invalidateQuoteLocked()
}

// SetConnected records the observed connection state.
func (o *Orchestrator) SetConnected(connected bool) {
	o.stateMutex.Lock()
	o.connected = connected
	o.invalidateQuoteLocked()
	o.stateMutex.Unlock()

	o.SyncNetwork(context.Background())
}

// SwapTokens atomically exchanges the token pair together with the
// amount pair. It does not force an immediate re-quote; the restarted
// debounce cycle picks the change up.
func (o *Orchestrator) SwapTokens() {
	o.stateMutex.Lock()
	o.payToken, o.receiveToken = o.receiveToken, o.payToken
	o.payAmount, o.receiveAmount = o.receiveAmount, o.payAmount
	o.invalidateQuoteLocked()
	o.stateMutex.Unlock()

	o.SyncNetwork(context.Background())
}

// MaxAmount sets the pay amount to the full pay token balance and
// immediately recomputes the receive amount from cached prices as a
// fast, non-authoritative preview. The debounced quote fetch stays the
// authoritative path.
func (o *Orchestrator) MaxAmount() {
	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()

	balance := o.payToken.Balance
	o.payAmount = strconv.FormatFloat(balance, 'f', -1, 64)

	converted := o.prices.Convert(o.payToken.Symbol, o.receiveToken.Symbol, balance)
	if converted > 0 {
		o.receiveAmount = strconv.FormatFloat(converted*maxAmountFeeFactor, 'f', 6, 64)
	} else {
		// Flat-rate preview when prices are not loaded yet.
		o.receiveAmount = strconv.FormatFloat(balance*0.99, 'f', 6, 64)
	}

	o.invalidateQuoteLocked()
}

// RefreshBalance re-reads the pay token balance from chain when the
// wallet supports balance reads, so MaxAmount works from live data.
// Wallets without the capability keep whatever balance the token
// carries.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the balance read fails.
func (o *Orchestrator) RefreshBalance(ctx context.Context) error {
	reader, ok := o.wallet.(types.BalanceReader)
	if !ok {
		return nil
	}

	o.stateMutex.Lock()
	payToken := o.payToken
	o.stateMutex.Unlock()

	info := tokenregistry.GetTokenInfo(payToken.Network, payToken.Symbol)
	if info == nil {
		return errors.Wrapf(commonerrors.ErrTokenMetadata, "%s on %s", payToken.Symbol, payToken.Network)
	}

	balance, err := reader.TokenBalance(ctx, info.ContractAddress, info.Decimals)
	if err != nil {
		return errors.Wrap(err, "failed to refresh pay token balance")
	}

	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()

	// The pay token may have changed while the read was in flight.
	if o.payToken.ID == payToken.ID {
		o.payToken.Balance = balance
	}
	return nil
}

// Execute submits the current quote's transaction payload. It fails
// with ErrNoQuote when no quote is applied.
//
// Parameters:
// - ctx: the context for managing the execution.
//
// Returns:
// - error: an error if no quote is available; execution errors are
//   reported through the execution state.
func (o *Orchestrator) Execute(ctx context.Context) error {
	currentQuote := o.quotes.Quote()
	if currentQuote == nil {
		return commonerrors.ErrNoQuote
	}

	txReq := currentQuote.TransactionRequest
	go func() {
		if err := o.exec.ExecuteSwap(ctx, &txReq); err != nil {
			o.logger.WithError(err).Warn("Swap execution failed")
		}
	}()

	return nil
}

// Reset clears the quote and the execution state and zeroes the
// receive amount. An already-broadcast transaction is unaffected.
func (o *Orchestrator) Reset() {
	o.quotes.ClearQuote()
	o.exec.Reset()

	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()
	o.receiveAmount = "0"
}

// SyncNetwork feeds the latest (connected, pay network, current chain)
// tuple to the network switch coordinator.
func (o *Orchestrator) SyncNetwork(ctx context.Context) {
	o.stateMutex.Lock()
	connected := o.connected
	payNetwork := o.payToken.Network
	o.stateMutex.Unlock()

	o.network.OnChange(ctx, connected, payNetwork, o.wallet.CurrentChainID())
}

// AmountLikelyTooLow applies the symbol-class thresholds to the current
// pay amount. The heuristic only drives a warning and never blocks a
// quote fetch or execution.
func (o *Orchestrator) AmountLikelyTooLow() bool {
	o.stateMutex.Lock()
	payAmount := o.payAmount
	symbol := o.payToken.Symbol
	o.stateMutex.Unlock()

	if !validation.IsValidAmount(payAmount) {
		return false
	}

	threshold, ok := o.cfg.LowAmountThresholds[symbol]
	if !ok {
		return false
	}

	amount := validation.ParseAmount(payAmount)
	return amount > 0 && amount < threshold
}

// ApplyAmountCorrection parses a numeric hint out of the current quote
// error and corrects the pay amount: "Min amount: X" sets it to X
// exactly, "less than fee X" sets it to the fee scaled by the safety
// multiplier. Both paths re-issue a quote fetch after the configured
// delay.
//
// Returns:
// - bool: true if a correction was applied.
func (o *Orchestrator) ApplyAmountCorrection() bool {
	quoteErr := o.quotes.Err()
	if quoteErr == nil {
		return false
	}
	message := quoteErr.Error()

	if match := minAmountPattern.FindStringSubmatch(message); match != nil {
		o.applyCorrectedAmount(match[1])
		return true
	}

	if match := feeAmountPattern.FindStringSubmatch(message); match != nil {
		fee, err := decimal.NewFromString(match[1])
		if err != nil {
			return false
		}
		multiplier := decimal.NewFromFloat(o.cfg.FeeSafetyMultiplier)
		o.applyCorrectedAmount(fee.Mul(multiplier).String())
		return true
	}

	return false
}

// applyCorrectedAmount sets the pay amount and schedules the follow-up
// quote fetch after the correction delay.
func (o *Orchestrator) applyCorrectedAmount(amount string) {
	o.stateMutex.Lock()
	o.payAmount = amount
	o.stateMutex.Unlock()

	o.logger.WithField("payAmount", amount).Info("Applied quote error amount correction")

	time.AfterFunc(o.cfg.CorrectionDelay, func() {
		o.fetchQuoteNow(context.Background())
	})
}

// invalidateQuoteLocked clears the current quote and restarts the
// debounce timer. Every trigger mutation funnels through here, so a
// pending timer is always cancelled before a new one is armed.
func (o *Orchestrator) invalidateQuoteLocked() {
	o.quotes.ClearQuote()

	if o.debounceTimer != nil {
		o.debounceTimer.Stop()
	}
	o.debounceTimer = time.AfterFunc(o.cfg.QuoteDebounce, func() {
		o.fetchQuoteNow(context.Background())
	})
}

// fetchQuoteNow issues the authoritative quote fetch for the current
// session parameters, then refreshes the receive amount from whichever
// quote is applied once the fetch settles.
func (o *Orchestrator) fetchQuoteNow(ctx context.Context) {
	o.stateMutex.Lock()
	payToken := o.payToken
	receiveToken := o.receiveToken
	payAmount := o.payAmount
	slippageBps := o.slippageBps
	routePriority := o.routePriority
	connected := o.connected
	o.stateMutex.Unlock()

	if !connected || !validation.IsValidAmount(payAmount) || validation.ParseAmount(payAmount) <= 0 {
		return
	}

	req, err := o.quotes.BuildRequest(payToken, receiveToken, payAmount, routePriority, slippageBps, o.wallet.Address())
	if err != nil {
		o.logger.WithError(err).Warn("Failed to build quote request")
		return
	}

	if err := o.quotes.FetchQuote(ctx, req); err != nil {
		o.logger.WithError(err).Warn("Quote fetch failed")
		return
	}

	if applied := o.quotes.Quote(); applied != nil {
		o.stateMutex.Lock()
		o.receiveAmount = validation.FormatAmount(applied.TokenAmountOut, 6)
		o.stateMutex.Unlock()
	}
}

// Snapshot assembles the state union the notification deriver consumes.
func (o *Orchestrator) Snapshot() notification.Snapshot {
	o.stateMutex.Lock()
	payToken := o.payToken
	receiveToken := o.receiveToken
	payAmount := o.payAmount
	receiveAmount := o.receiveAmount
	connected := o.connected
	o.stateMutex.Unlock()

	execState := o.exec.State()

	return notification.Snapshot{
		Connected:          connected,
		CurrentChainID:     o.wallet.CurrentChainID(),
		PayToken:           payToken,
		ReceiveToken:       receiveToken,
		PayAmount:          payAmount,
		ReceiveAmount:      receiveAmount,
		QuoteErr:           o.quotes.Err(),
		ExecutionErr:       execState.Err,
		IsSuccess:          execState.Phase == types.PhaseConfirmed,
		TxHash:             execState.TxHash,
		IsNetworkSwitching: o.network.IsSwitching(),
		AmountLikelyTooLow: o.AmountLikelyTooLow(),
	}
}

// Notifications derives the current notification list.
func (o *Orchestrator) Notifications() []types.Notification {
	return notification.Derive(o.Snapshot())
}

// PayToken returns the token being sold.
func (o *Orchestrator) PayToken() types.Token {
	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()
	return o.payToken
}

// ReceiveToken returns the token being bought.
func (o *Orchestrator) ReceiveToken() types.Token {
	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()
	return o.receiveToken
}

// PayAmount returns the current pay amount.
func (o *Orchestrator) PayAmount() string {
	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()
	return o.payAmount
}

// ReceiveAmount returns the current receive amount.
func (o *Orchestrator) ReceiveAmount() string {
	o.stateMutex.Lock()
	defer o.stateMutex.Unlock()
	return o.receiveAmount
}

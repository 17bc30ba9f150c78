package orchestrator

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bentoswap/swap-lib/common/types"
	"github.com/bentoswap/swap-lib/config"
	"github.com/bentoswap/swap-lib/execution"
	"github.com/bentoswap/swap-lib/networkswitch"
	"github.com/bentoswap/swap-lib/quote"
)

// Builder is a builder pattern implementation for session assembly. It
// allows setting the collaborators of the orchestrator: the price
// converter, the quote service, the execution controller and the
// network switch coordinator.
type Builder struct {
	cfg     *config.Config
	logger  *logrus.Logger
	prices  types.PriceConverter
	quotes  *quote.Service
	exec    *execution.Controller
	network *networkswitch.Coordinator
	wallet  types.Wallet
}

// NewBuilder creates a new session builder.
//
// Parameters:
// - cfg: the engine configuration.
// - logger: the logger for logging events.
//
// Returns:
// - *Builder: a new Builder instance.
func NewBuilder(cfg *config.Config, logger *logrus.Logger) *Builder {
	return &Builder{
		cfg:    cfg,
		logger: logger,
	}
}

// WithPriceConverter sets the price converter implementation.
func (b *Builder) WithPriceConverter(prices types.PriceConverter) *Builder {
	b.prices = prices
	return b
}

// WithQuoteService sets the quote service.
func (b *Builder) WithQuoteService(quotes *quote.Service) *Builder {
	b.quotes = quotes
	return b
}

// WithExecutionController sets the execution controller.
func (b *Builder) WithExecutionController(exec *execution.Controller) *Builder {
	b.exec = exec
	return b
}

// WithNetworkCoordinator sets the network switch coordinator.
func (b *Builder) WithNetworkCoordinator(network *networkswitch.Coordinator) *Builder {
	b.network = network
	return b
}

// WithWallet sets the wallet capability interface.
func (b *Builder) WithWallet(wallet types.Wallet) *Builder {
	b.wallet = wallet
	return b
}

// Build creates a new swap session with the configured collaborators.
// Missing collaborators that have no safe default are an error.
//
// Returns:
// - *Orchestrator: the new session instance.
// - error: an error if a required collaborator is missing.
func (b *Builder) Build() (*Orchestrator, error) {
	if b.wallet == nil {
		return nil, errors.New("wallet not provided")
	}
	if b.prices == nil {
		return nil, errors.New("price converter not provided")
	}

	if b.quotes == nil {
		b.quotes = quote.NewService(b.cfg, b.logger)
	}
	if b.exec == nil {
		b.exec = execution.NewController(b.wallet, b.logger)
	}
	if b.network == nil {
		b.network = networkswitch.NewCoordinator(b.cfg, b.wallet, b.logger)
	}

	return newOrchestrator(b.cfg, b.prices, b.quotes, b.exec, b.network, b.wallet, b.logger), nil
}

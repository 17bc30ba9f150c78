// Package quote builds provider-specific quote requests and manages the
// single-flight quote fetch lifecycle.
package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	commonerrors "github.com/bentoswap/swap-lib/common/errors"
	"github.com/bentoswap/swap-lib/common/types"
	"github.com/bentoswap/swap-lib/config"
	"github.com/bentoswap/swap-lib/tokenregistry"
)

// Service fetches swap quotes. Multiple fetches may be outstanding at
// once; only the result of the most recently issued request is ever
// applied to visible state ("last request wins"). Superseded responses
// are discarded silently.
type Service struct {
	logger *logrus.Logger
	cfg    *config.Config

	httpClient *http.Client

	stateMutex sync.RWMutex
	latestSeq  uint64
	inFlight   uint64
	quote      *types.Quote
	err        error
}

// NewService creates a new quote service.
//
// Parameters:
// - cfg: the engine configuration.
// - logger: the logger for logging events.
//
// Returns:
// - *Service: the new quote service instance.
func NewService(cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		logger:     logger,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// BuildRequest classifies the token pair by nativity and assembles the
// quote request shape the API expects.
//
// Parameters:
// - payToken: the token being sold.
// - receiveToken: the token being bought.
// - amount: the pay amount as a decimal string.
// - routePriority: the route selection mode, empty to omit.
// - slippageBps: the slippage tolerance in basis points, 0 to omit.
// - trader: the connected account address.
//
// Returns:
// - *types.QuoteRequest: the assembled request.
// - error: an error if a network is unsupported or token metadata is
//   missing.
func (s *Service) BuildRequest(
	payToken, receiveToken types.Token,
	amount, routePriority string,
	slippageBps int,
	trader string,
) (*types.QuoteRequest, error) {
	fromChainID := tokenregistry.ChainID(payToken.Network)
	toChainID := tokenregistry.ChainID(receiveToken.Network)
	if fromChainID == 0 || toChainID == 0 {
		return nil, commonerrors.ErrUnsupportedNetwork
	}

	req := &types.QuoteRequest{
		FromChainID: fromChainID,
		ToChainID:   toChainID,
		Amount:      amount,
		From:        trader,
		To:          trader,
		SelectMode:  routePriority,
		Slippage:    slippageBps,
	}

	payNative := tokenregistry.IsNative(payToken)
	receiveNative := tokenregistry.IsNative(receiveToken)

	switch {
	case payNative && receiveNative:
		req.UseNativeTokenIn = true
		req.UseNativeTokenOut = true

	case payNative:
		req.UseNativeTokenIn = true
		out, err := customToken(receiveToken, toChainID)
		if err != nil {
			return nil, err
		}
		req.CustomTokenOut = out

	case receiveNative:
		req.UseNativeTokenOut = true
		in, err := customToken(payToken, fromChainID)
		if err != nil {
			return nil, err
		}
		req.CustomTokenIn = in

	default:
		// Legacy shape for two non-native tokens.
		if tokenregistry.GetTokenInfo(payToken.Network, payToken.Symbol) == nil {
			return nil, errors.Wrapf(commonerrors.ErrTokenMetadata, "%s on %s", payToken.Symbol, payToken.Network)
		}
		req.TokenIn = payToken.Symbol
		out, err := customToken(receiveToken, toChainID)
		if err != nil {
			return nil, err
		}
		req.CustomTokenOut = out
	}

	return req, nil
}

// FetchQuote issues a quote request. Each call increments the service
// sequence number; the response is applied to visible state only if it
// is still the latest issued request by the time it resolves.
//
// Parameters:
// - ctx: the context for managing the request.
// - req: the quote request to send.
//
// Returns:
// - error: the classified fetch error, nil on success or when the
//   response was superseded.
func (s *Service) FetchQuote(ctx context.Context, req *types.QuoteRequest) error {
	s.stateMutex.Lock()
	s.latestSeq++
	seq := s.latestSeq
	s.inFlight++
	s.err = nil
	s.stateMutex.Unlock()

	quote, err := s.doFetch(ctx, req)

	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	s.inFlight--

	if seq != s.latestSeq {
		// Superseded by a newer request; the result is discarded
		// without touching visible state.
		s.logger.WithFields(logrus.Fields{
			"seq":    seq,
			"latest": s.latestSeq,
		}).Debug("Discarding stale quote response")
		return nil
	}

	if err != nil {
		s.err = err
		return err
	}

	s.quote = quote
	return nil
}

// Quote returns the currently applied quote, nil if none.
func (s *Service) Quote() *types.Quote {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.quote
}

// Err returns the error of the latest applied fetch, nil if none.
func (s *Service) Err() error {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.err
}

// IsLoading reports whether any fetch is still outstanding.
func (s *Service) IsLoading() bool {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.inFlight > 0
}

// ClearQuote clears the applied quote and error.
func (s *Service) ClearQuote() {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	s.quote = nil
	s.err = nil
}

// doFetch performs the HTTP call and classifies failures: 401 maps to
// an auth error, 404 to an endpoint error, any other non-2xx surfaces
// the server-supplied error message verbatim when present.
func (s *Service) doFetch(ctx context.Context, req *types.QuoteRequest) (*types.Quote, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode quote request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.QuoteBaseURL+"/api/quote", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create quote request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.cfg.QuoteAPIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.cfg.QuoteAPIKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch quote")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read quote response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, commonerrors.ErrAuthFailed
		case http.StatusNotFound:
			return nil, commonerrors.ErrEndpointNotFound
		}

		var apiErr struct {
			Error string `json:"error"`
		}
		if unmarshalErr := json.Unmarshal(respBody, &apiErr); unmarshalErr == nil && apiErr.Error != "" {
			return nil, errors.New(apiErr.Error)
		}
		return nil, errors.Errorf("quote API returned status %d", resp.StatusCode)
	}

	var quote types.Quote
	if err := json.Unmarshal(respBody, &quote); err != nil {
		return nil, errors.Wrap(err, "failed to decode quote response")
	}

	return &quote, nil
}

// customToken resolves the on-chain coordinates required for a
// non-native token side of the request.
func customToken(token types.Token, chainID int64) (*types.CustomToken, error) {
	info := tokenregistry.GetTokenInfo(token.Network, token.Symbol)
	if info == nil {
		return nil, errors.Wrapf(commonerrors.ErrTokenMetadata, "%s on %s", token.Symbol, token.Network)
	}
	return &types.CustomToken{
		Address:  info.ContractAddress,
		Symbol:   info.Symbol,
		Decimals: info.Decimals,
		ChainID:  chainID,
	}, nil
}

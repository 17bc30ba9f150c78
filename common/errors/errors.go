package errors

import "github.com/pkg/errors"

var (
	ErrUnsupportedNetwork = errors.New("unsupported network")
	ErrTokenMetadata      = errors.New("token metadata not found")
	ErrNotConnected       = errors.New("wallet not connected")
	ErrNoQuote            = errors.New("no quote available")
	ErrExecutionInFlight  = errors.New("swap execution already in progress")
	ErrAuthFailed         = errors.New("API authentication failed, check your API key")
	ErrEndpointNotFound   = errors.New("API endpoint not found, check the API URL")
	ErrRateLimited        = errors.New("rate limit exceeded, please wait before making more requests")
	ErrUserRejected       = errors.New("User rejected the transaction")
	ErrChainMismatch      = errors.New("connected chain does not match the target chain")
)

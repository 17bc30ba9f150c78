// Package notification derives the ordered, deduplicated list of
// user-facing status notifications from a swap session snapshot.
package notification

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	commonerrors "github.com/bentoswap/swap-lib/common/errors"
	"github.com/bentoswap/swap-lib/common/types"
	"github.com/bentoswap/swap-lib/tokenregistry"
)

// Snapshot is the union of session, quote, execution and network-switch
// state a notification list is derived from.
type Snapshot struct {
	Connected      bool
	CurrentChainID int64

	PayToken      types.Token
	ReceiveToken  types.Token
	PayAmount     string
	ReceiveAmount string

	QuoteErr     error
	ExecutionErr error
	IsSuccess    bool
	TxHash       string

	IsNetworkSwitching bool
	AmountLikelyTooLow bool
}

// Priorities of the notification categories. Lower values are shown
// first; each category appears at most once per derived list.
const (
	PriorityNotConnected     = 1
	PriorityNetworkSwitching = 2
	PriorityLowAmount        = 3
	PriorityQuoteError       = 4
	PriorityExecutionError   = 5
	PrioritySuccess          = 6
)

// Derive is a pure function mapping a snapshot to its notification
// list, sorted by ascending priority. Categories not triggered by the
// snapshot are absent.
func Derive(snapshot Snapshot) []types.Notification {
	notifications := make([]types.Notification, 0, 3)

	if !snapshot.Connected {
		notifications = append(notifications, types.Notification{
			ID:          "wallet-not-connected",
			Type:        types.NotificationInfo,
			Title:       "Wallet not connected",
			Description: "Connect your wallet to start swapping tokens",
			Priority:    PriorityNotConnected,
		})
	}

	if snapshot.Connected && snapshot.IsNetworkSwitching {
		currentNetwork := tokenregistry.NetworkName(snapshot.CurrentChainID)
		notifications = append(notifications, types.Notification{
			ID:   "network-switching",
			Type: types.NotificationLoading,
			Title: fmt.Sprintf(
				"Switching network from %s to %s...",
				currentNetwork, snapshot.PayToken.Network,
			),
			Description: "Approve the network switch in your wallet.",
			Priority:    PriorityNetworkSwitching,
		})
	}

	if snapshot.Connected && snapshot.QuoteErr == nil && snapshot.AmountLikelyTooLow {
		notifications = append(notifications, types.Notification{
			ID:          "low-amount-warning",
			Type:        types.NotificationWarning,
			Title:       "Amount may be too low",
			Description: "This amount may be below the minimum required for the swap. Consider increasing it.",
			Priority:    PriorityLowAmount,
		})
	}

	if snapshot.QuoteErr != nil {
		notifications = append(notifications, quoteErrorNotification(snapshot.QuoteErr))
	}

	if snapshot.ExecutionErr != nil {
		notifications = append(notifications, executionErrorNotification(snapshot.ExecutionErr))
	}

	if snapshot.IsSuccess && snapshot.TxHash != "" {
		notifications = append(notifications, types.Notification{
			ID:    "swap-success",
			Type:  types.NotificationSuccess,
			Title: "Swap completed successfully!",
			Description: fmt.Sprintf(
				"%s %s → %s %s",
				snapshot.PayAmount, snapshot.PayToken.Symbol,
				snapshot.ReceiveAmount, snapshot.ReceiveToken.Symbol,
			),
			Priority: PrioritySuccess,
		})
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].Priority < notifications[j].Priority
	})

	return notifications
}

// quoteErrorNotification sub-types a quote error and attaches a
// correction action when a numeric hint is parseable from the message.
func quoteErrorNotification(quoteErr error) types.Notification {
	message := quoteErr.Error()

	title := "Quote error"
	if strings.Contains(message, "Amount is too low") {
		title = "Amount too low"
	} else if strings.Contains(message, "less than fee") {
		title = "Amount below fee"
	}

	var actions []types.NotificationAction
	switch {
	case strings.Contains(message, "less than fee"):
		actions = []types.NotificationAction{{
			Label: "Use Safe Amount",
			Kind:  types.ActionApplySafeAmount,
		}}
	case strings.Contains(message, "Min amount"):
		actions = []types.NotificationAction{{
			Label: "Use Minimum Amount",
			Kind:  types.ActionApplyMinAmount,
		}}
	}

	return types.Notification{
		ID:          "quote-error",
		Type:        types.NotificationError,
		Title:       title,
		Description: message,
		Actions:     actions,
		Priority:    PriorityQuoteError,
	}
}

// executionErrorNotification sub-types an execution error: a wrong
// chain surfaces as a transient warning, a user rejection as a friendly
// cancellation, anything else as a failure.
func executionErrorNotification(executionErr error) types.Notification {
	if errors.Is(executionErr, commonerrors.ErrChainMismatch) ||
		strings.Contains(executionErr.Error(), "does not match the target chain") {
		return types.Notification{
			ID:          "execution-error-network",
			Type:        types.NotificationWarning,
			Title:       "Network mismatch",
			Description: "Your wallet is connected to the wrong network. The network switch will happen automatically.",
			Priority:    PriorityExecutionError,
		}
	}

	if errors.Is(executionErr, commonerrors.ErrUserRejected) ||
		strings.Contains(strings.ToLower(executionErr.Error()), "user rejected") {
		return types.Notification{
			ID:          "execution-error",
			Type:        types.NotificationError,
			Title:       "Transaction cancelled",
			Description: "You cancelled the transaction. No funds were transferred.",
			Priority:    PriorityExecutionError,
		}
	}

	return types.Notification{
		ID:          "execution-error",
		Type:        types.NotificationError,
		Title:       "Transaction failed",
		Description: executionErr.Error(),
		Priority:    PriorityExecutionError,
	}
}

package types

// NotificationType classifies the visual severity of a notification.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
	NotificationSuccess NotificationType = "success"
	NotificationLoading NotificationType = "loading"
)

// ActionKind identifies the correction a notification action applies.
type ActionKind string

const (
	// ActionApplyMinAmount sets the pay amount to the minimum parsed
	// from a "Min amount: X" quote error.
	ActionApplyMinAmount ActionKind = "apply_min_amount"
	// ActionApplySafeAmount sets the pay amount to twice the fee parsed
	// from a "less than fee X" quote error.
	ActionApplySafeAmount ActionKind = "apply_safe_amount"
)

// NotificationAction is a user-invokable correction attached to a
// notification.
type NotificationAction struct {
	Label string
	Kind  ActionKind
}

// Notification is a single user-facing status entry derived from the
// swap session state.
//
// Fields:
// - ID: the stable identifier of the notification category.
// - Type: the visual severity of the notification.
// - Title: the short headline.
// - Description: the longer explanation, if any.
// - Actions: the corrections the user may apply, if any.
// - Priority: the ordering rank, unique within a derived list.
type Notification struct {
	ID          string
	Type        NotificationType
	Title       string
	Description string
	Actions     []NotificationAction
	Priority    int
}

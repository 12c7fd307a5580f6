// Package audit keeps an append-only trail of what the reconciliation
// told the remote platform: identities minted, notices served,
// preferences submitted. The trail is what an operator consults when a
// user disputes what was recorded about them.
package audit

import (
	"time"

	"assent/pkg/domain"
)

// Category classifies audit events by their primary purpose. This
// enables different retention policies and routing.
type Category string

const (
	// CategoryCompliance covers events with legal significance: the
	// consent trail itself. These need long retention.
	CategoryCompliance Category = "compliance"

	// CategoryOperations covers events useful for debugging and
	// operational visibility. Shorter retention, may be sampled.
	CategoryOperations Category = "operations"
)

// Action names one auditable step of the reconciliation.
type Action string

const (
	ActionDeviceIdentityCreated Action = "device_identity_created"
	ActionNoticeServed          Action = "notice_served"
	ActionPreferenceSubmitted   Action = "preference_submitted"
	ActionPreferenceRejected    Action = "preference_rejected"
	ActionReconciliationHalted  Action = "reconciliation_halted"
)

var actionCategories = map[Action]Category{
	// The consent trail proper.
	ActionDeviceIdentityCreated: CategoryCompliance,
	ActionNoticeServed:          CategoryCompliance,
	ActionPreferenceSubmitted:   CategoryCompliance,

	// Failures and halts matter for operations, not for the legal record.
	ActionPreferenceRejected:   CategoryOperations,
	ActionReconciliationHalted: CategoryOperations,
}

// Category returns the category of this action. Unknown actions default
// to operations.
func (a Action) Category() Category {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from the reconciliation machine. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  Category
	Timestamp time.Time
	DeviceID  domain.DeviceID
	Action    Action
	// Region is the catalog region the platform was queried with ("us");
	// Geography is the normalized location tag ("en_us"), kept for
	// diagnostics.
	Region          string
	Geography       string
	NoticeKey       string
	NoticeHistoryID string
	ServedRef       string
	Preference      string
	// Reason carries the halt or rejection cause for failure events.
	Reason    string
	RequestID string
}

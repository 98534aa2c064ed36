package models

// ActionType identifies the side effect dispatched when a branch's guarding
// conditions are satisfied. Execution is delegated to registered handlers;
// the model carries only the specification.
type ActionType string

const (
	ActionFreezeOrder          ActionType = "FREEZE_ORDER"
	ActionRejectTransaction    ActionType = "REJECT_TRANSACTION"
	ActionRequestDocument      ActionType = "REQUEST_DOCUMENT"
	ActionRequireApproval      ActionType = "REQUIRE_APPROVAL"
	ActionSendNotification     ActionType = "SEND_NOTIFICATION"
	ActionFlagForReview        ActionType = "FLAG_FOR_REVIEW"
	ActionAutoApprove          ActionType = "AUTO_APPROVE"
	ActionEscalateToCompliance ActionType = "ESCALATE_TO_COMPLIANCE"
)

// ActionTypes lists every built-in action type.
var ActionTypes = []ActionType{
	ActionFreezeOrder,
	ActionRejectTransaction,
	ActionRequestDocument,
	ActionRequireApproval,
	ActionSendNotification,
	ActionFlagForReview,
	ActionAutoApprove,
	ActionEscalateToCompliance,
}

// IsValid reports whether the action type is one of the built-in types.
func (a ActionType) IsValid() bool {
	for _, t := range ActionTypes {
		if t == a {
			return true
		}
	}

	return false
}

// Action is a stateless action specification: what to do and with which
// configuration. The config keys are handler-specific.
type Action struct {
	Type   ActionType     `json:"type" validate:"required"`
	Config map[string]any `json:"config,omitempty"`
}

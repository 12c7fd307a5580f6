package overlay

import (
	"assent/internal/reconcile"
	"assent/pkg/domain"
)

// noticePayload is the subset of the catalog notice the form renders.
type noticePayload struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// flowResponse answers a flow open. Halted flows return the same shape with
// the fields of unreached steps zeroed, so the form can degrade instead of
// erroring.
type flowResponse struct {
	SessionID  string         `json:"session_id"`
	State      string         `json:"state"`
	Notice     *noticePayload `json:"notice"`
	CanSubmit  bool           `json:"can_submit"`
	GPCApplied bool           `json:"gpc_applied"`
}

func newFlowResponse(flowID domain.FlowID, snap reconcile.Snapshot) flowResponse {
	resp := flowResponse{
		SessionID:  flowID.String(),
		State:      snap.State.String(),
		CanSubmit:  snap.CanSubmit,
		GPCApplied: snap.GPCApplied,
	}
	if snap.HasNotice {
		resp.Notice = &noticePayload{
			Key:         snap.Notice.NoticeKey,
			Name:        snap.Notice.Name,
			Description: snap.Notice.Description,
		}
	}
	return resp
}

// submitPreferenceRequest carries the visitor's decision. Consent is a
// pointer so a body that omits the field is rejected rather than read as an
// opt-out.
type submitPreferenceRequest struct {
	Consent *bool `json:"consent"`
}

// submitPreferenceResponse echoes the reconciled decision.
type submitPreferenceResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Consent   bool   `json:"consent"`
	Method    string `json:"method"`
}

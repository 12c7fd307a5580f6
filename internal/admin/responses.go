package admin

import (
	"time"

	"assent/internal/audit"
)

// eventPayload is the wire form of one audit event. The internal event
// type carries no JSON tags on purpose; the admin API owns its shape.
type eventPayload struct {
	Category        string    `json:"category"`
	Timestamp       time.Time `json:"timestamp"`
	DeviceID        string    `json:"device_id,omitempty"`
	Action          string    `json:"action"`
	Region          string    `json:"region,omitempty"`
	Geography       string    `json:"geography,omitempty"`
	NoticeKey       string    `json:"notice_key,omitempty"`
	NoticeHistoryID string    `json:"notice_history_id,omitempty"`
	ServedRef       string    `json:"served_ref,omitempty"`
	Preference      string    `json:"preference,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
}

type listResponse struct {
	Items []eventPayload `json:"items"`
	Count int            `json:"count"`
}

func newListResponse(events []audit.Event) listResponse {
	items := make([]eventPayload, 0, len(events))
	for _, ev := range events {
		p := eventPayload{
			Category:        string(ev.Category),
			Timestamp:       ev.Timestamp,
			Action:          string(ev.Action),
			Region:          ev.Region,
			Geography:       ev.Geography,
			NoticeKey:       ev.NoticeKey,
			NoticeHistoryID: ev.NoticeHistoryID,
			ServedRef:       ev.ServedRef,
			Preference:      ev.Preference,
			Reason:          ev.Reason,
			RequestID:       ev.RequestID,
		}
		// Halts before identity resolution carry no device.
		if !ev.DeviceID.IsZero() {
			p.DeviceID = ev.DeviceID.String()
		}
		items = append(items, p)
	}
	return listResponse{Items: items, Count: len(items)}
}

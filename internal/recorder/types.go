package recorder

import "assent/pkg/domain"

// Preference values accepted by the platform.
const (
	PreferenceOptIn  = "opt_in"
	PreferenceOptOut = "opt_out"
)

// ServedEvent identifies one notice presentation to record.
type ServedEvent struct {
	DeviceID        domain.DeviceID
	ExperienceID    string
	NoticeHistoryID string
	UserGeography   string
}

// Submission is one preference write. ServedRef must reference the
// served record of the same flow; the platform links the preference to
// that presentation.
type Submission struct {
	DeviceID        domain.DeviceID
	ExperienceID    string
	NoticeHistoryID string
	ServedRef       string
	OptIn           bool
	UserGeography   string
	Method          domain.ConsentMethod
}

// Preference returns the wire value for the submission's decision.
func (s Submission) Preference() string {
	if s.OptIn {
		return PreferenceOptIn
	}
	return PreferenceOptOut
}

type browserIdentity struct {
	FidesUserDeviceID string `json:"fides_user_device_id"`
}

type servedRequest struct {
	AcknowledgeMode         bool            `json:"acknowledge_mode"`
	BrowserIdentity         browserIdentity `json:"browser_identity"`
	PrivacyExperienceID     string          `json:"privacy_experience_id"`
	PrivacyNoticeHistoryIDs []string        `json:"privacy_notice_history_ids"`
	ServingComponent        string          `json:"serving_component"`
	UserGeography           string          `json:"user_geography"`
}

type servedRecord struct {
	ServedNoticeHistoryID string `json:"served_notice_history_id"`
}

type preferenceEntry struct {
	PrivacyNoticeHistoryID string `json:"privacy_notice_history_id"`
	Preference             string `json:"preference"`
	ServedNoticeHistoryID  string `json:"served_notice_history_id"`
}

type preferenceRequest struct {
	BrowserIdentity     browserIdentity   `json:"browser_identity"`
	Preferences         []preferenceEntry `json:"preferences"`
	PrivacyExperienceID string            `json:"privacy_experience_id"`
	UserGeography       string            `json:"user_geography"`
	Method              string            `json:"method"`
}

package catalog

import "strings"

// Experience is one entry of the platform's notice catalog: the set of
// privacy notices configured for a region.
type Experience struct {
	ID             string   `json:"id"`
	Region         string   `json:"region"`
	PrivacyNotices []Notice `json:"privacy_notices"`
}

// Notice describes a single privacy notice inside an experience. The
// history id, not the notice id, is what served and preference records
// reference.
type Notice struct {
	ID               string `json:"id"`
	NoticeKey        string `json:"notice_key"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	HistoryID        string `json:"privacy_notice_history_id"`
	Disabled         bool   `json:"disabled"`
	ConsentMechanism string `json:"consent_mechanism"`
}

type experiencePage struct {
	Items []Experience `json:"items"`
}

// noticeKeySuffix marks the notice this flow is interested in. Keys are
// operator-configured; the suffix convention decouples the flow from
// exact key spellings.
const noticeKeySuffix = "signup"

// SelectNotice picks the notice the flow should surface: the first one,
// in document order, whose key ends with the reserved suffix. The false
// return means the experience carries no applicable notice, which is a
// legitimate outcome rather than an error.
func SelectNotice(exp *Experience) (Notice, bool) {
	if exp == nil {
		return Notice{}, false
	}
	for _, n := range exp.PrivacyNotices {
		if strings.HasSuffix(n.NoticeKey, noticeKeySuffix) {
			return n, true
		}
	}
	return Notice{}, false
}

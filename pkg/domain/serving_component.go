package domain

import dErrors "assent/pkg/domain-errors"

// ServingComponent identifies which surface presented notices to the user.
// It is reported verbatim to the consent platform on served and preference
// calls.
type ServingComponent string

// Known serving surfaces. This service always serves through the overlay;
// the other values exist so recorded payloads from other surfaces still
// parse on the way back out of the audit trail.
const (
	ServingComponentOverlay ServingComponent = "overlay"
	ServingComponentBanner  ServingComponent = "banner"
	ServingComponentModal   ServingComponent = "modal"
	ServingComponentAPI     ServingComponent = "api"
)

var validServingComponents = map[ServingComponent]bool{
	ServingComponentOverlay: true,
	ServingComponentBanner:  true,
	ServingComponentModal:   true,
	ServingComponentAPI:     true,
}

// ParseServingComponent constructs a ServingComponent from external input.
func ParseServingComponent(s string) (ServingComponent, error) {
	c := ServingComponent(s)
	if !validServingComponents[c] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unsupported serving component: %q", s)
	}
	return c, nil
}

// String returns the wire representation of the component.
func (c ServingComponent) String() string {
	return string(c)
}

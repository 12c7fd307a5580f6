package geolocation

import "strings"

// Region is the resolved location of the device running the flow.
type Region struct {
	// Geography is the normalized location tag: lowercased with "-"
	// replaced by "_" ("en-US" becomes "en_us"). Carried on audit
	// events and snapshots for diagnostics.
	Geography string
	// Country is the country code exactly as the lookup returned it.
	Country string
}

// CatalogRegion returns the region code used for experience catalog
// queries and in recorder payloads: the lowercased country ("US" -> "us").
func (r Region) CatalogRegion() string {
	return strings.ToLower(r.Country)
}

func normalizeGeography(location string) string {
	return strings.ReplaceAll(strings.ToLower(location), "-", "_")
}

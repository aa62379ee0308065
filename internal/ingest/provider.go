package ingest

import "strings"

// providerKeywords maps file-head markers to a display name, checked in a
// fixed order so overlapping markers resolve the same way every run.
var providerKeywords = []struct {
	marker string
	name   string
}{
	{"bluedart", "BlueDart"},
	{"blue dart", "BlueDart"},
	{"delhivery", "Delhivery"},
	{"dtdc", "DTDC"},
	{"ekart", "Ekart"},
	{"shadowfax", "Shadowfax"},
	{"xpressbees", "XpressBees"},
	{"ecom express", "Ecom Express"},
	{"fedex", "FedEx"},
	{"dhl", "DHL"},
}

// DetectProvider scans the head of a raw file for a known carrier marker.
func DetectProvider(head string) string {
	if len(head) > 2000 {
		head = head[:2000]
	}
	lowered := strings.ToLower(head)
	for _, p := range providerKeywords {
		if strings.Contains(lowered, p.marker) {
			return p.name
		}
	}
	return "Unknown"
}

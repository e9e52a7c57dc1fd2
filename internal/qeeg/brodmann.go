// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package qeeg

import "strings"

// brodmannMap associates 10-20 electrode sites with the Brodmann areas
// they overlie.
var brodmannMap = map[string][]string{
	"Fp1": {"BA10", "BA11"},
	"Fp2": {"BA10", "BA11"},
	"F3":  {"BA6", "BA8"},
	"F4":  {"BA6", "BA8"},
	"C3":  {"BA1", "BA2", "BA3", "BA4"},
	"C4":  {"BA1", "BA2", "BA3", "BA4"},
	"O1":  {"BA17", "BA18"},
	"O2":  {"BA17", "BA18"},
}

// BrodmannAreas returns the Brodmann areas associated with a channel label,
// or nil when the site has no mapping. Labels are matched case-insensitively
// and common reference suffixes (e.g. "F3-A1", "F3-REF") are stripped.
func BrodmannAreas(channel string) []string {
	site := CanonicalSite(channel)
	for k, v := range brodmannMap {
		if strings.EqualFold(k, site) {
			out := make([]string, len(v))
			copy(out, v)
			return out
		}
	}
	return nil
}

// CanonicalSite normalizes a channel label to its bare 10-20 site name:
// "EEG F3-A1" becomes "F3".
func CanonicalSite(channel string) string {
	s := strings.TrimSpace(channel)
	s = strings.TrimPrefix(s, "EEG ")
	if i := strings.IndexAny(s, "- "); i > 0 {
		s = s[:i]
	}
	return s
}

// HomologousPairs returns the left-right channel pairs present in labels,
// in a stable order (e.g. Fp1-Fp2, F3-F4). A pair is homologous when the
// site names differ only in their trailing odd/even digit.
func HomologousPairs(labels []string) [][2]string {
	bySite := make(map[string]string, len(labels))
	for _, l := range labels {
		bySite[CanonicalSite(l)] = l
	}

	var pairs [][2]string
	for _, l := range labels {
		site := CanonicalSite(l)
		if len(site) < 2 {
			continue
		}
		last := site[len(site)-1]
		// Odd-numbered sites are on the left; the homologue is the next
		// even number.
		if last < '1' || last > '9' || (last-'0')%2 == 0 {
			continue
		}
		mate := site[:len(site)-1] + string(last+1)
		if other, ok := bySite[mate]; ok {
			pairs = append(pairs, [2]string{l, other})
		}
	}
	return pairs
}

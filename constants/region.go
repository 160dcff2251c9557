package constants

import (
	"strings"
)

// Region is a two-letter UF code (Brazilian federative unit).
type Region string

const (
	RO Region = "RO"
	AC Region = "AC"
	AM Region = "AM"
	RR Region = "RR"
	PA Region = "PA"
	AP Region = "AP"
	TO Region = "TO"
	MA Region = "MA"
	PI Region = "PI"
	CE Region = "CE"
	RN Region = "RN"
	PB Region = "PB"
	PE Region = "PE"
	AL Region = "AL"
	SE Region = "SE"
	BA Region = "BA"
	MG Region = "MG"
	ES Region = "ES"
	RJ Region = "RJ"
	SP Region = "SP"
	PR Region = "PR"
	SC Region = "SC"
	RS Region = "RS"
	MS Region = "MS"
	MT Region = "MT"
	GO Region = "GO"
	DF Region = "DF"
)

// DefaultRegion is the region the filters and the computed ICMS column are anchored on.
const DefaultRegion = MG

// ICMSRates holds the interstate ICMS rate applied per UF.
var ICMSRates = map[Region]float64{
	RO: 0.07, AC: 0.07, AM: 0.07, RR: 0.07, PA: 0.07,
	AP: 0.07, TO: 0.07, MA: 0.07, PI: 0.07, CE: 0.07,
	RN: 0.07, PB: 0.07, PE: 0.07, AL: 0.07, SE: 0.07,
	BA: 0.07, MG: 0.18, ES: 0.07, RJ: 0.12, SP: 0.12,
	PR: 0.12, SC: 0.12, RS: 0.12, MS: 0.07, MT: 0.07,
	GO: 0.07, DF: 0.07,
}

// Canonicalize maps a user-entered label to a known Region.
func Canonicalize(label string) (Region, bool) {
	r := Region(strings.ToUpper(strings.TrimSpace(label)))
	if _, ok := ICMSRates[r]; ok {
		return r, true
	}
	return "", false
}

// Rate returns the ICMS rate for a region, or 0 when unknown.
func Rate(r Region) float64 {
	return ICMSRates[r]
}

var allRegions = []Region{
	RO, AC, AM, RR, PA, AP, TO, MA, PI, CE, RN, PB, PE, AL,
	SE, BA, MG, ES, RJ, SP, PR, SC, RS, MS, MT, GO, DF,
}

// RegionsAsStringSlice lists every known UF code in declaration order.
func RegionsAsStringSlice() []string {
	result := make([]string, len(allRegions))
	for i, r := range allRegions {
		result[i] = string(r)
	}
	return result
}

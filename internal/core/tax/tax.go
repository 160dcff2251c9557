package tax

import (
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

// ComputeICMS returns the ICMS owed to the anchor region for one row: service
// value times the anchor region's rate, rounded to cents, when the issuer is out of
// region and the service starts inside it. Anything else, including an unparsable
// service value, yields 0.
func ComputeICMS(row entity.Record, anchor constants.Region) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(row[constants.FieldServiceValue]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	issuer := row[constants.FieldIssuerRegion]
	origin := row[constants.FieldOriginRegion]
	if issuer != string(anchor) && origin == string(anchor) {
		return math.Round(v*constants.Rate(anchor)*100) / 100
	}
	return 0
}

// Apply adds the computed ICMS column to t when the service value, issuer region
// and origin region columns are present. It reports whether the column was added.
func Apply(t *entity.Table, anchor constants.Region) bool {
	if anchor == "" {
		anchor = constants.DefaultRegion
	}
	for _, c := range []string{constants.FieldServiceValue, constants.FieldIssuerRegion, constants.FieldOriginRegion} {
		if !t.HasColumn(c) {
			return false
		}
	}
	t.AddColumn(constants.FieldComputedICMS)
	for _, row := range t.Rows {
		row[constants.FieldComputedICMS] = strconv.FormatFloat(ComputeICMS(row, anchor), 'f', 2, 64)
	}
	return true
}

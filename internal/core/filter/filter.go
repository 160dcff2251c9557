package filter

import (
	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

// Options selects the row filters applied after extraction.
type Options struct {
	// ExcludeIssuerRegion drops rows whose issuer region equals Region.
	ExcludeIssuerRegion bool
	// OriginRegionOnly keeps only rows whose origin region equals Region.
	OriginRegionOnly bool
	// Region defaults to constants.DefaultRegion.
	Region constants.Region
}

func (o Options) region() string {
	if o.Region == "" {
		return string(constants.DefaultRegion)
	}
	return string(o.Region)
}

// Apply returns a new table with the selected filters applied in document order.
// A filter whose column is absent from the table is skipped.
func Apply(t *entity.Table, opts Options) *entity.Table {
	out := entity.NewTable(t.Columns)
	region := opts.region()
	excludeIssuer := opts.ExcludeIssuerRegion && t.HasColumn(constants.FieldIssuerRegion)
	originOnly := opts.OriginRegionOnly && t.HasColumn(constants.FieldOriginRegion)

	for _, row := range t.Rows {
		if excludeIssuer && row[constants.FieldIssuerRegion] == region {
			continue
		}
		if originOnly && row[constants.FieldOriginRegion] != region {
			continue
		}
		out.Append(row)
	}
	return out
}

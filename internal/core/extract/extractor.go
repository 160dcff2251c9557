package extract

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/core/fields"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

// Extractor maps a parsed document to a flat record. It holds only the static
// lookup table and its compiled paths, so one Extractor serves every document and
// goroutine.
type Extractor struct {
	table    *fields.Table
	resolver *Resolver
	logger   *slog.Logger
}

// NewExtractor compiles every path of table. A path that does not compile is a
// configuration error.
func NewExtractor(table *fields.Table, logger *slog.Logger) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if table == nil {
		return nil, common.NewAppError(common.CodeConfig, "lookup table is required", common.ErrConfig)
	}
	var paths []string
	for _, f := range table.Fields() {
		paths = append(paths, f.Rule.AllPaths()...)
	}
	r := NewResolver(table.Namespaces(), paths...)
	if err := r.Err(); err != nil {
		return nil, common.NewAppError(common.CodeConfig, "invalid lookup path", fmt.Errorf("%w: %v", common.ErrConfig, err))
	}
	return &Extractor{table: table, resolver: r, logger: logger}, nil
}

// Table returns the lookup table the extractor was built from.
func (e *Extractor) Table() *fields.Table {
	return e.table
}

type resolution struct {
	value string
	path  *string
	fault error
}

// Extract resolves every field of sel against doc. The record always holds exactly
// the selected names. When debug is set the trace mirrors every decision, with
// ok true exactly when the value is not the sentinel.
func (e *Extractor) Extract(doc *Document, sel fields.Selection, debug bool) (entity.Record, entity.Trace) {
	record := make(entity.Record, sel.Len())
	var trace entity.Trace
	if debug {
		trace = make(entity.Trace, sel.Len())
	}

	for _, f := range sel.Fields() {
		res := e.resolve(doc, f)
		record[f.Name] = res.value
		if res.fault != nil {
			e.logger.Warn("extract.field.fault", "document", doc.Name, "field", f.Name, "err", res.fault)
		}
		if debug {
			entry := entity.TraceEntry{
				Path:  res.path,
				Value: res.value,
				OK:    res.value != constants.NotFound,
			}
			if res.fault != nil {
				entry.Fault = res.fault.Error()
			}
			trace[f.Name] = entry
		}
	}
	return record, trace
}

func (e *Extractor) resolve(doc *Document, f fields.Field) resolution {
	switch f.Rule.Kind {
	case fields.KindDerived:
		return resolution{value: f.Rule.Derive(fields.Meta{Name: doc.Name})}

	case fields.KindSingle:
		path := f.Rule.Paths[0]
		res := e.resolver.Resolve(doc, path)
		return resolution{value: res.String(), path: &path, fault: res.Fault}

	case fields.KindFallback:
		res, path := e.resolver.ResolveFirst(doc, f.Rule.Paths)
		out := resolution{value: res.String(), fault: res.Fault}
		if res.Found() {
			out.path = &path
		}
		return out

	case fields.KindTagged:
		res, loc := e.resolver.ResolveTagged(doc, f.Rule.Locations)
		out := resolution{value: res.String(), fault: res.Fault}
		if loc != nil {
			path := loc.Path
			out.path = &path
		}
		return out

	default:
		return resolution{value: constants.NotFound}
	}
}

package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/core/extract"
	"github.com/joseph-ayodele/cte-extractor/internal/core/fields"
	"github.com/joseph-ayodele/cte-extractor/internal/core/filter"
	"github.com/joseph-ayodele/cte-extractor/internal/core/tax"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

// Source is one uploaded document: its display name and raw bytes.
type Source struct {
	Name string
	Data []byte
	// ContentHash is the hex SHA-256 of Data; filled in by the processor when empty.
	ContentHash string
}

// NewSource builds a Source and computes its content hash.
func NewSource(name string, data []byte) Source {
	sum := sha256.Sum256(data)
	return Source{Name: name, Data: data, ContentHash: hex.EncodeToString(sum[:])}
}

// Request carries the caller's choices for one batch.
type Request struct {
	// Fields to extract; empty means every field of the lookup table.
	Fields     []string
	Debug      bool
	Filters    filter.Options
	ComputeTax bool
	// Origin labels the batch in run history (directory, "http", ...).
	Origin string
}

// BatchResult is everything a batch produced, in upload order.
type BatchResult struct {
	RunID    uuid.UUID
	Fields   []string
	Outcomes []entity.Outcome
	// Table holds one row per parsed document, after filters and the optional tax column.
	Table  *entity.Table
	Debug  *entity.DebugTable
	Errors []entity.ErrorRecord
}

// Succeeded counts documents that produced a record (before filtering).
func (r *BatchResult) Succeeded() int {
	return len(r.Outcomes) - len(r.Errors)
}

// OutcomeStore persists run history. Implemented by repository.RunRepository.
type OutcomeStore interface {
	CreateRun(ctx context.Context, origin string) (uuid.UUID, error)
	SaveOutcome(ctx context.Context, runID uuid.UUID, o entity.Outcome) error
	FinishRun(ctx context.Context, runID uuid.UUID, stats entity.RunStats, status constants.RunStatus) error
}

// Processor is the batch collector: it runs the extractor over every document,
// isolating per-document failures, and assembles the result, debug and error tables.
type Processor struct {
	logger    *slog.Logger
	extractor *extract.Extractor
	store     OutcomeStore
	workers   int
}

type Option func(*Processor)

// WithWorkers bounds concurrent document processing; 1 keeps it sequential.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithStore records every batch in run history.
func WithStore(s OutcomeStore) Option {
	return func(p *Processor) {
		p.store = s
	}
}

func NewProcessor(extractor *extract.Extractor, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:    logger,
		extractor: extractor,
		workers:   1,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Table returns the lookup table behind the processor's extractor.
func (p *Processor) Table() *fields.Table {
	return p.extractor.Table()
}

// Select validates the requested field names; empty selects every field.
func (p *Processor) Select(names []string) (fields.Selection, error) {
	if len(names) == 0 {
		return p.Table().SelectAll(), nil
	}
	return p.Table().Select(names)
}

// ProcessDocument parses and extracts one source. It never fails: a document that
// cannot be parsed, or that panics during extraction, comes back as a failed Outcome.
func (p *Processor) ProcessDocument(ctx context.Context, src Source, sel fields.Selection, debug bool) (out entity.Outcome) {
	logger := common.LoggerFromContext(ctx, p.logger)
	if src.ContentHash == "" {
		src = NewSource(src.Name, src.Data)
	}
	out = entity.Outcome{Name: src.Name, ContentHash: src.ContentHash}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("processor.document.panic", "document", src.Name, "panic", r)
			out = failed(out, fmt.Errorf("%w: %v", common.ErrInternal, r), debug)
		}
	}()

	doc, err := extract.ParseDocument(bytes.NewReader(src.Data), src.Name)
	if err != nil {
		logger.Warn("processor.document.failed", "document", src.Name, "err", err)
		return failed(out, err, debug)
	}

	out.Record, out.Trace = p.extractor.Extract(doc, sel, debug)
	logger.Debug("processor.document.ok", "document", src.Name, "fields", sel.Len())
	return out
}

func failed(out entity.Outcome, err error, debug bool) entity.Outcome {
	out.Err = err.Error()
	out.Record = nil
	out.Trace = nil
	if debug {
		out.Trace = entity.Trace{constants.GeneralErrorField: {Value: out.Err}}
	}
	return out
}

// ProcessBatch processes docs in upload order and assembles the batch tables.
// An unknown field name fails the whole request before any document is read.
// Document failures never fail the batch; they are reported in Errors.
func (p *Processor) ProcessBatch(ctx context.Context, docs []Source, req Request) (*BatchResult, error) {
	start := time.Now()
	sel, err := p.Select(req.Fields)
	if err != nil {
		return nil, common.NewAppError(common.CodeValidation, "field selection", err)
	}

	runID, tracked := p.beginRun(ctx, req.Origin)
	logger := common.LoggerFromContext(ctx, p.logger).With("run_id", runID.String())
	ctx = common.WithLogger(ctx, logger)

	outcomes := make([]entity.Outcome, len(docs))
	if p.workers <= 1 {
		for i, src := range docs {
			if err := ctx.Err(); err != nil {
				p.endRun(ctx, tracked, runID, outcomes[:i], constants.RunStatusFailed)
				return nil, err
			}
			outcomes[i] = p.ProcessDocument(ctx, src, sel, req.Debug)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for i, src := range docs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcomes[i] = p.ProcessDocument(gctx, src, sel, req.Debug)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			p.endRun(ctx, tracked, runID, nil, constants.RunStatusFailed)
			return nil, err
		}
	}

	res := assemble(sel.Names(), outcomes, req)
	res.RunID = runID
	if tracked {
		p.saveOutcomes(ctx, runID, outcomes)
	}
	p.endRun(ctx, tracked, runID, outcomes, constants.RunStatusFinished)

	logger.Info("processor.batch.ok",
		"documents", len(docs),
		"succeeded", res.Succeeded(),
		"failed", len(res.Errors),
		"rows", res.Table.Len(),
		"workers", p.workers,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Assemble builds the batch tables from already-processed outcomes, e.g. outcomes
// read back from run history.
func Assemble(fieldNames []string, outcomes []entity.Outcome, req Request) *BatchResult {
	return assemble(fieldNames, outcomes, req)
}

func assemble(fieldNames []string, outcomes []entity.Outcome, req Request) *BatchResult {
	res := &BatchResult{
		Fields:   fieldNames,
		Outcomes: outcomes,
		Errors:   []entity.ErrorRecord{},
	}
	table := entity.NewTable(fieldNames)
	for i := range outcomes {
		outcomes[i].Seq = i
		if outcomes[i].Failed() {
			res.Errors = append(res.Errors, outcomes[i].ErrorRecord())
			continue
		}
		// Tax writes into table rows; outcomes keep the selected fields only.
		table.Append(maps.Clone(outcomes[i].Record))
	}
	if req.Debug {
		res.Debug = entity.NewDebugTable(fieldNames, outcomes)
	}
	table = filter.Apply(table, req.Filters)
	if req.ComputeTax {
		tax.Apply(table, req.Filters.Region)
	}
	res.Table = table
	return res
}

// beginRun opens a run in history; tracked is false when there is no store or the
// run could not be created, and the batch then proceeds untracked.
func (p *Processor) beginRun(ctx context.Context, origin string) (id uuid.UUID, tracked bool) {
	if p.store == nil {
		return uuid.New(), false
	}
	id, err := p.store.CreateRun(ctx, origin)
	if err != nil {
		p.logger.Error("processor.run.create_failed", "origin", origin, "err", err)
		return uuid.New(), false
	}
	return id, true
}

func (p *Processor) saveOutcomes(ctx context.Context, runID uuid.UUID, outcomes []entity.Outcome) {
	for _, o := range outcomes {
		if err := p.store.SaveOutcome(ctx, runID, o); err != nil {
			p.logger.Error("processor.run.save_failed", "run_id", runID, "document", o.Name, "err", err)
		}
	}
}

func (p *Processor) endRun(ctx context.Context, tracked bool, runID uuid.UUID, outcomes []entity.Outcome, status constants.RunStatus) {
	if !tracked {
		return
	}
	// A cancelled batch still closes its run.
	ctx = context.WithoutCancel(ctx)
	stats := entity.RunStats{Documents: len(outcomes)}
	for _, o := range outcomes {
		if o.Failed() {
			stats.Failed++
		} else {
			stats.Succeeded++
		}
	}
	if err := p.store.FinishRun(ctx, runID, stats, status); err != nil {
		p.logger.Error("processor.run.finish_failed", "run_id", runID, "err", err)
	}
}

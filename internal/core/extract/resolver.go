package extract

import (
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/core/fields"
)

// Status tells found values apart from missing ones and from lookup faults.
type Status int

const (
	StatusMissing Status = iota
	StatusFound
	StatusFault
)

// Result is the outcome of resolving one path.
type Result struct {
	Text   string
	Status Status
	Fault  error
}

var missing = Result{Status: StatusMissing}

// Found reports whether a node matched.
func (r Result) Found() bool {
	return r.Status == StatusFound
}

// String is the externally visible value: the node text, or the sentinel for both
// missing and faulted lookups.
func (r Result) String() string {
	if r.Status == StatusFound {
		return r.Text
	}
	return constants.NotFound
}

type compiledPath struct {
	raw  string
	expr *xpath.Expr
	err  error
}

// Resolver evaluates namespace-qualified paths against documents. Paths known at
// construction are compiled once; the resolver is read-only afterwards and safe
// for concurrent use.
type Resolver struct {
	namespaces map[string]string
	compiled   map[string]*compiledPath
}

// NewResolver compiles paths with the namespace binding. Compile failures are kept
// and reported as faults on every lookup of that path; Err lists them.
func NewResolver(namespaces map[string]string, paths ...string) *Resolver {
	r := &Resolver{
		namespaces: namespaces,
		compiled:   make(map[string]*compiledPath, len(paths)),
	}
	for _, p := range paths {
		if _, ok := r.compiled[p]; ok {
			continue
		}
		r.compiled[p] = r.compile(p)
	}
	return r
}

func (r *Resolver) compile(path string) *compiledPath {
	expr, err := xpath.CompileWithNS(path, r.namespaces)
	if err != nil {
		return &compiledPath{raw: path, err: fmt.Errorf("compile %q: %w", path, err)}
	}
	return &compiledPath{raw: path, expr: expr}
}

// Err returns the first compile error among the construction-time paths.
func (r *Resolver) Err() error {
	for _, cp := range r.compiled {
		if cp.err != nil {
			return cp.err
		}
	}
	return nil
}

// Resolve returns the text of the first node matching path. It never panics: a
// failing query becomes a StatusFault result.
func (r *Resolver) Resolve(doc *Document, path string) Result {
	cp, ok := r.compiled[path]
	if !ok {
		cp = r.compile(path)
	}
	if cp.err != nil {
		return Result{Status: StatusFault, Fault: cp.err}
	}
	return query(doc, cp)
}

func query(doc *Document, cp *compiledPath) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Status: StatusFault, Fault: fmt.Errorf("query %q: %v", cp.raw, p)}
		}
	}()
	if doc == nil || doc.root == nil {
		return missing
	}
	n := xmlquery.QuerySelector(doc.root, cp.expr)
	if n == nil {
		return missing
	}
	return Result{Text: n.InnerText(), Status: StatusFound}
}

// ResolveFirst tries paths in order and returns the first found result with the
// path that produced it. Later paths are not evaluated. When nothing is found the
// path is "" and the result carries the first fault seen, if any.
func (r *Resolver) ResolveFirst(doc *Document, paths []string) (Result, string) {
	var fault error
	for _, p := range paths {
		res := r.Resolve(doc, p)
		if res.Found() {
			return res, p
		}
		if res.Status == StatusFault && fault == nil {
			fault = res.Fault
		}
	}
	if fault != nil {
		return Result{Status: StatusFault, Fault: fault}, ""
	}
	return missing, ""
}

// ResolveTagged tries locations in priority order; a found value is returned as
// "<value> - <tag>" together with the matching location.
func (r *Resolver) ResolveTagged(doc *Document, locs []fields.Location) (Result, *fields.Location) {
	var fault error
	for i := range locs {
		res := r.Resolve(doc, locs[i].Path)
		if res.Found() {
			res.Text = fmt.Sprintf("%s - %s", res.Text, locs[i].Tag)
			return res, &locs[i]
		}
		if res.Status == StatusFault && fault == nil {
			fault = res.Fault
		}
	}
	if fault != nil {
		return Result{Status: StatusFault, Fault: fault}, nil
	}
	return missing, nil
}

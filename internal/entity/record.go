package entity

import (
	"github.com/joseph-ayodele/cte-extractor/constants"
)

// Record maps field name to the extracted value (or constants.NotFound) for one document.
type Record map[string]string

// TraceEntry records how one field of one document was resolved.
type TraceEntry struct {
	// Path is the lookup path that produced Value; nil for derived and absent fields
	// and when no path matched.
	Path  *string `json:"xpath"`
	Value string  `json:"valor"`
	OK    bool    `json:"ok"`
	// Fault carries a lookup-mechanism failure; Value is the sentinel in that case.
	Fault string `json:"fault,omitempty"`
}

// PathOrEmpty returns the path string or "" when none was used.
func (e TraceEntry) PathOrEmpty() string {
	if e.Path == nil {
		return ""
	}
	return *e.Path
}

// Trace maps field name to its TraceEntry; same key domain as the matching Record.
type Trace map[string]TraceEntry

// ErrorRecord is the batch-level report of a document that could not be parsed.
type ErrorRecord struct {
	Document string `json:"arquivo"`
	Error    string `json:"erro"`
}

// Outcome is the result of processing one source document.
type Outcome struct {
	Seq         int    `json:"seq"`
	Name        string `json:"name"`
	ContentHash string `json:"content_hash,omitempty"`
	Record      Record `json:"record,omitempty"`
	Trace       Trace  `json:"trace,omitempty"`
	Err         string `json:"error,omitempty"`
}

// Failed reports whether the document was rejected before extraction.
func (o Outcome) Failed() bool {
	return o.Err != ""
}

// Status maps the outcome to its stored status.
func (o Outcome) Status() constants.DocumentStatus {
	if o.Failed() {
		return constants.DocumentStatusFailed
	}
	return constants.DocumentStatusOK
}

// ErrorRecord returns the error-table row for a failed outcome.
func (o Outcome) ErrorRecord() ErrorRecord {
	return ErrorRecord{Document: o.Name, Error: o.Err}
}

package constants

// DocumentStatus is the canonical outcome for one processed document.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusOK     DocumentStatus = "OK"     // parsed and extracted
	DocumentStatusFailed DocumentStatus = "FAILED" // document-fatal error
)

// RunStatus is the lifecycle status of a batch run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
)

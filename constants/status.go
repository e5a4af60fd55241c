package constants

// JobStatus is the canonical status for rows in extract_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning  JobStatus = "RUNNING"  // in progress
	JobStatusOK       JobStatus = "OK"       // value recovered
	JobStatusDegraded JobStatus = "DEGRADED" // finished, nothing usable recovered
	JobStatusFailed   JobStatus = "FAILED"   // unexpected error (panic, I/O)
)

// JobKind distinguishes the two extraction pipelines sharing the audit log.
type JobKind string

const (
	JobKindRegatta JobKind = "REGATTA"
	JobKindInvoice JobKind = "INVOICE"
)

package model

import "time"

// ImportKind distinguishes the sheet profiles the engine accepts.
type ImportKind string

const (
	ImportKindRiders  ImportKind = "riders"
	ImportKindWallets ImportKind = "wallets"
)

// PersistedErrorCap bounds how many row errors an import run keeps
// when its summary is written to history.
const PersistedErrorCap = 50

// ImportError is one failed row. Append-only within a run.
type ImportError struct {
	Row        int               `json:"row"`
	Identifier string            `json:"identifier"`
	Reason     string            `json:"reason"`
	RawData    map[string]string `json:"raw_data,omitempty"`
}

// ImportSummary aggregates one run's per-row outcomes. Every row
// lands in exactly one of Success or Failed; Unassigned counts rows
// that imported without a resolvable owner.
type ImportSummary struct {
	Total      int           `json:"total"`
	Success    int           `json:"success"`
	Failed     int           `json:"failed"`
	Unassigned int           `json:"unassigned"`
	Errors     []ImportError `json:"errors,omitempty"`
}

// Capped returns a copy of the summary with the error list truncated
// to at most n entries. Counts are left untouched.
func (s ImportSummary) Capped(n int) ImportSummary {
	if n < 0 || len(s.Errors) <= n {
		return s
	}
	capped := s
	capped.Errors = make([]ImportError, n)
	copy(capped.Errors, s.Errors[:n])
	return capped
}

// ImportRun is the history record for one pipeline invocation.
type ImportRun struct {
	ID         string        `json:"id"`
	Kind       ImportKind    `json:"kind"`
	Source     string        `json:"source"`
	Summary    ImportSummary `json:"summary"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

package ports

import (
	"context"
	"time"

	"execdoc/internal/data/journal"
)

// Interpreter is the driving port used by every transport and the CLI.
type Interpreter interface {
	Manifest() Manifest
	Compile(ctx context.Context, node any) (any, error)
	Execute(ctx context.Context, node any, parameters map[string]any) (any, error)
	Health(ctx context.Context) HealthStatus
}

// JournalStore abstracts persistence of execution metadata.
type JournalStore interface {
	Record(entry journal.Entry) (journal.Entry, error)
	Recent(limit int) ([]journal.Entry, error)
	Close() error
}

// Manifest advertises what an interpreter can do and how to reach it.
type Manifest struct {
	Version      int                `json:"version"`
	Capabilities Capabilities       `json:"capabilities"`
	Addresses    map[string]Address `json:"addresses"`
}

// Capabilities maps method names to the JSON schema their params must
// satisfy. Manifest is always available.
type Capabilities struct {
	Manifest bool `json:"manifest"`
	Compile  any  `json:"compile,omitempty"`
	Execute  any  `json:"execute,omitempty"`
}

type Address struct {
	Type    string   `json:"type"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	URL     string   `json:"url,omitempty"`
}

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Session    string            `json:"session"`
	Components map[string]string `json:"components"`
}

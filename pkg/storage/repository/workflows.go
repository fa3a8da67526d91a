package repository

import (
	"context"
	"encoding/json"
	"time"
)

// Workflow is the persisted form of a node-graph workflow.
type Workflow struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Nodes     []json.RawMessage `json:"nodes"`
	Edges     []json.RawMessage `json:"edges"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// WorkflowSummary is the listing view, without the graph payload.
type WorkflowSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowRepository defines the interface for workflow persistence.
type WorkflowRepository interface {
	// Create makes a new empty workflow with a generated id and default name.
	Create(ctx context.Context) (*Workflow, error)

	// Save creates or updates a workflow. Handles UpdatedAt stamping.
	Save(ctx context.Context, wf *Workflow) error

	// Load retrieves a workflow by id. Returns an error when not found.
	Load(ctx context.Context, id string) (*Workflow, error)

	// List returns summaries of all workflows, most recently updated first.
	List(ctx context.Context) ([]WorkflowSummary, error)

	// Rename changes a workflow's display name.
	Rename(ctx context.Context, id, name string) error

	// Delete removes a workflow. Returns an error when not found.
	Delete(ctx context.Context, id string) error
}

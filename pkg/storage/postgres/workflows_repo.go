package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noder-app/noder/pkg/storage/repository"
)

type workflowRepository struct {
	db dbExecutor
}

// NewWorkflowRepository creates a new PostgreSQL workflow repository.
func NewWorkflowRepository(db dbExecutor) repository.WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) Create(ctx context.Context) (*repository.Workflow, error) {
	now := time.Now().UTC()
	wf := &repository.Workflow{
		ID:        fmt.Sprintf("wf_%d", now.UnixMilli()),
		Name:      "New Workflow " + now.Format("2006-01-02 15:04:05"),
		Nodes:     []json.RawMessage{},
		Edges:     []json.RawMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Save(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

func (r *workflowRepository) Save(ctx context.Context, wf *repository.Workflow) error {
	if wf == nil || strings.TrimSpace(wf.ID) == "" {
		return fmt.Errorf("workflow has no id")
	}

	now := time.Now().UTC()
	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = now
	}
	wf.UpdatedAt = now

	nodesJSON, err := marshalGraph(wf.Nodes)
	if err != nil {
		return err
	}
	edgesJSON, err := marshalGraph(wf.Edges)
	if err != nil {
		return err
	}

	query := `INSERT INTO workflows (id, name, nodes, edges, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (id) DO UPDATE SET
	              name = EXCLUDED.name,
	              nodes = EXCLUDED.nodes,
	              edges = EXCLUDED.edges,
	              updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query, wf.ID, wf.Name, nodesJSON, edgesJSON, wf.CreatedAt, wf.UpdatedAt)
	return err
}

func (r *workflowRepository) Load(ctx context.Context, id string) (*repository.Workflow, error) {
	query := `SELECT id, name, nodes, edges, created_at, updated_at
	          FROM workflows
	          WHERE id = $1`

	var wf repository.Workflow
	var nodesRaw, edgesRaw []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&wf.ID,
		&wf.Name,
		&nodesRaw,
		&edgesRaw,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workflow not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodesRaw, &wf.Nodes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(edgesRaw, &wf.Edges); err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *workflowRepository) List(ctx context.Context) ([]repository.WorkflowSummary, error) {
	query := `SELECT id, name, updated_at
	          FROM workflows
	          ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []repository.WorkflowSummary
	for rows.Next() {
		var s repository.WorkflowSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *workflowRepository) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("workflow name is empty")
	}

	query := `UPDATE workflows SET name = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, name, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("workflow not found: %s", id)
	}
	return nil
}

func (r *workflowRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("workflow not found: %s", id)
	}
	return nil
}

func marshalGraph(items []json.RawMessage) ([]byte, error) {
	if items == nil {
		items = []json.RawMessage{}
	}
	return json.Marshal(items)
}

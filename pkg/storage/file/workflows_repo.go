package file

import (
	"context"

	"github.com/noder-app/noder/pkg/storage/repository"
	"github.com/noder-app/noder/pkg/workflows"
)

type workflowRepository struct {
	store *workflows.Store
}

// NewWorkflowRepository creates a new file-based workflow repository adapter.
func NewWorkflowRepository(store *workflows.Store) repository.WorkflowRepository {
	return &workflowRepository{store: store}
}

func (r *workflowRepository) Create(ctx context.Context) (*repository.Workflow, error) {
	wf, err := r.store.Create()
	if err != nil {
		return nil, err
	}
	return convertToRepoWorkflow(wf), nil
}

func (r *workflowRepository) Save(ctx context.Context, wf *repository.Workflow) error {
	return r.store.Save(convertToFileWorkflow(wf))
}

func (r *workflowRepository) Load(ctx context.Context, id string) (*repository.Workflow, error) {
	wf, err := r.store.Load(id)
	if err != nil {
		return nil, err
	}
	return convertToRepoWorkflow(wf), nil
}

func (r *workflowRepository) List(ctx context.Context) ([]repository.WorkflowSummary, error) {
	summaries, err := r.store.List()
	if err != nil {
		return nil, err
	}
	result := make([]repository.WorkflowSummary, len(summaries))
	for i, s := range summaries {
		result[i] = repository.WorkflowSummary{ID: s.ID, Name: s.Name, UpdatedAt: s.UpdatedAt}
	}
	return result, nil
}

func (r *workflowRepository) Rename(ctx context.Context, id, name string) error {
	return r.store.Rename(id, name)
}

func (r *workflowRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(id)
}

func convertToRepoWorkflow(wf *workflows.Workflow) *repository.Workflow {
	if wf == nil {
		return nil
	}
	return &repository.Workflow{
		ID:        wf.ID,
		Name:      wf.Name,
		Nodes:     wf.Nodes,
		Edges:     wf.Edges,
		CreatedAt: wf.CreatedAt,
		UpdatedAt: wf.UpdatedAt,
	}
}

func convertToFileWorkflow(wf *repository.Workflow) *workflows.Workflow {
	if wf == nil {
		return nil
	}
	return &workflows.Workflow{
		ID:        wf.ID,
		Name:      wf.Name,
		Nodes:     wf.Nodes,
		Edges:     wf.Edges,
		CreatedAt: wf.CreatedAt,
		UpdatedAt: wf.UpdatedAt,
	}
}

package file

import (
	"context"

	"github.com/noder-app/noder/pkg/credentials"
	"github.com/noder-app/noder/pkg/storage/repository"
)

type credentialRepository struct {
	store *credentials.Store
}

// NewCredentialRepository creates a new file-based credential repository adapter.
func NewCredentialRepository(store *credentials.Store) repository.CredentialRepository {
	return &credentialRepository{store: store}
}

func (r *credentialRepository) Save(ctx context.Context, c repository.Credential) error {
	return r.store.Save(credentials.Credential{
		ID:    c.ID,
		Name:  c.Name,
		Value: c.Value,
		Type:  c.Type,
	})
}

func (r *credentialRepository) Get(ctx context.Context, id string) (*repository.Credential, error) {
	c, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &repository.Credential{ID: c.ID, Name: c.Name, Value: c.Value, Type: c.Type}, nil
}

func (r *credentialRepository) List(ctx context.Context) ([]repository.Credential, error) {
	items, err := r.store.List()
	if err != nil {
		return nil, err
	}
	result := make([]repository.Credential, len(items))
	for i, c := range items {
		result[i] = repository.Credential{ID: c.ID, Name: c.Name, Value: c.Value, Type: c.Type}
	}
	return result, nil
}

func (r *credentialRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(id)
}

package file

import (
	"context"
	"fmt"
	"os"

	"github.com/noder-app/noder/pkg/credentials"
	"github.com/noder-app/noder/pkg/storage/repository"
	"github.com/noder-app/noder/pkg/workflows"
)

// FileStorage implements the storage.Storage interface using file-based
// persistence. It wraps the JSON-per-file stores.
type FileStorage struct {
	dataDir         string
	workflowsRepo   repository.WorkflowRepository
	credentialsRepo repository.CredentialRepository
}

// NewFileStorage creates a new file-based storage instance.
func NewFileStorage(dataDir string) (*FileStorage, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required for file-based storage")
	}

	workflowStore, err := workflows.NewStore(dataDir)
	if err != nil {
		return nil, err
	}
	credentialStore, err := credentials.NewStore(dataDir)
	if err != nil {
		return nil, err
	}

	return &FileStorage{
		dataDir:         dataDir,
		workflowsRepo:   NewWorkflowRepository(workflowStore),
		credentialsRepo: NewCredentialRepository(credentialStore),
	}, nil
}

// Connect initializes the file-based storage. Directory creation already
// happened in the store constructors.
func (fs *FileStorage) Connect(ctx context.Context) error {
	return nil
}

// Close closes the file-based storage (no-op for files).
func (fs *FileStorage) Close() error {
	return nil
}

// Workflows returns the workflow repository.
func (fs *FileStorage) Workflows() repository.WorkflowRepository {
	return fs.workflowsRepo
}

// Credentials returns the credential repository.
func (fs *FileStorage) Credentials() repository.CredentialRepository {
	return fs.credentialsRepo
}

// Ping checks if the data directory is accessible.
func (fs *FileStorage) Ping(ctx context.Context) error {
	_, err := os.Stat(fs.dataDir)
	return err
}

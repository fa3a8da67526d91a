package repository

import "context"

// Credential is a named secret usable by workflow nodes.
type Credential struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"credential_type"`
}

// CredentialRepository defines the interface for credential persistence.
type CredentialRepository interface {
	// Save creates or updates a credential by id.
	Save(ctx context.Context, c Credential) error

	// Get retrieves a credential by id. Returns an error when not found.
	Get(ctx context.Context, id string) (*Credential, error)

	// List returns all credentials sorted by name.
	List(ctx context.Context) ([]Credential, error)

	// Delete removes a credential. Returns an error when not found.
	Delete(ctx context.Context, id string) error
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/noder-app/noder/pkg/storage/repository"
)

type credentialRepository struct {
	db dbExecutor
}

// NewCredentialRepository creates a new PostgreSQL credential repository.
func NewCredentialRepository(db dbExecutor) repository.CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Save(ctx context.Context, c repository.Credential) error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("credential has no id")
	}

	query := `INSERT INTO credentials (id, name, value, credential_type, updated_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (id) DO UPDATE SET
	              name = EXCLUDED.name,
	              value = EXCLUDED.value,
	              credential_type = EXCLUDED.credential_type,
	              updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Value, c.Type, time.Now().UTC())
	return err
}

func (r *credentialRepository) Get(ctx context.Context, id string) (*repository.Credential, error) {
	query := `SELECT id, name, value, credential_type FROM credentials WHERE id = $1`

	var c repository.Credential
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Value, &c.Type)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("credential not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *credentialRepository) List(ctx context.Context) ([]repository.Credential, error) {
	query := `SELECT id, name, value, credential_type FROM credentials ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []repository.Credential
	for rows.Next() {
		var c repository.Credential
		if err := rows.Scan(&c.ID, &c.Name, &c.Value, &c.Type); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *credentialRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("credential not found: %s", id)
	}
	return nil
}

package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akyuz/termflow/internal/app/models"
)

// ErrClientNotFound is returned when an API client is not found.
var ErrClientNotFound = ErrNotFound

// ClientRepository handles API client database operations
type ClientRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByClientID retrieves an enabled API client by its public identifier
func (r *ClientRepository) GetByClientID(ctx context.Context, clientID string) (*models.APIClient, error) {
	sql, args, err := r.sb.Select("id", "name", "secret_hash", "scope", "enabled", "created_at").
		From("api_clients").
		Where(squirrel.Eq{"id": clientID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get client query: %w", err)
	}

	client := &models.APIClient{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&client.ID,
		&client.Name,
		&client.SecretHash,
		&client.Scope,
		&client.Enabled,
		&client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("error retrieving client: %w", err)
	}
	return client, nil
}

// Create inserts an API client. Used by seeding and provisioning tooling.
func (r *ClientRepository) Create(ctx context.Context, client *models.APIClient) error {
	sql, args, err := r.sb.Insert("api_clients").
		Columns("id", "name", "secret_hash", "scope", "enabled", "created_at").
		Values(client.ID, client.Name, client.SecretHash, client.Scope, client.Enabled, client.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create client query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if isDuplicateKeyError(err) {
			return errors.New("client with this id already exists")
		}
		return fmt.Errorf("error creating client: %w", err)
	}
	return nil
}

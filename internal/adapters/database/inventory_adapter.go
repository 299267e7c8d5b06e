package database

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/clients/postgres"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/observability"
	apperrors "github.com/rxgrid/pharmacy-discovery/pkg/errors"
)

// InventoryAdapter implements the InventoryRepository interface over the
// inventory snapshot table.
type InventoryAdapter struct {
	client *postgres.Client
}

// NewInventoryAdapter creates a new inventory adapter
func NewInventoryAdapter(client *postgres.Client) repositories.InventoryRepository {
	return &InventoryAdapter{
		client: client,
	}
}

// GetByPharmacies returns inventory lines for the given pharmacies,
// narrowed to the given medication names when provided. Name matching is
// case-insensitive.
func (a *InventoryAdapter) GetByPharmacies(ctx context.Context, pharmacyIDs []string, medications []string) ([]entities.InventoryLine, error) {
	if len(pharmacyIDs) == 0 {
		return nil, nil
	}
	defer observability.RecordDBQuery(ctx, "inventory.get_by_pharmacies", time.Now())

	query := `
		SELECT pharmacy_id, medication_name, stock_count, unit_price
		FROM inventory_lines
		WHERE pharmacy_id IN (?)
	`
	queryArgs := []interface{}{pharmacyIDs}

	if len(medications) > 0 {
		lowered := make([]string, len(medications))
		for i, name := range medications {
			lowered[i] = strings.ToLower(strings.TrimSpace(name))
		}
		query += ` AND lower(medication_name) IN (?)`
		queryArgs = append(queryArgs, lowered)
	}

	query, args, err := sqlx.In(query, queryArgs...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build inventory query", err)
	}
	query = a.client.DB().Rebind(query)

	var lines []entities.InventoryLine
	if err := a.client.DB().SelectContext(ctx, &lines, query, args...); err != nil {
		return nil, apperrors.NewRetrievalError("inventory query failed", err)
	}
	return lines, nil
}

package database

import (
	"context"
	"time"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/clients/postgres"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/observability"
	apperrors "github.com/rxgrid/pharmacy-discovery/pkg/errors"
)

// PrescriptionAdapter implements the PrescriptionHistoryRepository
// interface. Only completed prescriptions feed the recommendation ranker.
type PrescriptionAdapter struct {
	client *postgres.Client
}

// NewPrescriptionAdapter creates a new prescription history adapter
func NewPrescriptionAdapter(client *postgres.Client) repositories.PrescriptionHistoryRepository {
	return &PrescriptionAdapter{
		client: client,
	}
}

// ListCompletedByUser returns the user's completed prescriptions, most
// recent first.
func (a *PrescriptionAdapter) ListCompletedByUser(ctx context.Context, userID string, limit int) ([]entities.Prescription, error) {
	if limit <= 0 {
		limit = 100
	}
	defer observability.RecordDBQuery(ctx, "prescriptions.list_completed_by_user", time.Now())

	query := `
		SELECT id, user_id, pharmacy_id, total_amount, completed_at
		FROM prescriptions
		WHERE user_id = $1 AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT $2
	`

	var prescriptions []entities.Prescription
	if err := a.client.DB().SelectContext(ctx, &prescriptions, query, userID, limit); err != nil {
		return nil, apperrors.NewRetrievalError("prescription history query failed", err)
	}
	return prescriptions, nil
}

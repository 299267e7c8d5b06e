package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/providers"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/observability"
	apperrors "github.com/rxgrid/pharmacy-discovery/pkg/errors"
)

// NotificationService produces notification intents for candidate
// pharmacies. Delivery itself is the dispatcher's job.
type NotificationService struct {
	pharmacies repositories.PharmacyRepository
	dispatcher providers.NotificationDispatcher
}

// NewNotificationService creates a new notification service
func NewNotificationService(pharmacies repositories.PharmacyRepository, dispatcher providers.NotificationDispatcher) *NotificationService {
	return &NotificationService{
		pharmacies: pharmacies,
		dispatcher: dispatcher,
	}
}

// NotifyCandidates builds one intent per target pharmacy and hands each to
// the dispatcher. A single dispatch failure marks that recipient failed and
// the batch continues. Unknown pharmacy ids are skipped, not errors.
func (s *NotificationService) NotifyCandidates(ctx context.Context, pharmacyIDs []string, payload entities.NotificationPayload) (*entities.NotifyResult, error) {
	if len(pharmacyIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one pharmacy id is required")
	}
	if s.dispatcher == nil {
		return nil, apperrors.NewInternalError("notification dispatcher not configured", nil)
	}

	known := make(map[string]bool, len(pharmacyIDs))
	pharmacies, err := s.pharmacies.GetByIDs(ctx, pharmacyIDs)
	if err != nil {
		return nil, apperrors.NewRetrievalError("failed to resolve notification targets", err)
	}
	for _, p := range pharmacies {
		known[p.ID] = true
	}

	logger := observability.LoggerFromContext(ctx)
	result := &entities.NotifyResult{
		Statuses: make([]entities.PharmacyDispatchStatus, 0, len(pharmacyIDs)),
	}

	for _, id := range pharmacyIDs {
		if !known[id] {
			result.Statuses = append(result.Statuses, entities.PharmacyDispatchStatus{
				PharmacyID: id,
				Status:     entities.DispatchStatusSkipped,
				Error:      "pharmacy not found",
			})
			continue
		}

		intent := entities.NotificationIntent{
			ID:         uuid.NewString(),
			PharmacyID: id,
			Payload:    payload,
			CreatedAt:  time.Now().UTC(),
		}

		if err := s.dispatcher.Dispatch(ctx, intent); err != nil {
			logger.Warn().Err(err).Str("pharmacy_id", id).Msg("notification dispatch failed")
			observability.RecordDispatchFailure(ctx)
			result.Statuses = append(result.Statuses, entities.PharmacyDispatchStatus{
				PharmacyID: id,
				Status:     entities.DispatchStatusFailed,
				Error:      err.Error(),
			})
			continue
		}

		result.SentCount++
		result.Statuses = append(result.Statuses, entities.PharmacyDispatchStatus{
			PharmacyID: id,
			Status:     entities.DispatchStatusSent,
		})
	}

	return result, nil
}

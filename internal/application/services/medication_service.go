package services

import (
	"context"
	"sort"
	"strings"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	apperrors "github.com/rxgrid/pharmacy-discovery/pkg/errors"
)

// MedicationService cross-references requested medication names against
// per-pharmacy inventory snapshots.
type MedicationService struct {
	inventory  repositories.InventoryRepository
	pharmacies repositories.PharmacyRepository
}

// NewMedicationService creates a new medication service
func NewMedicationService(inventory repositories.InventoryRepository, pharmacies repositories.PharmacyRepository) *MedicationService {
	return &MedicationService{
		inventory:  inventory,
		pharmacies: pharmacies,
	}
}

// FilterByMedication builds an availability report per pharmacy. Pharmacies
// with no inventory data get an all-unavailable report, they are never
// dropped.
func (s *MedicationService) FilterByMedication(ctx context.Context, pharmacyIDs []string, medications []string) ([]entities.MedicationReport, error) {
	if len(pharmacyIDs) == 0 {
		return nil, nil
	}

	names := make(map[string]string, len(pharmacyIDs))
	if s.pharmacies != nil {
		pharms, err := s.pharmacies.GetByIDs(ctx, pharmacyIDs)
		if err != nil {
			return nil, apperrors.NewRetrievalError("failed to load pharmacies for medication check", err)
		}
		for _, p := range pharms {
			names[p.ID] = p.Name
		}
	}

	lines, err := s.inventory.GetByPharmacies(ctx, pharmacyIDs, medications)
	if err != nil {
		return nil, apperrors.NewRetrievalError("failed to load inventory snapshots", err)
	}
	byPharmacy := groupInventory(lines)

	reports := make([]entities.MedicationReport, 0, len(pharmacyIDs))
	for _, id := range pharmacyIDs {
		report := BuildMedicationReport(id, medications, byPharmacy[id])
		report.PharmacyName = names[id]
		reports = append(reports, report)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].HasAllRequested != reports[j].HasAllRequested {
			return reports[i].HasAllRequested
		}
		return reports[i].AvailableCount > reports[j].AvailableCount
	})
	return reports, nil
}

// BuildMedicationReport performs the case-insensitive exact-name lookup for
// one pharmacy's inventory lines.
func BuildMedicationReport(pharmacyID string, medications []string, lines []entities.InventoryLine) entities.MedicationReport {
	report := entities.MedicationReport{
		PharmacyID:  pharmacyID,
		Medications: make([]entities.MedicationAvailability, 0, len(medications)),
	}

	stock := make(map[string]entities.InventoryLine, len(lines))
	for _, line := range lines {
		stock[strings.ToLower(strings.TrimSpace(line.MedicationName))] = line
	}

	available := 0
	for _, name := range medications {
		entry := entities.MedicationAvailability{Name: name}
		if line, ok := stock[strings.ToLower(strings.TrimSpace(name))]; ok && line.StockCount > 0 {
			price := line.UnitPrice
			entry.Available = true
			entry.StockCount = line.StockCount
			entry.Price = &price
			available++
		}
		report.Medications = append(report.Medications, entry)
	}

	report.AvailableCount = available
	report.HasAllRequested = len(medications) > 0 && available == len(medications)
	return report
}

// ReorderByAvailability re-sorts scored candidates so pharmacies holding
// every requested medication come first, then by available count descending.
// The incoming order is preserved within equal groups. With no requested
// medications the input is returned unchanged.
func ReorderByAvailability(results []entities.ScoredPharmacy, medications []string) []entities.ScoredPharmacy {
	if len(medications) == 0 {
		return results
	}
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := results[i].Medications, results[j].Medications
		if ri == nil || rj == nil {
			return ri != nil
		}
		if ri.HasAllRequested != rj.HasAllRequested {
			return ri.HasAllRequested
		}
		return ri.AvailableCount > rj.AvailableCount
	})
	return results
}

func groupInventory(lines []entities.InventoryLine) map[string][]entities.InventoryLine {
	out := make(map[string][]entities.InventoryLine)
	for _, line := range lines {
		out[line.PharmacyID] = append(out[line.PharmacyID], line)
	}
	return out
}

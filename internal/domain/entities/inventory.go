package entities

// InventoryLine is one medication's stock snapshot at a pharmacy. Snapshots
// are best effort; staleness is tolerated.
type InventoryLine struct {
	PharmacyID     string  `json:"pharmacy_id" db:"pharmacy_id"`
	MedicationName string  `json:"medication_name" db:"medication_name"`
	StockCount     int     `json:"stock_count" db:"stock_count"`
	UnitPrice      float64 `json:"unit_price" db:"unit_price"`
}

// MedicationAvailability is the lookup result for one requested medication
// at one pharmacy.
type MedicationAvailability struct {
	Name       string   `json:"name"`
	Available  bool     `json:"available"`
	StockCount int      `json:"stock_count"`
	Price      *float64 `json:"price,omitempty"`
}

// MedicationReport summarizes requested-medication availability at one
// pharmacy.
type MedicationReport struct {
	PharmacyID      string                   `json:"pharmacy_id"`
	PharmacyName    string                   `json:"pharmacy_name,omitempty"`
	Medications     []MedicationAvailability `json:"medications"`
	HasAllRequested bool                     `json:"has_all_requested"`
	AvailableCount  int                      `json:"available_count"`
}

package entities

// GridCell is one analyzed cell of a coverage grid.
type GridCell struct {
	CellID             string   `json:"cell_id"`
	Latitude           float64  `json:"latitude"`
	Longitude          float64  `json:"longitude"`
	Covered            bool     `json:"covered"`
	NearestPharmacyIDs []string `json:"nearest_pharmacy_ids,omitempty"`
	AverageDistanceKm  *float64 `json:"average_distance_km,omitempty"`
	PharmacyCount      int      `json:"pharmacy_count"`
}

// CoverageStats aggregates a coverage analysis.
type CoverageStats struct {
	TotalCells            int     `json:"total_cells"`
	CoveredCells          int     `json:"covered_cells"`
	UnderservedCells      int     `json:"underserved_cells"`
	WellCoveredCells      int     `json:"well_covered_cells"`
	CoveragePercent       float64 `json:"coverage_percent"`
	MeanPharmaciesPerCell float64 `json:"mean_pharmacies_per_cell"`
}

// CoverageReport is the full output of a coverage analysis.
type CoverageReport struct {
	Grid  []GridCell    `json:"grid"`
	Stats CoverageStats `json:"stats"`
}

package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bussewa/booking-backend/internal/models"
)

// TripCatalogRepository is a read-only view over the trip catalog tables
// owned by the scheduling system. It only supplies the snapshot copied onto
// tickets at purchase time.
type TripCatalogRepository struct {
	db DB
}

// NewTripCatalogRepository creates a new trip catalog repository
func NewTripCatalogRepository(db DB) *TripCatalogRepository {
	return &TripCatalogRepository{db: db}
}

// GetTripSnapshot returns route and bus display data for the given bus and
// travel date. Returns nil without error when the catalog has no matching
// trip; tickets are still issued, just without the display fields.
func (r *TripCatalogRepository) GetTripSnapshot(busID string, travelDate time.Time) (*models.TripSnapshot, error) {
	var snapshot models.TripSnapshot

	query := `
		SELECT mr.route_name, b.bus_number, st.departure_datetime AS departure_time
		FROM scheduled_trips st
		JOIN buses b ON b.id = st.bus_id
		JOIN master_routes mr ON mr.id = st.route_id
		WHERE st.bus_id = $1
		  AND st.trip_date = $2
		ORDER BY st.departure_datetime ASC
		LIMIT 1
	`

	err := r.db.Get(&snapshot, query, busID, travelDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load trip snapshot: %w", err)
	}

	return &snapshot, nil
}

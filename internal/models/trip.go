package models

import (
	"time"
)

// TripSnapshot is the read-only slice of trip catalog data copied onto a
// ticket at purchase time. Catalog rows may change or disappear later; the
// snapshot keeps the ticket printable.
type TripSnapshot struct {
	RouteName     string     `json:"route_name" db:"route_name"`
	BusNumber     string     `json:"bus_number" db:"bus_number"`
	DepartureTime *time.Time `json:"departure_time,omitempty" db:"departure_time"`
}

package entity

import "time"

type Event struct {
	BaseNoDelete
	OrganizerID string    `db:"organizer_id"`
	Name        string    `db:"name"`
	StartsAt    time.Time `db:"starts_at"`
}

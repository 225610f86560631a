package repository

import "errors"

// Sentinel errors shared by every store backend. The service layer maps them
// onto the apperr taxonomy.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRegistered is returned when the same email registers twice
	// for one camp.
	ErrAlreadyRegistered = errors.New("email already registered for this camp")

	// ErrDuplicate is returned when a conditional insert hits a uniqueness
	// constraint (a second Paid settlement, a reused transaction id, or a
	// second feedback for the same camp).
	ErrDuplicate = errors.New("duplicate record")

	// ErrInUse is returned when a camp still has registrations referencing it.
	ErrInUse = errors.New("record is still referenced")
)

// RecountSQL recomputes every camp's participant count from its
// registrations, touching only rows that drifted. Portable across PostgreSQL
// and SQLite.
const RecountSQL = `UPDATE camps
SET participant_count = (SELECT COUNT(*) FROM registrations r WHERE r.camp_id = camps.id)
WHERE participant_count <> (SELECT COUNT(*) FROM registrations r WHERE r.camp_id = camps.id)`


// Package records is the persistence gateway for doctors, patients and
// appointments. It is opened once per process and passed explicitly to the
// records role tools and to the fact extractor.
package records

import (
	"context"
	"time"
)

// Gateway is the persistence contract consumed by the assistant.
type Gateway interface {
	// FindDoctors lists available doctors, optionally filtered by a
	// specialty substring. An empty specialty returns every available doctor.
	FindDoctors(ctx context.Context, specialty string) ([]Doctor, error)

	// FindDoctorByName returns the first available doctor whose name contains
	// name and, when specialty is non-empty, whose specialty contains it.
	// Returns ErrNotFound when nothing matches.
	FindDoctorByName(ctx context.Context, name, specialty string) (*Doctor, error)

	GetDoctor(ctx context.Context, id int64) (*Doctor, error)

	// RegisterPatient stores a patient and returns its id, or ErrDuplicate
	// when the id is already taken.
	RegisterPatient(ctx context.Context, p Patient) (string, error)

	// CreateAppointment books an appointment. The patient must exist and the
	// doctor must exist and be available, otherwise ErrNotFound.
	CreateAppointment(ctx context.Context, a NewAppointment) (*Appointment, error)

	GetAppointment(ctx context.Context, id string) (*Appointment, error)
	ListAppointments(ctx context.Context, limit int) ([]Appointment, error)

	// IsSlotFree reports whether the date and time is a future clinic hour
	// on a weekday and the doctor has no scheduled appointment there.
	IsSlotFree(ctx context.Context, doctorID int64, date, hour string) (bool, error)

	// NextAvailableSlot suggests the earliest free slot for the doctor,
	// starting sooner for higher urgency.
	NextAvailableSlot(ctx context.Context, doctorID int64, urgency string) (Slot, error)

	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// Clock lets tests pin "now" for slot suggestions.
type Clock func() time.Time

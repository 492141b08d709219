package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handle is a live (attendee, transport) pairing returned by ListHandles.
type Handle struct {
	AttendeeID   string
	ConnectionID string
}

// ConnectionRegistry persists which attendees are reachable on which
// transport handles, one row per (meeting, attendee), expiring after
// TTL.
type ConnectionRegistry struct {
	db  *gorm.DB
	now func() time.Time
}

func NewConnectionRegistry(db *gorm.DB) *ConnectionRegistry {
	return &ConnectionRegistry{db: db, now: time.Now}
}

// Register upserts the connection row with a fresh expiry. A reconnect
// for the same (meeting, attendee) replaces the previous handle.
func (r *ConnectionRegistry) Register(ctx context.Context, meetingID, attendeeID, connectionID string) error {
	row := Connection{
		MeetingID:    meetingID,
		AttendeeID:   attendeeID,
		ConnectionID: connectionID,
		ExpiresAt:    r.now().Add(TTL),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "attendee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"connection_id", "expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: register: %v", ErrRegistryUnavailable, err)
	}
	return nil
}

// Unregister removes the connection row. Absent rows are not an error.
func (r *ConnectionRegistry) Unregister(ctx context.Context, meetingID, attendeeID string) error {
	err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND attendee_id = ?", meetingID, attendeeID).
		Delete(&Connection{}).Error
	if err != nil {
		return fmt.Errorf("%w: unregister: %v", ErrRegistryUnavailable, err)
	}
	return nil
}

// Prune removes the row only while it still points at the given handle,
// so a reconnect that raced the prune is left alone.
func (r *ConnectionRegistry) Prune(ctx context.Context, meetingID, attendeeID, connectionID string) error {
	err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND attendee_id = ? AND connection_id = ?", meetingID, attendeeID, connectionID).
		Delete(&Connection{}).Error
	if err != nil {
		return fmt.Errorf("%w: prune: %v", ErrRegistryUnavailable, err)
	}
	return nil
}

// ListHandles returns the live handles for a meeting in attendee-id
// order. Rows past their TTL are treated as absent even if not yet
// swept.
func (r *ConnectionRegistry) ListHandles(ctx context.Context, meetingID string) ([]Handle, error) {
	var rows []Connection
	err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND expires_at > ?", meetingID, r.now()).
		Order("attendee_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list handles: %v", ErrRegistryUnavailable, err)
	}
	handles := make([]Handle, 0, len(rows))
	for _, row := range rows {
		handles = append(handles, Handle{AttendeeID: row.AttendeeID, ConnectionID: row.ConnectionID})
	}
	return handles, nil
}

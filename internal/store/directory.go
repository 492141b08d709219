package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Directory resolves attendee ids to display names. The router only
// reads it; rows are written once at room join time.
type Directory struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db, now: time.Now}
}

// PutName records a display name at join time.
func (d *Directory) PutName(ctx context.Context, meetingID, attendeeID, name string) error {
	row := RosterEntry{
		MeetingID:  meetingID,
		AttendeeID: attendeeID,
		Name:       name,
		ExpiresAt:  d.now().Add(TTL),
	}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "attendee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: put name: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ResolveName looks up a display name. A miss returns "" with no
// error: names are display-only and must never block gameplay.
func (d *Directory) ResolveName(ctx context.Context, meetingID, attendeeID string) (string, error) {
	var row RosterEntry
	err := d.db.WithContext(ctx).
		Where("meeting_id = ? AND attendee_id = ? AND expires_at > ?", meetingID, attendeeID, d.now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: resolve name: %v", ErrStoreUnavailable, err)
	}
	return row.Name, nil
}

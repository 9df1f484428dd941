package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaveEvent records one persisted results file (append-only)
type SaveEvent struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID         string    `gorm:"type:varchar(255);not null;index;column:run_id"`
	UserName      string    `gorm:"type:varchar(100);not null;index;column:user_name"`
	BlobName      string    `gorm:"type:varchar(500);not null;column:blob_name"`
	RowCount      int       `gorm:"not null;column:row_count"`
	LabelledCount int       `gorm:"not null;column:labelled_count"`
	PrunedCount   int       `gorm:"not null;default:0;column:pruned_count"`
	SavedAt       time.Time `gorm:"not null;index;column:saved_at"`
	CreatedAt     time.Time `gorm:"not null"`
}

// TableName overrides the default pluralisation
func (SaveEvent) TableName() string {
	return "save_events"
}

// BeforeCreate assigns an ID; sqlite has no uuid default
func (e *SaveEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now().UTC()
	}
	return nil
}

// ResultFile is a decoded results file name
type ResultFile struct {
	Name      string
	Timestamp string
	RunID     string
	UserName  string
	Legacy    bool
}

// SavedAt parses the leading timestamp. ok is false when it does not parse.
func (f ResultFile) SavedAt() (time.Time, bool) {
	t, err := time.Parse(DatetimeLayout, f.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

package permit

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("permit not found")
	ErrDuplicateWPNumber = errors.New("wp number already exists")
	// ErrStaleStatus means the row left the expected status before the write landed.
	ErrStaleStatus = errors.New("permit status changed concurrently")
)

type Permit struct {
	ID            string     `gorm:"primaryKey"`
	UserID        string     `gorm:"column:user_id;not null;index"`
	WONumber      string     `gorm:"column:wo_number;not null"`
	WPNumber      string     `gorm:"column:wp_number;not null;uniqueIndex"`
	Name          string     `gorm:"column:name;not null"`
	Designation   string     `gorm:"column:designation;not null"`
	Plant         string     `gorm:"column:plant;not null"`
	WorkNature    string     `gorm:"column:work_nature;not null"`
	EstimatedDays int        `gorm:"column:estimated_days;not null"`
	Latitude      float64    `gorm:"column:latitude;not null"`
	Longitude     float64    `gorm:"column:longitude;not null"`
	Address       string     `gorm:"column:address;not null"`
	Status        string     `gorm:"column:status;not null;index"`
	AdminComments *string    `gorm:"column:admin_comments"`
	ApprovedBy    *string    `gorm:"column:approved_by"`
	ApprovedAt    *time.Time `gorm:"column:approved_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;index"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (Permit) TableName() string {
	return "permits"
}

// Filter narrows list/count queries. Empty fields match everything.
type Filter struct {
	UserID string
	Status string
}

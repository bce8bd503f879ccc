package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type User struct {
	ID                       string     `gorm:"primaryKey"`
	Name                     string     `gorm:"column:name;not null"`
	Email                    string     `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash             string     `gorm:"column:password_hash;not null"`
	Role                     string     `gorm:"column:role;not null;index"`
	IsLocationSharingEnabled bool       `gorm:"column:is_location_sharing_enabled;not null;default:false"`
	LastLatitude             *float64   `gorm:"column:last_latitude"`
	LastLongitude            *float64   `gorm:"column:last_longitude"`
	LastAddress              *string    `gorm:"column:last_address"`
	LastLocationAt           *time.Time `gorm:"column:last_location_at;index"`
	CreatedAt                time.Time  `gorm:"column:created_at"`
	UpdatedAt                time.Time  `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Location is the last reported position of a user.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
	UpdatedAt time.Time
}

func (u *User) HasLocation() bool {
	return u.LastLatitude != nil && u.LastLongitude != nil && u.LastLocationAt != nil
}

func (u *User) SetLocation(loc Location) {
	lat, lon, addr, at := loc.Latitude, loc.Longitude, loc.Address, loc.UpdatedAt
	u.LastLatitude = &lat
	u.LastLongitude = &lon
	u.LastAddress = &addr
	u.LastLocationAt = &at
}

func (u *User) Location() *Location {
	if !u.HasLocation() {
		return nil
	}
	loc := &Location{
		Latitude:  *u.LastLatitude,
		Longitude: *u.LastLongitude,
		UpdatedAt: *u.LastLocationAt,
	}
	if u.LastAddress != nil {
		loc.Address = *u.LastAddress
	}
	return loc
}

package user

import (
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/google/uuid"
)

type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type User struct {
	ID                       string    `json:"id"`
	Name                     string    `json:"name"`
	Email                    string    `json:"email"`
	PasswordHash             string    `json:"-"`
	Role                     role.Role `json:"role"`
	IsLocationSharingEnabled bool      `json:"isLocationSharingEnabled"`
	LastLocation             *Location `json:"lastLocation,omitempty"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role.IsAdmin()
}

// NormalizeEmail is applied on every write and lookup so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NewUser(name, email, passwordHash string, r role.Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         r,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func ToDataModel(u *User) *userDatamodel.User {
	dm := &userDatamodel.User{
		ID:                       u.ID,
		Name:                     u.Name,
		Email:                    u.Email,
		PasswordHash:             u.PasswordHash,
		Role:                     u.Role.String(),
		IsLocationSharingEnabled: u.IsLocationSharingEnabled,
		CreatedAt:                u.CreatedAt,
		UpdatedAt:                u.UpdatedAt,
	}
	if u.LastLocation != nil {
		dm.SetLocation(userDatamodel.Location{
			Latitude:  u.LastLocation.Latitude,
			Longitude: u.LastLocation.Longitude,
			Address:   u.LastLocation.Address,
			UpdatedAt: u.LastLocation.UpdatedAt,
		})
	}
	return dm
}

// FromDataModel maps a stored row. An unrecognised role string yields the
// zero Role, which grants nothing.
func FromDataModel(u *userDatamodel.User) *User {
	r, _ := role.Parse(u.Role)
	out := &User{
		ID:                       u.ID,
		Name:                     u.Name,
		Email:                    u.Email,
		PasswordHash:             u.PasswordHash,
		Role:                     r,
		IsLocationSharingEnabled: u.IsLocationSharingEnabled,
		CreatedAt:                u.CreatedAt,
		UpdatedAt:                u.UpdatedAt,
	}
	if loc := u.Location(); loc != nil {
		out.LastLocation = &Location{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Address:   loc.Address,
			UpdatedAt: loc.UpdatedAt,
		}
	}
	return out
}

func FromDataModelSlice(users []*userDatamodel.User) []*User {
	result := make([]*User, len(users))
	for i, u := range users {
		result[i] = FromDataModel(u)
	}
	return result
}

const MinPasswordLength = 6

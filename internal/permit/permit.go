package permit

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/work-permit/internal"
	permitDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/permit"
	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
	"github.com/frahmantamala/work-permit/internal/user"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unknown permit status %q", s)
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// Submitter is the owning account as shown alongside a permit.
type Submitter struct {
	ID                       string         `json:"id"`
	Name                     string         `json:"name"`
	Email                    string         `json:"email"`
	IsLocationSharingEnabled bool           `json:"isLocationSharingEnabled"`
	LastLocation             *user.Location `json:"lastLocation,omitempty"`
}

func SubmitterFromDataModel(u *userDatamodel.User) *Submitter {
	full := user.FromDataModel(u)
	return &Submitter{
		ID:                       full.ID,
		Name:                     full.Name,
		Email:                    full.Email,
		IsLocationSharingEnabled: full.IsLocationSharingEnabled,
		LastLocation:             full.LastLocation,
	}
}

type Permit struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Submitter     *Submitter `json:"submitter,omitempty"`
	WONumber      string     `json:"woNumber"`
	WPNumber      string     `json:"wpNumber"`
	Name          string     `json:"name"`
	Designation   string     `json:"designation"`
	Plant         string     `json:"plant"`
	WorkNature    string     `json:"workNature"`
	EstimatedDays int        `json:"estimatedDays"`
	Location      Location   `json:"location"`
	Status        Status     `json:"status"`
	AdminComments *string    `json:"adminComments,omitempty"`
	ApprovedBy    *string    `json:"approvedBy,omitempty"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Decision is an admin's verdict on a permit. A nil Status only updates comments.
type Decision struct {
	Status        *Status
	AdminComments *string
	ActorID       string
	At            time.Time
}

// Apply runs the lifecycle: pending moves to approved or rejected once.
// Repeating the current terminal status changes nothing but comments; any
// other move out of a terminal status fails. It reports whether the status
// itself changed.
func (p *Permit) Apply(d Decision) (bool, error) {
	changed := false
	if d.Status != nil {
		next := *d.Status
		if !next.Terminal() {
			return false, internal.ErrInvalidPermitStatus
		}

		switch {
		case p.Status == next:
		case p.Status.Terminal():
			return false, internal.ErrPermitFinalized.WithDetails(map[string]string{
				"status": string(p.Status),
			})
		default:
			p.Status = next
			changed = true
			if next == StatusApproved {
				actor := d.ActorID
				at := d.At
				p.ApprovedBy = &actor
				p.ApprovedAt = &at
			}
		}
	}

	if d.AdminComments != nil {
		comments := strings.TrimSpace(*d.AdminComments)
		p.AdminComments = &comments
	}
	p.UpdatedAt = d.At
	return changed, nil
}

// OwnedBy reports whether userID submitted the permit.
func (p *Permit) OwnedBy(userID string) bool {
	return p.UserID == userID
}

func NewPermit(userID string, dto CreatePermitDTO, defaultAddress string, now time.Time) *Permit {
	address := strings.TrimSpace(dto.Location.Address)
	if address == "" {
		address = defaultAddress
	}
	return &Permit{
		ID:            uuid.NewString(),
		UserID:        userID,
		WONumber:      strings.TrimSpace(dto.WONumber),
		WPNumber:      strings.TrimSpace(dto.WPNumber),
		Name:          strings.TrimSpace(dto.Name),
		Designation:   strings.TrimSpace(dto.Designation),
		Plant:         strings.TrimSpace(dto.Plant),
		WorkNature:    strings.TrimSpace(dto.WorkNature),
		EstimatedDays: dto.EstimatedDays.Int(),
		Location: Location{
			Latitude:  *dto.Location.Latitude,
			Longitude: *dto.Location.Longitude,
			Address:   address,
		},
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func ToDataModel(p *Permit) *permitDatamodel.Permit {
	return &permitDatamodel.Permit{
		ID:            p.ID,
		UserID:        p.UserID,
		WONumber:      p.WONumber,
		WPNumber:      p.WPNumber,
		Name:          p.Name,
		Designation:   p.Designation,
		Plant:         p.Plant,
		WorkNature:    p.WorkNature,
		EstimatedDays: p.EstimatedDays,
		Latitude:      p.Location.Latitude,
		Longitude:     p.Location.Longitude,
		Address:       p.Location.Address,
		Status:        string(p.Status),
		AdminComments: p.AdminComments,
		ApprovedBy:    p.ApprovedBy,
		ApprovedAt:    p.ApprovedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func FromDataModel(p *permitDatamodel.Permit) *Permit {
	return &Permit{
		ID:            p.ID,
		UserID:        p.UserID,
		WONumber:      p.WONumber,
		WPNumber:      p.WPNumber,
		Name:          p.Name,
		Designation:   p.Designation,
		Plant:         p.Plant,
		WorkNature:    p.WorkNature,
		EstimatedDays: p.EstimatedDays,
		Location: Location{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Address:   p.Address,
		},
		Status:        Status(p.Status),
		AdminComments: p.AdminComments,
		ApprovedBy:    p.ApprovedBy,
		ApprovedAt:    p.ApprovedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func FromDataModelSlice(permits []*permitDatamodel.Permit) []*Permit {
	result := make([]*Permit, len(permits))
	for i, p := range permits {
		result[i] = FromDataModel(p)
	}
	return result
}

package location

import (
	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/core/common/validation"
	"github.com/frahmantamala/work-permit/internal/user"
)

// ToggleDTO sets sharing to Enabled when present and flips it otherwise.
type ToggleDTO struct {
	Enabled *bool `json:"enabled"`
}

type UpdateLocationDTO struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address,omitempty"`
}

func (d UpdateLocationDTO) Validate() *internal.AppError {
	if err := validation.ValidateCoordinates(d.Latitude, d.Longitude); err != nil {
		return err
	}
	v := validation.NewValidator()
	v.Field("address", d.Address).MaxLength(500)
	return v.Validate()
}

type ToggleResponse struct {
	Message                  string `json:"message"`
	IsLocationSharingEnabled bool   `json:"isLocationSharingEnabled"`
}

type UpdateResponse struct {
	Message  string         `json:"message"`
	Location *user.Location `json:"location"`
}

package permit

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/core/common/validation"
)

// EstimatedDays accepts a JSON number or a numeric string, since form
// clients post it as text.
type EstimatedDays int

func (d *EstimatedDays) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return invalidDays()
		}
		raw = []byte(strings.TrimSpace(s))
	}

	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return invalidDays()
	}
	*d = EstimatedDays(int(f))
	return nil
}

func (d *EstimatedDays) Int() int {
	if d == nil {
		return 0
	}
	return int(*d)
}

func invalidDays() error {
	return internal.NewValidationFieldError("estimatedDays",
		"estimatedDays must be a whole number", internal.ErrCodeInvalidEstimatedDays)
}

type LocationDTO struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

type CreatePermitDTO struct {
	WONumber      string         `json:"woNumber"`
	WPNumber      string         `json:"wpNumber"`
	Name          string         `json:"name"`
	Designation   string         `json:"designation"`
	Plant         string         `json:"plant"`
	WorkNature    string         `json:"workNature"`
	EstimatedDays *EstimatedDays `json:"estimatedDays"`
	Location      *LocationDTO   `json:"location"`
}

func (d CreatePermitDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("woNumber", d.WONumber).Required().MaxLength(64)
	v.Field("wpNumber", d.WPNumber).Required().MaxLength(64)
	v.Field("name", d.Name).Required().MaxLength(120)
	v.Field("designation", d.Designation).Required().MaxLength(120)
	v.Field("plant", d.Plant).Required().MaxLength(120)
	v.Field("workNature", d.WorkNature).Required().MaxLength(500)

	var days *int
	if d.EstimatedDays != nil {
		n := d.EstimatedDays.Int()
		days = &n
	}
	v.Field("estimatedDays", days).Required().MinInt(1, internal.ErrCodeInvalidEstimatedDays)

	if d.Location == nil {
		v.Field("location", nil).Required()
	} else {
		v.Field("location.latitude", d.Location.Latitude).
			Required().
			Between(-90, 90, internal.ErrCodeInvalidLocation)
		v.Field("location.longitude", d.Location.Longitude).
			Required().
			Between(-180, 180, internal.ErrCodeInvalidLocation)
		v.Field("location.address", d.Location.Address).MaxLength(500)
	}
	return v.Validate()
}

type UpdatePermitDTO struct {
	Status        *string `json:"status"`
	AdminComments *string `json:"adminComments"`
}

// Decision validates the body and converts it into a state machine input.
func (d UpdatePermitDTO) Decision() (*Status, *internal.AppError) {
	if d.Status == nil && d.AdminComments == nil {
		return nil, internal.NewValidationFieldError("status",
			"status or adminComments is required", internal.ErrCodeValidationFailed)
	}
	if d.AdminComments != nil && len(*d.AdminComments) > 2000 {
		return nil, internal.NewValidationFieldError("adminComments",
			"adminComments must not exceed 2000 characters", internal.ErrCodeValidationFailed)
	}
	if d.Status == nil {
		return nil, nil
	}

	s, err := ParseStatus(*d.Status)
	if err != nil || !s.Terminal() {
		return nil, internal.ErrInvalidPermitStatus
	}
	return &s, nil
}

type ListQuery struct {
	Page   int
	Limit  int
	Status string
}

func (q ListQuery) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("status", q.Status).OneOf(string(StatusPending), string(StatusApproved), string(StatusRejected))
	return v.Validate()
}

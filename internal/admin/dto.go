package admin

import (
	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/core/common/validation"
	"github.com/frahmantamala/work-permit/internal/user"
)

type CreateAdminDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d CreateAdminDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(120)
	v.Field("email", user.NormalizeEmail(d.Email)).Required().Email()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return validation.ValidatePassword(d.Password, user.MinPasswordLength)
}

// UpdateAdminDTO leaves the password hash untouched when Password is empty.
type UpdateAdminDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

func (d UpdateAdminDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(120)
	v.Field("email", user.NormalizeEmail(d.Email)).Required().Email()
	if err := v.Validate(); err != nil {
		return err
	}
	if d.Password != "" {
		return validation.ValidatePassword(d.Password, user.MinPasswordLength)
	}
	return nil
}

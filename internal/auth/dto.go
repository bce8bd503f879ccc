package auth

import (
	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/core/common/validation"
	"github.com/frahmantamala/work-permit/internal/user"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

func (d LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

func (d RegisterDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(120)
	v.Field("email", user.NormalizeEmail(d.Email)).Required().Email()
	if err := v.Validate(); err != nil {
		return err
	}
	return validation.ValidatePassword(d.Password, user.MinPasswordLength)
}

func (d RefreshTokenDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("refreshToken", d.RefreshToken).Required()
	return v.Validate()
}

// Package role defines the closed set of account roles.
package role

import (
	"fmt"
	"strings"
)

type Role int

const (
	User Role = iota + 1
	Admin
)

// Parse accepts the stored/wire form of a role. Unknown values are an error,
// never a silent default.
func Parse(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return User, nil
	case "admin":
		return Admin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case User:
		return "user"
	case Admin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

func (r Role) Valid() bool {
	switch r {
	case User, Admin:
		return true
	default:
		return false
	}
}

func (r Role) IsAdmin() bool {
	switch r {
	case Admin:
		return true
	case User:
		return false
	default:
		return false
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

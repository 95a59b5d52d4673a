package session

import (
	"fmt"
	"strings"
)

// Role is the screen a staff member works from.
type Role int

const (
	RoleReception Role = iota + 1
	RoleConsultation
	RoleDepartment
	RoleLaboratory
	RolePayment
	RolePharmacy
)

// Roles lists every role.
var Roles = []Role{RoleReception, RoleConsultation, RoleDepartment, RoleLaboratory, RolePayment, RolePharmacy}

func (r Role) String() string {
	switch r {
	case RoleReception:
		return "reception"
	case RoleConsultation:
		return "consultation"
	case RoleDepartment:
		return "department"
	case RoleLaboratory:
		return "laboratory"
	case RolePayment:
		return "payment"
	case RolePharmacy:
		return "pharmacy"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ParseRole maps a backend role name onto a Role.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range Roles {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if r < RoleReception || r > RolePharmacy {
		return nil, fmt.Errorf("marshal role: invalid value %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// DefaultDepartment is used for department staff without a department.
const DefaultDepartment = "general"

// Slug lowercases a department name and joins its words with '-'.
func Slug(department string) string {
	fields := strings.Fields(strings.ToLower(department))
	if len(fields) == 0 {
		return DefaultDepartment
	}
	return strings.Join(fields, "-")
}

// LandingPath is the screen a role opens after login.
func LandingPath(r Role, department string) string {
	switch r {
	case RoleReception:
		return "/reception"
	case RoleConsultation:
		return "/consultation"
	case RoleDepartment:
		return "/department/" + Slug(department)
	case RoleLaboratory:
		return "/laboratory"
	case RolePayment:
		return "/payment"
	case RolePharmacy:
		return "/pharmacy"
	default:
		return "/"
	}
}

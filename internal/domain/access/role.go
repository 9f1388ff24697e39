package access

import (
	"strings"
)

// Role es el conjunto cerrado de roles que conoce el motor.
// Cualquier string que no parsee a uno de estos valores se trata como sin rol (deny).
type Role string

const (
	RoleSDR         Role = "sdr"
	RoleHealthCoach Role = "health_coach"
	RoleAdmin       Role = "admin"
	RolePatient     Role = "patient"
)

// ParseRole normaliza casing y separadores ("SDR", "Health-Coach", "HEALTH_COACH").
func ParseRole(s string) (Role, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)

	switch Role(norm) {
	case RoleSDR:
		return RoleSDR, true
	case RoleHealthCoach, "healthcoach", "coach":
		return RoleHealthCoach, true
	case RoleAdmin, "administrator":
		return RoleAdmin, true
	case RolePatient:
		return RolePatient, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleSDR, RoleHealthCoach, RoleAdmin, RolePatient:
		return true
	default:
		return false
	}
}

// Actor es quien ejecuta la operación: el triple del identity provider
// más el nombre que resuelve el directorio de usuarios (opcional).
type Actor struct {
	UserID      string
	Role        Role
	Permissions []string
	Name        string
}

// HasPermission revisa los permisos declarados por el identity provider.
func (a Actor) HasPermission(p string) bool {
	for _, have := range a.Permissions {
		if strings.EqualFold(strings.TrimSpace(have), p) {
			return true
		}
	}
	return false
}

// DisplayName cae al userID si el directorio no tenía nombre.
func (a Actor) DisplayName() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.UserID
}

package users

import (
	"time"

	"crm-access-engine/internal/domain/access"
)

// User es la entrada del directorio: lo que el identity provider no manda
// (nombre, email) más el rol vigente.
type User struct {
	ID    string
	Name  string
	Email string
	Role  access.Role

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Actor arma el actor del motor para un usuario del directorio.
func (u User) Actor() access.Actor {
	return access.Actor{UserID: u.ID, Role: u.Role, Name: u.Name}
}

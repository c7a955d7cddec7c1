package models

const RoleSuperAdmin = "super_admin"

// Actor is the authenticated identity forwarded by the gateway. The auth
// service owns sessions; this service only consumes the resolved identity.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a *Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// Snapshot denormalizes the actor into an audit entry so history survives
// account deletion.
func (a *Actor) Snapshot() ActorSnapshot {
	return ActorSnapshot{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
		Role:  a.Role,
	}
}

package auth

// Claims es el triple que entrega el identity provider: {userId, role, permissions[]}.
// El motor lo toma tal cual; la verificación de firma es responsabilidad del adapter.
type Claims struct {
	UserID      string
	Role        string
	Permissions []string

	Email    string
	TenantID string
}

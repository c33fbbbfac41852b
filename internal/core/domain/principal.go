package domain

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the authenticated caller of a state-mutating operation.
type Principal struct {
	UserID string
	Role   Role
}

// SystemPrincipal acts for background reconciliation. It has operator rights and audits as "system".
var SystemPrincipal = Principal{Role: RoleAdmin}

func (p Principal) IsOperator() bool {
	return p.Role == RoleAdmin
}

// CanAccess reports whether p may act on b as its owner or as an operator.
func (p Principal) CanAccess(b *Booking) error {
	if p.IsOperator() || b.OwnedBy(p.UserID) {
		return nil
	}
	return NewNotOwnerError()
}

// Actor is the value recorded in the audit log.
func (p Principal) Actor() string {
	if p.UserID == "" {
		return ActorSystem
	}
	return p.UserID
}

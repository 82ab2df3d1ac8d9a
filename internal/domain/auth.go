package domain

// Identity is the verified caller of an operation. The zero value is an
// anonymous caller.
type Identity struct {
	UserID int64
	Role   Role
}

// Authenticated reports whether the identity carries a verified role.
func (i Identity) Authenticated() bool {
	_, ok := ParseRole(string(i.Role))
	return ok && i.UserID > 0
}

package domain

// SessionContext carries the signed-in principal into every application call.
// The zero value is an anonymous session.
type SessionContext struct {
	UserID      string
	Email       string
	Handle      string
	Name        string
	Institution string
	AvatarURL   string
}

// Authenticated reports whether a user is signed in.
func (s SessionContext) Authenticated() bool {
	return s.UserID != ""
}

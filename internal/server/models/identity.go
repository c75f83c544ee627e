package models

// Identity is the authenticated subject reconstructed from a verified token.
// It is never persisted.
type Identity struct {
	SubjectID string
	Email     string
	Role      Role
}

package dto

import "github.com/golang-jwt/jwt/v5"

// StudentClaims identifies the learner behind a session. The student ID is the subject.
type StudentClaims struct {
	jwt.RegisteredClaims
}

// StudentID returns the subject claim.
func (c *StudentClaims) StudentID() string {
	return c.Subject
}

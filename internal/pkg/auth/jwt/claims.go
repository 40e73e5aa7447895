package jwt

import (
	"github.com/golang-jwt/jwt"

	"coachlink/internal/app/identity"
)

// Payload defines the JWT claims shared with the platform backend. The
// signaling service never issues these tokens; it only validates ones the
// platform minted with the shared secret.
type Payload struct {
	// StandardClaims embeds the standard JWT fields (Exp, Iat, Iss).
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the platform account id of the token holder.
	ID string `json:"id"`

	// Role distinguishes end users from trainers ("User"/"Trainer").
	Role identity.Role `json:"role"`
}

// Participant converts the claims into the identity the rest of the
// service works with.
func (p *Payload) Participant() identity.Participant {
	return identity.Participant{ID: p.ID, Role: p.Role}
}

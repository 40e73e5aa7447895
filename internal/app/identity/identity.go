/*
Package identity contains the core data structures describing who is on the
other end of a signaling channel.

It defines the Participant struct, the single representation of a connected
account (end user or trainer) used for channel registration, call
negotiation, and message addressing.
*/
package identity

// Role classifies a participant as either an end user or a trainer.
// The wire value matches the senderModel strings used by the SPA ("User"/"Trainer").
type Role string

const (
	RoleUser    Role = "User"
	RoleTrainer Role = "Trainer"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleTrainer
}

// Participant represents one account connected to the signaling service.
// A call session carries two of these; branching on "user vs trainer" slices
// is replaced by the Role tag.
type Participant struct {
	// ID is the opaque platform account id. Immutable for the lifetime of a channel.
	ID string `json:"id"`

	// Role is the participant's account type.
	Role Role `json:"role"`

	// Name is the display name, forwarded in call offers so the callee
	// can render who is calling.
	Name string `json:"name,omitempty"`

	// Image is the avatar URL, forwarded alongside Name in call offers.
	Image string `json:"image,omitempty"`
}

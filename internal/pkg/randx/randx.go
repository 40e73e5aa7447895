/*
Package randx provides functions for generating cryptographically secure
random identifiers.

It generates fixed-length Base62 encoded call room ids and standard UUID
message/notification ids.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// CallRoomIDLength is the fixed length for generated call room ids.
	CallRoomIDLength = 12
)

// CallRoomID generates a Base62 encoded room id for a call session using
// crypto/rand.
func CallRoomID() (string, error) {
	result := make([]byte, CallRoomIDLength)

	for i := range CallRoomIDLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for room id: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// MessageID generates a UUID v4 string for a relayed chat message.
func MessageID() string {
	return uuid.New().String()
}

// NotificationID generates a UUID v4 string for a persisted notification.
func NotificationID() string {
	return uuid.New().String()
}

// IsValidCallRoomID checks length and character set of a call room id.
func IsValidCallRoomID(id string) bool {
	if len(id) != CallRoomIDLength {
		return false
	}

	for _, char := range id {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

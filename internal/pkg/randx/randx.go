/*
Package randx provides functions for generating cryptographically secure random values and unique identifiers.

It is used to generate account and envelope identifiers and fallback display names.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// DisplayNameRandomLength is the number of random characters in a generated display name.
	DisplayNameRandomLength = 6
)

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a wire envelope.
func MessageID() string {
	return uuid.New().String()
}

// AccountID generates the identifier of a new account.
func AccountID() string {
	return uuid.New().String()
}

// Base62 returns n cryptographically random Base62 characters.
func Base62(n int) (string, error) {
	result := make([]byte, n)

	for i := range n {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %v", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// DisplayName generates a random display name with a "User_" prefix,
// used when signup does not supply a full name.
func DisplayName() (string, error) {
	suffix, err := Base62(DisplayNameRandomLength)
	if err != nil {
		return "", err
	}
	return "User_" + suffix, nil
}

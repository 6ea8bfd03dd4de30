package tickets

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codePrefix = "TB-"
	codeLength = 10
	// Crockford-style alphabet: no I, L, O or U so codes survive being read aloud.
	codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

// NewCode returns a random admission code such as TB-7QK2M9XWAB.
func NewCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate ticket code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return codePrefix + string(buf), nil
}

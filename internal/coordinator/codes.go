package coordinator

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet skips visually ambiguous characters (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 6

func generateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// newRoomCode retries against the live room registry until unused.
func (c *Coordinator) newRoomCode() (string, error) {
	for {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, taken := c.rooms[code]; !taken {
			return code, nil
		}
		c.log.Debug("room code collision, regenerating")
	}
}

func (c *Coordinator) newTournamentCode() (string, error) {
	for {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, taken := c.tournaments[code]; !taken {
			return code, nil
		}
		c.log.Debug("tournament code collision, regenerating")
	}
}

// newID produces an opaque internal identifier.
func newID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			b[i] = 'x'
			continue
		}
		b[i] = charset[n.Int64()]
	}
	return string(b)
}

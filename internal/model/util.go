package model

import (
	"crypto/rand"
	"math/big"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
	"github.com/nrednav/cuid2"
)

const SizeOfUserAccount = 10

func CreateID() string {
	uuid, _ := uuid.NewRandom()
	return base58.Encode(uuid[:])
}

func CreateUserID() UserID {
	return UserID(CreateID())
}

func CreateSessionID() SessionID {
	return SessionID(cuid2.Generate())
}

// CreateUserAccount returns a random numeric account handle with no leading zero.
func CreateUserAccount() string {
	buf := make([]byte, SizeOfUserAccount)
	for i := range buf {
		limit := int64(10)
		if i == 0 {
			limit = 9
		}
		n, err := rand.Int(rand.Reader, big.NewInt(limit))
		if err != nil {
			panic(err)
		}
		buf[i] = byte('0' + n.Int64())
		if i == 0 {
			buf[i]++
		}
	}
	return string(buf)
}

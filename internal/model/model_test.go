package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfilePatch(t *testing.T) {
	assert := assert.New(t)

	t.Run("Absent, null, empty and set", func(t *testing.T) {
		patch := ProfilePatch{}
		err := json.Unmarshal([]byte(`{"nickName":null,"avatar":"","email":"a@b.com"}`), &patch)
		assert.Nil(err)

		assert.True(patch.NickName.Set)
		assert.Nil(patch.NickName.Value)
		assert.True(patch.Avatar.Set)
		assert.Nil(patch.Avatar.Value)
		assert.True(patch.Email.Set)
		assert.Equal("a@b.com", *patch.Email.Value)
		assert.False(patch.Phone.Set)

		cols := patch.Columns()
		assert.Len(cols, 3)
		assert.NotContains(cols, "Phone")
	})

	t.Run("Apply leaves absent fields", func(t *testing.T) {
		nick, phone := "al", "13800000000"
		identity := &Identity{NickName: &nick, Phone: &phone}

		patch := ProfilePatch{}
		assert.Nil(json.Unmarshal([]byte(`{"nickName":null}`), &patch))
		patch.Apply(identity)

		assert.Nil(identity.NickName)
		assert.Equal("13800000000", *identity.Phone)
	})

	t.Run("Wrong type", func(t *testing.T) {
		patch := ProfilePatch{}
		assert.NotNil(json.Unmarshal([]byte(`{"email":42}`), &patch))
	})
}

func TestIdentifiers(t *testing.T) {
	assert := assert.New(t)

	assert.NotEqual(CreateUserID(), CreateUserID())
	assert.NotEqual(CreateSessionID(), CreateSessionID())

	for i := 0; i < 100; i++ {
		account := CreateUserAccount()
		assert.Len(account, SizeOfUserAccount)
		assert.NotEqual(byte('0'), account[0])
		for _, c := range account {
			assert.True(c >= '0' && c <= '9')
		}
	}
}

func TestSessionExpired(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	s := Session{ExpTime: now}
	assert.True(s.Expired(now))
	assert.False(s.Expired(now.Add(-time.Second)))
	assert.True(s.Expired(now.Add(time.Second)))
}

func TestIdentityJSONHidesCredential(t *testing.T) {
	assert := assert.New(t)

	data, err := json.Marshal(Credential{UserID: "u", Password: "digest"})
	assert.Nil(err)
	assert.Equal("{}", string(data))
}

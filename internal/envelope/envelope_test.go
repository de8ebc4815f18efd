package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvelope(t *testing.T) {
	assert := assert.New(t)

	t.Run("Success carries data", func(t *testing.T) {
		env := New(LoginSuccess, map[string]string{"authToken": "abc"})
		data, err := json.Marshal(env)
		assert.Nil(err)
		assert.JSONEq(`{"message":"Login succeeded","success":true,"statusCode":1,"data":{"authToken":"abc"}}`, string(data))
	})

	t.Run("Nil data is an empty object", func(t *testing.T) {
		data, err := json.Marshal(New(RegisterUserNameTaken, nil))
		assert.Nil(err)
		assert.JSONEq(`{"message":"User name is already taken","success":false,"statusCode":3,"data":{}}`, string(data))
	})

	t.Run("Out of range collapses to unspecified failure", func(t *testing.T) {
		assert.Equal(0, RegisterStatus(42).Code())
		assert.Equal("Registration failed", RegisterStatus(-1).Message())
		assert.False(RegisterStatus(42).Success())
	})

	t.Run("Codes", func(t *testing.T) {
		cases := []struct {
			status Status
			code   int
		}{
			{RegisterInvalidPhone, 6},
			{RegisterSignatureFailed, 7},
			{RegisterKeyExchangeFailed, 8},
			{LoginUserNotExistOrInvalidPassword, 2},
			{GetInfoUserNotExist, 2},
			{EditInfoInvalidPhone, 4},
			{EditInfoSignatureFailed, 5},
			{LogoutSuccess, 1},
			{ModifyPasswordInvalidNewPassword, 4},
			{CancellationInvalidPassword, 3},
			{PubKeySuccess, 1},
			{SessionMissingAuthorization, 10001},
			{SessionInvalidToken, 10002},
			{SessionExpiredToken, 10003},
			{SessionStatus(12345), 10000},
		}
		for _, c := range cases {
			assert.Equal(c.code, c.status.Code(), c.status.Message())
		}
	})

	t.Run("Label", func(t *testing.T) {
		assert.Equal("10003", Label(SessionExpiredToken))
		assert.Equal("1", Label(CancellationSuccess))
	})
}

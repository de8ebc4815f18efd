package model

// Password and ClientAesKey fields arrive encrypted; services decrypt them.

type RegisterParams struct {
	UserName     string  `json:"userName"`
	Password     string  `json:"password"`
	ClientAesKey string  `json:"clientAesKey"`
	NickName     *string `json:"nickName"`
	Avatar       *string `json:"avatar"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
}

type LoginParams struct {
	User         string `json:"user"`
	Password     string `json:"password"`
	ClientAesKey string `json:"clientAesKey"`
}

type ModifyPasswordParams struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type CancellationParams struct {
	Password string `json:"password"`
}

// Signed carries a decoded request body together with its Signature header.
type Signed struct {
	Payload   map[string]any
	Signature string
}

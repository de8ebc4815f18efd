package model

import "time"

type UserID string // opaque, e.g. 3GFQNuSg3dPqDD1emxv5bqX42oxq

type UserRole int

const (
	UserRoleMember UserRole = iota
	UserRoleAdmin
)

// Identity is the public profile of a registered user.
type Identity struct {
	UserID       UserID    `db:"UserID" json:"userId"`
	UserAccount  string    `db:"UserAccount" json:"userAccount"`
	UserName     string    `db:"UserName" json:"userName"`
	NickName     *string   `db:"NickName" json:"nickName"`
	Avatar       *string   `db:"Avatar" json:"avatar"`
	Email        *string   `db:"Email" json:"email"`
	Phone        *string   `db:"Phone" json:"phone"`
	ModifiedTime time.Time `db:"ModifiedTime" json:"modifiedTime"`
	RegisterTime time.Time `db:"RegisterTime" json:"registerTime"`
}

// Credential holds the password digest for exactly one Identity.
type Credential struct {
	UserID   UserID `db:"UserID" json:"-"`
	Password string `db:"Password" json:"-"`
}

// IdentityField names the columns an identity can be looked up by.
type IdentityField string

const (
	IdentityByUserID      IdentityField = "UserID"
	IdentityByUserName    IdentityField = "UserName"
	IdentityByUserAccount IdentityField = "UserAccount"
)

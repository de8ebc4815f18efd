package envelope

type RegisterStatus int

const (
	RegisterFailed RegisterStatus = iota
	RegisterSuccess
	RegisterInvalidUserName
	RegisterUserNameTaken
	RegisterInvalidPassword
	RegisterInvalidEmail
	RegisterInvalidPhone
	RegisterSignatureFailed
	RegisterKeyExchangeFailed
)

var registerMessages = messages{
	"Registration failed",
	"Registration succeeded",
	"Invalid user name",
	"User name is already taken",
	"Invalid password",
	"Invalid email format",
	"Invalid phone number format",
	"Data signature verification failed",
	"Key exchange failed",
}

func (s RegisterStatus) Code() int       { c, _ := registerMessages.at(int(s)); return c }
func (s RegisterStatus) Message() string { _, m := registerMessages.at(int(s)); return m }
func (s RegisterStatus) Success() bool   { return s == RegisterSuccess }
func (s RegisterStatus) Flow() string    { return "register" }
func (RegisterStatus) sealed()           {}

type LoginStatus int

const (
	LoginFailed LoginStatus = iota
	LoginSuccess
	LoginUserNotExistOrInvalidPassword
	LoginSignatureFailed
	LoginKeyExchangeFailed
)

var loginMessages = messages{
	"Login failed",
	"Login succeeded",
	"User does not exist or password is invalid",
	"Data signature verification failed",
	"Key exchange failed",
}

func (s LoginStatus) Code() int       { c, _ := loginMessages.at(int(s)); return c }
func (s LoginStatus) Message() string { _, m := loginMessages.at(int(s)); return m }
func (s LoginStatus) Success() bool   { return s == LoginSuccess }
func (s LoginStatus) Flow() string    { return "login" }
func (LoginStatus) sealed()           {}

type GetInfoStatus int

const (
	GetInfoFailed GetInfoStatus = iota
	GetInfoSuccess
	GetInfoUserNotExist
)

var getInfoMessages = messages{
	"Failed to get user info",
	"Got user info",
	"User does not exist",
}

func (s GetInfoStatus) Code() int       { c, _ := getInfoMessages.at(int(s)); return c }
func (s GetInfoStatus) Message() string { _, m := getInfoMessages.at(int(s)); return m }
func (s GetInfoStatus) Success() bool   { return s == GetInfoSuccess }
func (s GetInfoStatus) Flow() string    { return "get_info" }
func (GetInfoStatus) sealed()           {}

type EditInfoStatus int

const (
	EditInfoFailed EditInfoStatus = iota
	EditInfoSuccess
	EditInfoUserNotExist
	EditInfoInvalidEmail
	EditInfoInvalidPhone
	EditInfoSignatureFailed
)

var editInfoMessages = messages{
	"Failed to edit user info",
	"User info updated",
	"User does not exist",
	"Invalid email format",
	"Invalid phone number format",
	"Data signature verification failed",
}

func (s EditInfoStatus) Code() int       { c, _ := editInfoMessages.at(int(s)); return c }
func (s EditInfoStatus) Message() string { _, m := editInfoMessages.at(int(s)); return m }
func (s EditInfoStatus) Success() bool   { return s == EditInfoSuccess }
func (s EditInfoStatus) Flow() string    { return "edit_info" }
func (EditInfoStatus) sealed()           {}

type LogoutStatus int

const (
	LogoutFailed LogoutStatus = iota
	LogoutSuccess
	LogoutUserNotExist
)

var logoutMessages = messages{
	"Logout failed",
	"Logged out",
	"User does not exist",
}

func (s LogoutStatus) Code() int       { c, _ := logoutMessages.at(int(s)); return c }
func (s LogoutStatus) Message() string { _, m := logoutMessages.at(int(s)); return m }
func (s LogoutStatus) Success() bool   { return s == LogoutSuccess }
func (s LogoutStatus) Flow() string    { return "logout" }
func (LogoutStatus) sealed()           {}

type ModifyPasswordStatus int

const (
	ModifyPasswordFailed ModifyPasswordStatus = iota
	ModifyPasswordSuccess
	ModifyPasswordUserNotExist
	ModifyPasswordInvalidOldPassword
	ModifyPasswordInvalidNewPassword
	ModifyPasswordSignatureFailed
)

var modifyPasswordMessages = messages{
	"Failed to modify password",
	"Password modified",
	"User does not exist",
	"Invalid old password",
	"Invalid new password",
	"Data signature verification failed",
}

func (s ModifyPasswordStatus) Code() int       { c, _ := modifyPasswordMessages.at(int(s)); return c }
func (s ModifyPasswordStatus) Message() string { _, m := modifyPasswordMessages.at(int(s)); return m }
func (s ModifyPasswordStatus) Success() bool   { return s == ModifyPasswordSuccess }
func (s ModifyPasswordStatus) Flow() string    { return "modify_password" }
func (ModifyPasswordStatus) sealed()           {}

type CancellationStatus int

const (
	CancellationFailed CancellationStatus = iota
	CancellationSuccess
	CancellationUserNotExist
	CancellationInvalidPassword
	CancellationSignatureFailed
)

var cancellationMessages = messages{
	"Account cancellation failed",
	"Account cancelled",
	"User does not exist",
	"Invalid password",
	"Data signature verification failed",
}

func (s CancellationStatus) Code() int       { c, _ := cancellationMessages.at(int(s)); return c }
func (s CancellationStatus) Message() string { _, m := cancellationMessages.at(int(s)); return m }
func (s CancellationStatus) Success() bool   { return s == CancellationSuccess }
func (s CancellationStatus) Flow() string    { return "cancellation" }
func (CancellationStatus) sealed()           {}

type PubKeyStatus int

const (
	PubKeyFailed PubKeyStatus = iota
	PubKeySuccess
)

var pubKeyMessages = messages{"fail", "success"}

func (s PubKeyStatus) Code() int       { c, _ := pubKeyMessages.at(int(s)); return c }
func (s PubKeyStatus) Message() string { _, m := pubKeyMessages.at(int(s)); return m }
func (s PubKeyStatus) Success() bool   { return s == PubKeySuccess }
func (s PubKeyStatus) Flow() string    { return "pubkey" }
func (PubKeyStatus) sealed()           {}

// SessionStatus is reported with HTTP 403 when an authenticated route
// rejects the caller.
type SessionStatus int

const (
	SessionDenied SessionStatus = 10000 + iota
	SessionMissingAuthorization
	SessionInvalidToken
	SessionExpiredToken
)

var sessionMessages = messages{
	"Access denied",
	"Request header without Authorization",
	"Token is invalid",
	"Token is expired",
}

func (s SessionStatus) Code() int {
	c, _ := sessionMessages.at(int(s - SessionDenied))
	return int(SessionDenied) + c
}
func (s SessionStatus) Message() string { _, m := sessionMessages.at(int(s - SessionDenied)); return m }
func (s SessionStatus) Success() bool   { return false }
func (s SessionStatus) Flow() string    { return "verify_session" }
func (SessionStatus) sealed()           {}

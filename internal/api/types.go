package api

import "golang.org/x/text/unicode/norm"

// Account is the identity record returned by the service. It is an
// immutable value once constructed — every authoritative update from the
// service replaces the whole struct.
type Account struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
}

// UserProfile is the secondary profile data associated one-to-one with an
// Account, independently fetchable and updatable.
type UserProfile struct {
	Bio            string `json:"bio"`
	Birthdate      string `json:"birthdate"` // YYYY-MM-DD
	ProfilePicture string `json:"profile_picture"`
	TwoFactorAuth  bool   `json:"two_factor_enabled"`
}

// LoginResult is the payload of a successful login or token validation:
// the account plus the session token proving it.
type LoginResult struct {
	Account Account
	Token   string
}

// RegisterRequest carries the fields for account creation. Registration
// does not create a session.
type RegisterRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// ProfileUpdate carries optional scalar profile fields. Empty fields are
// omitted from the outgoing payload so they do not overwrite existing
// server-side values.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Email     string
	Bio       string
	Birthdate string // YYYY-MM-DD
}

// ProfileResult is the combined account+profile payload of a profile
// update response.
type ProfileResult struct {
	Account Account
	Profile UserProfile
}

// fields returns the update as a form-field map, omitting empty values.
// Free-text fields are NFC-normalized so composed and decomposed input
// compare equal server-side.
func (u ProfileUpdate) fields() map[string]string {
	out := make(map[string]string)

	put := func(key, val string) {
		if val != "" {
			out[key] = norm.NFC.String(val)
		}
	}

	put("first_name", u.FirstName)
	put("last_name", u.LastName)
	put("email", u.Email)
	put("bio", u.Bio)
	put("birthdate", u.Birthdate)

	return out
}

// loginResponse is the raw wire shape of POST /auth/login and
// POST /auth/validate-token.
type loginResponse struct {
	User         *Account `json:"user"`
	SessionToken string   `json:"session_token"`
	Message      string   `json:"message"`
}

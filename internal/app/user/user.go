/*
Package user contains the profile representation shared by the session layer,
the authentication API client and the development server.

The profile is opaque to the session core beyond its ID, which keys the presence connection.
*/
package user

import "encoding/json"

// User represents the profile of an authenticated account.
// Fields use the JSON names of the authentication API.
type User struct {

	// ID is the unique identifier of the account and the presence connection key.
	ID string `json:"_id"`

	// Email is the login identifier. Servers may omit it.
	Email string `json:"email,omitempty"`

	// FullName is the display name.
	FullName string `json:"fullName"`

	// Bio is a short free-text description.
	Bio string `json:"bio,omitempty"`

	// ProfilePictureURL is the URL of the avatar image, if any.
	ProfilePictureURL string `json:"profilePic,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id" for the identifier.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		AltID string `json:"id"`
	}{plain: (*plain)(u)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

// Valid reports whether the profile carries an identifier usable as a connection key.
func (u *User) Valid() bool {
	return u != nil && u.ID != ""
}

// Clone returns an independent copy of the profile.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Patch carries the fields of a profile update. Nil fields are left unchanged by the server.
type Patch struct {
	FullName          *string `json:"fullName,omitempty"`
	Bio               *string `json:"bio,omitempty"`
	ProfilePictureURL *string `json:"profilePic,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.FullName == nil && p.Bio == nil && p.ProfilePictureURL == nil
}

// Apply returns a copy of u with the patch applied. The receiver is not modified.
func (p Patch) Apply(u User) User {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.ProfilePictureURL != nil {
		u.ProfilePictureURL = *p.ProfilePictureURL
	}
	return u
}

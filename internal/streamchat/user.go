package streamchat

import (
	"net/url"

	stream "github.com/GetStream/stream-chat-go/v6"
)

const avatarBaseURL = "https://ui-avatars.com/api/"

// User is the chat profile registered alongside a token.
type User struct {
	ID    string
	Name  string
	Email string
	Image string
	Role  string
}

// NewUser builds a profile with the platform defaults: the display name falls back to
// the email then "User", the email to <id>@example.com, and the avatar is generated
// from the display name.
func NewUser(id, name, email string) User {
	display := name
	if display == "" {
		display = email
	}
	if display == "" {
		display = "User"
	}

	if email == "" {
		email = id + "@example.com"
	}

	return User{
		ID:    id,
		Name:  display,
		Email: email,
		Image: avatarURL(display),
	}
}

func avatarURL(name string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("background", "random")
	return avatarBaseURL + "?" + q.Encode()
}

func (u User) toSDK() *stream.User {
	su := &stream.User{
		ID:    u.ID,
		Name:  u.Name,
		Image: u.Image,
		Role:  u.Role,
	}
	if u.Email != "" {
		su.ExtraData = map[string]interface{}{"email": u.Email}
	}
	return su
}

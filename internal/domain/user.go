package domain

// User is a registered account. Relations to rooms are id-based and
// resolved through the store, never held as object references.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	// bcrypt hash, never serialized
	PasswordHash string `json:"-"`
}

// RegisterUser is the signup request payload.
type RegisterUser struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password"`
}

// LoginUser is the login request payload.
type LoginUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

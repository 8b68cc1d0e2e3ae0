package domain

// User is a registered board member.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	// PasswordHash is the bcrypt hash of the user's password. It never
	// leaves the server.
	PasswordHash string `json:"-"`
}

// DefaultRole is assigned to users on registration.
const DefaultRole = "user"

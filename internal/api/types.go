package api

// TaskInput is the body for creating or fully editing a task.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	User        string `json:"user"`
}

// StatusUpdate is the body of a status-only change.
type StatusUpdate struct {
	Status string `json:"status"`
}

// LoginResult is the answer to a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"_id"`
		Email string `json:"email"`
	} `json:"user"`
}

// NewUser is the registration payload. Field names follow the API.
type NewUser struct {
	FirstName       string `json:"nombres"`
	LastName        string `json:"apellidos"`
	Age             int    `json:"edad"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ProfileUpdate holds the profile fields to change, keyed by their API
// names (nombres, apellidos, email). Absent keys are left alone.
type ProfileUpdate map[string]string

// PasswordReset is the body of a password reset.
type PasswordReset struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

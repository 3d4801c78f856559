package model

import "strings"

// User is the account record returned by the user service.
type User struct {
	ID        int     `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"firstName,omitempty"`
	LastName  string  `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

// DisplayName returns "First Last", falling back to the email.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Credentials is the POST /auth/login body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that both fields are present.
func (c *Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return NewBadRequestError("Email and password are required")
	}
	return nil
}

// Registration is the POST /auth/register body.
type Registration struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
}

// Validate mirrors the user service's required field check.
func (r *Registration) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"email", r.Email},
		{"password", r.Password},
		{"firstName", r.FirstName},
		{"lastName", r.LastName},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return NewBadRequestError(f.field + " is required")
		}
	}
	return nil
}

// AuthResponse is returned by both login and register.
type AuthResponse struct {
	Message     string `json:"message,omitempty"`
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
}

// ServiceError is the {error: string} body every remote service returns on failure.
type ServiceError struct {
	Error string `json:"error"`
}

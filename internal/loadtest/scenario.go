package loadtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Step is one request of a virtual user's iteration.
type Step struct {
	Name   string
	Method string
	Path   string

	// Body builds the JSON body for a user's iteration. Nil sends none.
	Body func(vu, iter int) ([]byte, error)

	WantStatus  int
	MaxDuration time.Duration

	// Pause is the think time after the step.
	Pause time.Duration
}

// DefaultScenario browses the storefront and registers a fresh account.
func DefaultScenario() []Step {
	return []Step{
		{
			Name:        "homepage",
			Method:      http.MethodGet,
			Path:        "/",
			WantStatus:  http.StatusOK,
			MaxDuration: time.Second,
			Pause:       time.Second,
		},
		{
			Name:        "products API",
			Method:      http.MethodGet,
			Path:        "/api/products",
			WantStatus:  http.StatusOK,
			MaxDuration: 500 * time.Millisecond,
			Pause:       time.Second,
		},
		{
			Name:        "registration",
			Method:      http.MethodPost,
			Path:        "/api/users/register",
			Body:        registrationBody,
			WantStatus:  http.StatusCreated,
			MaxDuration: time.Second,
			Pause:       2 * time.Second,
		},
	}
}

// registrationBody builds a user no other iteration has registered.
func registrationBody(vu, iter int) ([]byte, error) {
	tag := fmt.Sprintf("%d_%d_%d", time.Now().UnixNano(), vu, iter)
	return json.Marshal(map[string]string{
		"username":  "user_" + tag,
		"email":     "user_" + tag + "@example.com",
		"password":  "password123",
		"firstName": "Load",
		"lastName":  "Test",
	})
}

// checkNames are the two checks evaluated for every step.
func (s Step) checkNames() (status, latency string) {
	return fmt.Sprintf("%s status is %d", s.Name, s.WantStatus),
		fmt.Sprintf("%s under %s", s.Name, s.MaxDuration)
}

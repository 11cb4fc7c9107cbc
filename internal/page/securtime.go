package page

import (
	"net/url"
	"strings"

	"punchAgent/internal/browser"
	"punchAgent/internal/punch"
)

const (
	signInLabel   = "Sign In"
	punchInLabel  = "Punch In"
	punchOutLabel = "Punch Out"
	successMarker = "success"

	defaultLandingPath = "/welcome"
)

// SecurTime - адаптер для ADP SecurTime.
type SecurTime struct {
	landingURL  string
	landingPath string
	form        LoginForm
}

func NewSecurTime(landingURL string) *SecurTime {
	path := defaultLandingPath
	if u, err := url.Parse(landingURL); err == nil && u.Path != "" && u.Path != "/" {
		path = u.Path
	}

	return &SecurTime{
		landingURL:  landingURL,
		landingPath: path,
		form: LoginForm{
			Email:    `input[type="email"]`,
			Password: `input[type="password"]`,
			Submit:   `st-button[type="submit"] button.mybtn, button[type="submit"]`,
		},
	}
}

func (s *SecurTime) Classify(snapshot *browser.PageSnapshot) State {
	var state State
	if snapshot == nil {
		return state
	}

	for _, btn := range snapshot.Buttons {
		text := btn.Text
		if strings.Contains(text, signInLabel) {
			state.NeedsLogin = true
		}
		if strings.Contains(text, punchInLabel) {
			state.HasPunchIn = true
		}
		if strings.Contains(text, punchOutLabel) {
			state.HasPunchOut = true
		}
	}
	state.OnLanding = strings.Contains(snapshot.URL, s.landingPath) && !state.NeedsLogin
	return state
}

func (s *SecurTime) Locate(snapshot *browser.PageSnapshot, action punch.Action) (*Match, error) {
	if snapshot == nil {
		return Locate(nil, action)
	}
	return Locate(snapshot.Buttons, action)
}

func (s *SecurTime) LoginForm() LoginForm {
	return s.form
}

func (s *SecurTime) LandingURL() string {
	return s.landingURL
}

func (s *SecurTime) Confirmed(bodyText string) bool {
	return strings.Contains(strings.ToLower(bodyText), successMarker)
}

// Package page отделяет знание о разметке сайта от цикла согласования состояния.
// Агент работает только с Adapter; при изменении интерфейса сайта меняется адаптер.
package page

import (
	"punchAgent/internal/browser"
	"punchAgent/internal/punch"
)

// Adapter знает, как выглядит конкретное приложение табеля.
type Adapter interface {
	// Classify вычисляет состояние страницы по снимку. Чистая функция.
	Classify(snapshot *browser.PageSnapshot) State
	// Locate ищет кнопку действия среди кнопок снимка.
	Locate(snapshot *browser.PageSnapshot, action punch.Action) (*Match, error)
	LoginForm() LoginForm
	LandingURL() string
	// Confirmed сообщает, подтвердила ли страница отметку.
	Confirmed(bodyText string) bool
}

// LoginForm - CSS селекторы формы входа.
type LoginForm struct {
	Email    string
	Password string
	Submit   string
}

// Phase - одна из четырех ветвей цикла согласования.
type Phase string

const (
	PhaseNeedsLogin       Phase = "needs-login"
	PhaseReady            Phase = "ready"
	PhaseLandingNoButtons Phase = "landing-no-buttons"
	PhaseOffLanding       Phase = "off-landing"
)

// State - вычисленные признаки страницы.
type State struct {
	NeedsLogin  bool
	HasPunchIn  bool
	HasPunchOut bool
	OnLanding   bool
}

// Ready истинно, когда есть хотя бы одна кнопка отметки и не требуется вход.
func (s State) Ready() bool {
	return (s.HasPunchIn || s.HasPunchOut) && !s.NeedsLogin
}

// Has проверяет наличие кнопки для конкретного действия.
func (s State) Has(action punch.Action) bool {
	if action == punch.Out {
		return s.HasPunchOut
	}
	return s.HasPunchIn
}

// Phase выбирает ветку. Вход важнее всего остального: кнопка "Sign In"
// означает логин, даже если на странице видны кнопки отметки.
func (s State) Phase() Phase {
	switch {
	case s.NeedsLogin:
		return PhaseNeedsLogin
	case s.Ready():
		return PhaseReady
	case s.OnLanding:
		return PhaseLandingNoButtons
	default:
		return PhaseOffLanding
	}
}

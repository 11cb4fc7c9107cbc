package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"punchAgent/internal/browser"
	"punchAgent/internal/config"
	"punchAgent/internal/diagnostics"
	"punchAgent/internal/llm"
	"punchAgent/internal/page"
	"punchAgent/internal/punch"

	"go.uber.org/zap"
)

// Agent выполняет сценарий отметки в одной сессии браузера.
// Повторы сценария - забота Runner.
type Agent struct {
	browser browser.Browser
	adapter page.Adapter
	picker  llm.ButtonPicker
	shooter *diagnostics.Shooter
	log     *zap.Logger
	session config.Session
	creds   config.Credentials
	runID   string
	sleep   func(ctx context.Context, d time.Duration) error
}

// New создает агента поверх уже запущенного браузера.
// Если в сессии не заданы лимиты, используются значения по умолчанию:
//   - PageAttempts: 3
//   - Timeout: 30 секунд
func New(br browser.Browser, adapter page.Adapter, log *zap.Logger, cfg Config, runID string) *Agent {
	session := cfg.Session
	if session.PageAttempts <= 0 {
		session.PageAttempts = 3
	}
	if session.Timeout <= 0 {
		session.Timeout = 30 * time.Second
	}

	shooter := cfg.Shooter
	if shooter == nil {
		shooter = diagnostics.Disabled()
	}

	return &Agent{
		browser: br,
		adapter: adapter,
		picker:  cfg.Picker,
		shooter: shooter,
		log:     log,
		session: session,
		creds:   cfg.Credentials,
		runID:   runID,
		sleep:   sleepCtx,
	}
}

// Start открывает страницу входа. Сайт сам перенаправит на /welcome, если сессия жива.
func (a *Agent) Start(ctx context.Context) error {
	a.log.Info("🌐 Открываю страницу входа", zap.String("url", a.session.LoginURL))
	if err := a.browser.Navigate(ctx, a.session.LoginURL); err != nil {
		return fmt.Errorf("страница входа не открылась: %w", err)
	}
	return nil
}

// Authenticate заполняет форму входа и ждет перехода после отправки.
func (a *Agent) Authenticate(ctx context.Context) error {
	form := a.adapter.LoginForm()
	a.log.Info("🔐 Выполняю вход")

	if err := a.browser.Fill(ctx, form.Email, a.creds.Username); err != nil {
		return newActionError(ErrAuthentication, "authenticate", "поле email недоступно", err)
	}
	if err := a.browser.Fill(ctx, form.Password, a.creds.Password); err != nil {
		return newActionError(ErrAuthentication, "authenticate", "поле пароля недоступно", err)
	}
	if err := a.browser.ClickAndWaitForNavigation(ctx, form.Submit, a.session.Timeout); err != nil {
		return newActionError(ErrAuthentication, "authenticate", "переход после входа не состоялся", err)
	}

	a.shooter.Capture(ctx, a.browser, "login")
	a.log.Info("✅ Вход выполнен")
	return nil
}

// EnsureReady приводит страницу в состояние, где видна кнопка отметки.
// Каждая итерация делает снимок и выбирает одну ветку по его состоянию.
func (a *Agent) EnsureReady(ctx context.Context) (*Readiness, error) {
	limit := a.session.PageAttempts

	for attempt := 1; attempt <= limit; attempt++ {
		snapshot, err := a.browser.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("снимок страницы: %w", err)
		}
		a.shooter.Capture(ctx, a.browser, fmt.Sprintf("page-state-attempt-%d", attempt))

		state := a.adapter.Classify(snapshot)
		phase := state.Phase()
		a.log.Info("🔍 Состояние страницы",
			zap.Int("page_attempt", attempt),
			zap.Int("page_attempts", limit),
			zap.String("phase", string(phase)),
			zap.String("url", snapshot.URL),
			zap.Strings("buttons", snapshot.Labels()),
		)

		switch phase {
		case page.PhaseReady:
			return &Readiness{Snapshot: snapshot, State: state}, nil

		case page.PhaseNeedsLogin:
			if err := a.Authenticate(ctx); err != nil {
				return nil, err
			}
			if err := a.sleep(ctx, a.session.SettleDelay); err != nil {
				return nil, err
			}

		case page.PhaseLandingNoButtons:
			a.log.Debug("Кнопки отметки еще не появились, жду")
			if err := a.sleep(ctx, a.session.SettleDelay); err != nil {
				return nil, err
			}

		default:
			landing := a.adapter.LandingURL()
			a.log.Info("↪️ Перехожу на стартовую страницу", zap.String("url", landing))
			if err := a.browser.Navigate(ctx, landing); err != nil {
				// Следующая итерация все равно сделает снимок.
				a.log.Warn("Переход не удался", zap.Error(err))
			}
			if err := a.sleep(ctx, a.session.Delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, newActionError(ErrUnreachableState, "ensure_ready",
		fmt.Sprintf("страница не готова после %d проверок", limit), nil)
}

// Punch находит и нажимает кнопку действия. Нативные диалоги принимаются
// только пока идет нажатие.
func (a *Agent) Punch(ctx context.Context, action punch.Action) (*Outcome, error) {
	ready, err := a.EnsureReady(ctx)
	if err != nil {
		return nil, err
	}

	// Без нужной кнопки правила по тексту не применяются: третье правило
	// совпало бы с любой подписью, содержащей "in" или "out".
	if !ready.State.Has(action) && a.picker == nil {
		return nil, &page.ButtonNotFoundError{Label: action.Label(), Observed: ready.Snapshot.Labels()}
	}

	unsubscribe := a.browser.OnDialog(func(d browser.Dialog) bool {
		a.log.Info("💬 Диалог принят", zap.String("type", d.Type), zap.String("message", d.Message))
		return true
	})
	defer unsubscribe()

	snapshot, err := a.browser.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("снимок перед нажатием: %w", err)
	}

	match, err := a.locate(ctx, snapshot, action)
	if err != nil {
		return nil, err
	}

	a.log.Info("👆 Нажимаю кнопку",
		zap.String("button", match.Button.Text),
		zap.Int("index", match.Button.Index),
		zap.String("strategy", match.Strategy.String()),
	)
	if err := a.browser.ClickButton(ctx, match.Button.Index); err != nil {
		return nil, err
	}

	if err := a.sleep(ctx, a.session.SettleDelay); err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Button:     match.Button.Text,
		Strategy:   match.Strategy,
		Screenshot: a.shooter.Capture(ctx, a.browser, "success-"+action.Lower()),
	}

	body, err := a.browser.BodyText(ctx)
	if err != nil {
		a.log.Warn("Не удалось прочитать текст страницы", zap.Error(err))
	}
	outcome.Confirmed = a.adapter.Confirmed(body)

	if outcome.Confirmed {
		a.log.Info("🎉 Отметка подтверждена", zap.String("action", action.Label()))
	} else {
		a.log.Info("Кнопка нажата, подтверждения на странице нет", zap.String("action", action.Label()))
	}
	return outcome, nil
}

// locate применяет правила адаптера, только если на странице есть кнопка действия.
// Иначе выбор делает LLM, а без нее возвращается ButtonNotFoundError.
func (a *Agent) locate(ctx context.Context, snapshot *browser.PageSnapshot, action punch.Action) (*page.Match, error) {
	if a.adapter.Classify(snapshot).Has(action) {
		match, err := a.adapter.Locate(snapshot, action)
		if err == nil || a.picker == nil || !errors.Is(err, page.ErrButtonNotFound) {
			return match, err
		}
		return a.pick(ctx, snapshot, action, err)
	}

	notFound := &page.ButtonNotFoundError{Label: action.Label(), Observed: snapshot.Labels()}
	if a.picker == nil {
		return nil, notFound
	}
	return a.pick(ctx, snapshot, action, notFound)
}

// pick спрашивает LLM. Если модель не выбрала кнопку из списка, возвращается notFound.
func (a *Agent) pick(ctx context.Context, snapshot *browser.PageSnapshot, action punch.Action, notFound error) (*page.Match, error) {
	a.log.Info("🤖 Кнопки действия нет среди правил, спрашиваю LLM", zap.Strings("buttons", snapshot.Labels()))
	choice, err := a.picker.PickButton(ctx, a.runID, action.Label(), snapshot.Labels())
	if err != nil {
		a.log.Warn("LLM не помогла", zap.Error(err))
		return nil, notFound
	}
	if choice.Index < 0 || choice.Index >= len(snapshot.Buttons) {
		return nil, notFound
	}

	a.log.Info("LLM выбрала кнопку", zap.Int("index", choice.Index), zap.String("reasoning", choice.Reasoning))
	return &page.Match{Button: snapshot.Buttons[choice.Index], Strategy: page.StrategyLLM}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"punchAgent/internal/agent"
	"punchAgent/internal/cli/ui"
	"punchAgent/internal/punch"
	"punchAgent/internal/sanitizer"

	"go.uber.org/zap"
)

// Runner - то, что умеет выполнять и проверять отметку.
type Runner interface {
	RunTriggered(ctx context.Context, action punch.Action, trigger string) (*agent.Result, error)
	Check(ctx context.Context) (*agent.CheckReport, error)
}

// PunchHandler обрабатывает команды punch и check
type PunchHandler struct {
	runner    Runner
	sanitizer *sanitizer.DataSanitizer
	log       *zap.Logger
	out       io.Writer
}

func NewPunchHandler(runner Runner, san *sanitizer.DataSanitizer, log *zap.Logger, out io.Writer) *PunchHandler {
	return &PunchHandler{
		runner:    runner,
		sanitizer: san,
		log:       log,
		out:       out,
	}
}

// Punch выполняет отметку. explicit сообщает, задано ли действие явно.
func (h *PunchHandler) Punch(ctx context.Context, action punch.Action, explicit bool) error {
	source := "по времени суток"
	if explicit {
		source = "задано явно"
	}
	fmt.Fprintf(h.out, ui.ColorCyan+ui.IconPlay+" %s"+ui.ColorReset+ui.ColorGray+" (%s)"+ui.ColorReset+"\n", action.Label(), source)

	res, err := h.runner.RunTriggered(ctx, action, agent.TriggerCLI)
	if err != nil {
		if errors.Is(err, agent.ErrBusy) {
			fmt.Fprintln(h.out, ui.Errorf("Отметка уже выполняется"))
			return err
		}
		fmt.Fprintln(h.out, ui.Errorf("Ошибка: %s", h.sanitizer.Error(err)))
		return err
	}

	fmt.Fprintf(h.out, ui.ColorGreen+ui.IconCheckmark+" Нажата кнопка %q"+ui.ColorReset+" (%s)\n", res.Button, ui.FormatConfirmed(res.Confirmed))
	fmt.Fprintf(h.out, "  "+ui.ColorGray+"run %s, попыток: %d, способ: %s, %s"+ui.ColorReset+"\n",
		res.RunID, res.Attempts, res.Strategy, ui.FormatDuration(res.Duration))
	if res.Screenshot != "" {
		fmt.Fprintf(h.out, "  "+ui.ColorGray+ui.IconCamera+" %s"+ui.ColorReset+"\n", res.Screenshot)
	}
	return nil
}

// Check входит на сайт и показывает состояние страницы без нажатия.
func (h *PunchHandler) Check(ctx context.Context) error {
	fmt.Fprintln(h.out, ui.ColorCyan+ui.IconGlobe+" Проверка страницы..."+ui.ColorReset)

	report, err := h.runner.Check(ctx)
	if err != nil {
		fmt.Fprintln(h.out, ui.Errorf("Ошибка: %s", h.sanitizer.Error(err)))
		return err
	}

	fmt.Fprintf(h.out, ui.ColorGreen+ui.IconCheckmark+" Страница готова:"+ui.ColorReset+" %s\n", report.Phase)
	fmt.Fprintf(h.out, "  "+ui.ColorCyan+"URL:"+ui.ColorReset+" %s\n", report.URL)
	fmt.Fprintf(h.out, "  "+ui.ColorCyan+"Кнопки:"+ui.ColorReset+" %s\n", strings.Join(h.sanitizer.Labels(report.Buttons), ", "))
	if g := report.Geolocation; g != nil {
		fmt.Fprintf(h.out, "  "+ui.ColorCyan+ui.IconPin+" Геолокация:"+ui.ColorReset+" %.7f, %.7f (±%.0f м)\n", g.Latitude, g.Longitude, g.Accuracy)
	} else {
		fmt.Fprintln(h.out, "  "+ui.ColorYellow+ui.IconPin+" Геолокация недоступна"+ui.ColorReset)
	}
	return nil
}

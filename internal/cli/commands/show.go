package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"punchAgent/internal/cli/ui"
	"punchAgent/internal/database"

	"go.uber.org/zap"
)

// ErrHistoryDisabled возвращается, когда база для истории не настроена.
var ErrHistoryDisabled = errors.New("история запусков недоступна: база данных не настроена")

type History interface {
	GetRun(ctx context.Context, runID string) (*database.PunchRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]database.PunchRun, error)
}

// ShowHandler обрабатывает команды просмотра истории
type ShowHandler struct {
	history History
	log     *zap.Logger
	out     io.Writer
}

func NewShowHandler(history History, log *zap.Logger, out io.Writer) *ShowHandler {
	return &ShowHandler{
		history: history,
		log:     log,
		out:     out,
	}
}

// List выводит последние запуски
func (h *ShowHandler) List(ctx context.Context, limit int) error {
	if h.history == nil {
		fmt.Fprintln(h.out, ui.Errorf("%s", ErrHistoryDisabled))
		return ErrHistoryDisabled
	}

	runs, err := h.history.ListRuns(ctx, limit, 0)
	if err != nil {
		h.log.Error("Ошибка чтения запусков", zap.Error(err))
		fmt.Fprintln(h.out, ui.Errorf("Ошибка чтения запусков"))
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(h.out, ui.ColorGray+"Запусков пока нет"+ui.ColorReset)
		return nil
	}

	fmt.Fprintln(h.out, "\n"+ui.ColorBold+ui.IconList+" Последние запуски:"+ui.ColorReset)
	fmt.Fprintln(h.out)
	for _, r := range runs {
		icon, color, text := ui.FormatStatus(r.Status)
		fmt.Fprintf(h.out, "  "+ui.ColorBold+"%s"+ui.ColorReset+" %s%s %s"+ui.ColorReset+" %s\n", r.RunID, color, icon, text, r.Action)
		fmt.Fprintf(h.out, "  "+ui.ColorGray+"└─ %s, %s, попыток: %d"+ui.ColorReset+"\n", ui.FormatTime(&r.StartedAt), r.Trigger, r.Attempts)
	}
	fmt.Fprintln(h.out)
	return nil
}

// Show выводит детали запуска со всеми неудачными попытками
func (h *ShowHandler) Show(ctx context.Context, runID string) error {
	if h.history == nil {
		fmt.Fprintln(h.out, ui.Errorf("%s", ErrHistoryDisabled))
		return ErrHistoryDisabled
	}

	run, err := h.history.GetRun(ctx, runID)
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintln(h.out, ui.Errorf("Запуск не найден"))
		return err
	}
	if err != nil {
		h.log.Error("Ошибка чтения запуска", zap.Error(err))
		fmt.Fprintln(h.out, ui.Errorf("Ошибка чтения запуска"))
		return err
	}

	_, color, statusText := ui.FormatStatus(run.Status)

	fmt.Fprintf(h.out, "\n"+ui.ColorBold+"=== Запуск %s ==="+ui.ColorReset+"\n", run.RunID)
	fmt.Fprintf(h.out, ui.ColorCyan+"Действие:"+ui.ColorReset+" %s (%s)\n", run.Action, run.Trigger)
	fmt.Fprintf(h.out, ui.ColorCyan+"Статус:"+ui.ColorReset+" %s%s"+ui.ColorReset+"\n", color, statusText)
	fmt.Fprintf(h.out, ui.ColorCyan+ui.IconTime+" Начат:"+ui.ColorReset+" %s\n", ui.FormatTime(&run.StartedAt))
	fmt.Fprintf(h.out, ui.ColorCyan+ui.IconTime+" Завершен:"+ui.ColorReset+" %s\n", ui.FormatTime(run.EndedAt))
	if run.Strategy != "" {
		fmt.Fprintf(h.out, ui.ColorCyan+"Способ:"+ui.ColorReset+" %s, %s\n", run.Strategy, ui.FormatConfirmed(run.Confirmed))
	}
	if run.Summary != "" {
		fmt.Fprintf(h.out, ui.ColorCyan+ui.IconChat+" Итог:"+ui.ColorReset+" %s\n", run.Summary)
	}

	if len(run.AttemptLog) > 0 {
		fmt.Fprintln(h.out)
		for _, a := range run.AttemptLog {
			fmt.Fprintf(h.out, ui.ColorGray+"[%s]"+ui.ColorReset+" "+ui.ColorRed+"попытка %d"+ui.ColorReset+" → "+ui.ColorYellow+"%s"+ui.ColorReset+"\n",
				a.CreatedAt.Local().Format("15:04:05"), a.AttemptNo, a.Phase)
			fmt.Fprintf(h.out, "  %s\n", a.Error)
			if a.ScreenshotPath != "" {
				fmt.Fprintf(h.out, "  "+ui.ColorGray+ui.IconCamera+" %s"+ui.ColorReset+"\n", a.ScreenshotPath)
			}
		}
	}
	fmt.Fprintln(h.out)
	return nil
}

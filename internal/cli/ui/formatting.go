package ui

import (
	"fmt"
	"time"
)

// FormatStatus возвращает иконку, цвет и текст для статуса запуска
func FormatStatus(status string) (icon, color, text string) {
	switch status {
	case "succeeded":
		return IconCheckmark, ColorGreen, "выполнен"
	case "failed":
		return IconCross, ColorRed, "ошибка"
	case "running":
		return IconPlay, ColorCyan, "выполняется"
	default:
		return IconClock, ColorYellow, status
	}
}

// FormatConfirmed описывает, нашлось ли подтверждение на странице.
func FormatConfirmed(confirmed bool) string {
	if confirmed {
		return ColorGreen + "подтверждено" + ColorReset
	}
	return ColorYellow + "без подтверждения" + ColorReset
}

// FormatDuration округляет длительность для вывода.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// FormatTime выводит время или прочерк, если его нет.
func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func Errorf(format string, args ...any) string {
	return ColorRed + IconCross + " " + fmt.Sprintf(format, args...) + ColorReset
}

// Package punch описывает действие отметки и выбор действия по умолчанию.
package punch

import (
	"fmt"
	"strings"
	"time"
)

// Action - одно из двух действий табеля, фиксированное на время запуска.
type Action string

const (
	In  Action = "IN"
	Out Action = "OUT"
)

// Parse разбирает значение вроде "in", "OUT", " Out ".
func Parse(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN":
		return In, nil
	case "OUT":
		return Out, nil
	default:
		return "", fmt.Errorf("неизвестное действие %q: ожидается IN или OUT", s)
	}
}

func (a Action) String() string {
	return string(a)
}

// Label - текст кнопки на странице ("Punch In" / "Punch Out").
func (a Action) Label() string {
	return "Punch " + a.Word()
}

// Word - слово действия без "Punch" ("In" / "Out").
func (a Action) Word() string {
	if a == Out {
		return "Out"
	}
	return "In"
}

// Lower используется в именах файлов скриншотов.
func (a Action) Lower() string {
	return strings.ToLower(string(a))
}

// DefaultAction выбирает действие по часу локального времени в фиксированной зоне:
// до cutoffHour - In, начиная с него - Out.
func DefaultAction(now time.Time, offset time.Duration, cutoffHour int) Action {
	local := now.In(time.FixedZone("local", int(offset.Seconds())))
	if local.Hour() < cutoffHour {
		return In
	}
	return Out
}

// Resolve возвращает явное действие, если оно задано, иначе действие по времени суток.
func Resolve(override string, now time.Time, offset time.Duration, cutoffHour int) (Action, bool, error) {
	if strings.TrimSpace(override) != "" {
		a, err := Parse(override)
		return a, true, err
	}
	return DefaultAction(now, offset, cutoffHour), false, nil
}

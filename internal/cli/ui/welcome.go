package ui

import (
	"fmt"
	"io"
)

const Version = "v0.3.0"

// Banner - что показать при запуске долгоживущих режимов.
type Banner struct {
	Mode      string
	Driver    string
	Latitude  float64
	Longitude float64
	Addr      string
	Schedules []string
}

// PrintBanner выводит приветствие с параметрами запуска
func PrintBanner(w io.Writer, b Banner) {
	fmt.Fprintln(w, ColorBold+IconTime+" punch-agent "+Version+ColorReset+ColorGray+" ("+b.Mode+")"+ColorReset)
	fmt.Fprintln(w, ColorGray+"Автоматическая отметка в ADP SecurTime"+ColorReset)
	fmt.Fprintf(w, "  "+ColorCyan+IconGlobe+" Браузер:"+ColorReset+" %s\n", b.Driver)
	fmt.Fprintf(w, "  "+ColorCyan+IconPin+" Координаты:"+ColorReset+" %.7f, %.7f\n", b.Latitude, b.Longitude)
	if b.Addr != "" {
		fmt.Fprintf(w, "  "+ColorCyan+IconPlay+" API:"+ColorReset+" http://%s\n", b.Addr)
	}
	for _, s := range b.Schedules {
		fmt.Fprintf(w, "  "+ColorCyan+IconClock+" Расписание:"+ColorReset+" %s\n", s)
	}
	fmt.Fprintln(w)
}

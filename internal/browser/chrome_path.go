package browser

import (
	"os"
	"os/exec"
	"runtime"
)

// FindChromiumExecutable ищет Chrome/Chromium в PATH и в стандартных местах установки.
// Пустая строка означает, что chromedp попробует найти браузер сам.
func FindChromiumExecutable() string {
	candidates := []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "chrome", "chrome.exe"}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	var common []string
	switch runtime.GOOS {
	case "windows":
		common = []string{
			"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe",
			"C:\\Program Files (x86)\\Google\\Chrome\\Application\\chrome.exe",
		}
	case "darwin":
		common = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	}
	for _, path := range common {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

type Cfg struct {
	Session     Session
	Credentials Credentials
	Punch       Punch
	Browser     Browser
	Logger      Logger
	Database    Database
	Migrations  Migrations
	OpenAI      OpenAI
	Server      Server
	Schedule    Schedule
	Diagnostics Diagnostics
}

// Session описывает неизменяемые параметры одной сессии отметки.
type Session struct {
	Latitude     float64
	Longitude    float64
	Accuracy     float64
	LoginURL     string
	LandingURL   string
	Timeout      time.Duration // сетевой таймаут (ожидание селекторов и навигации)
	Delay        time.Duration // пауза после навигации
	SettleDelay  time.Duration // пауза перед повторной проверкой страницы
	PageAttempts int           // лимит итераций согласования состояния страницы
	MaxRetries   int           // лимит попыток всего сценария
	RetryDelay   time.Duration // фиксированная пауза между попытками
	ViewportW    int
	ViewportH    int
	UserAgent    string
}

// Origin возвращает origin страницы логина, для которого выдается разрешение на геолокацию.
func (s Session) Origin() string {
	u, err := url.Parse(s.LoginURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

type Credentials struct {
	Username string
	Password string
}

type Punch struct {
	Override   string        // явное действие из PUNCH_TYPE
	TZOffset   time.Duration // смещение локального времени относительно UTC
	CutoffHour int           // до этого часа по умолчанию выполняется Punch In

	offsetErr error
}

type Browser struct {
	Driver   string
	Headless bool
	ExecPath string
}

type Logger struct {
	Env   string
	Level string
	File  string
}

type Database struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// Enabled сообщает, настроена ли база для истории запусков.
func (d Database) Enabled() bool {
	return d.Host != ""
}

func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// URL возвращает строку подключения в формате, который ожидает golang-migrate.
func (d Database) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

type Migrations struct {
	Path string
}

type OpenAI struct {
	KeyAI             string
	Model             string
	RequestsPerMinute int
}

type Server struct {
	Host string
	Port string
}

type Schedule struct {
	In  string
	Out string
}

type Diagnostics struct {
	Enabled bool
	Dir     string
}

func Load() (*Cfg, error) {
	_ = godotenv.Load()

	tzOffset, offsetErr := ParseOffset(env("PUNCH_TZ_OFFSET", "+05:30"))

	cfg := &Cfg{
		Session: Session{
			Latitude:     envFloat("PUNCH_LATITUDE", 17.4661607),
			Longitude:    envFloat("PUNCH_LONGITUDE", 78.2846192),
			Accuracy:     envFloat("PUNCH_ACCURACY", 50),
			LoginURL:     env("ADP_LOGIN_URL", "https://infoservices.securtime.adp.com/login?redirectUrl=%2Fwelcome"),
			LandingURL:   env("ADP_WELCOME_URL", "https://infoservices.securtime.adp.com/welcome"),
			Timeout:      envDuration("PUNCH_TIMEOUT", 30*time.Second),
			Delay:        envDuration("PUNCH_DELAY", 2*time.Second),
			SettleDelay:  envDuration("PUNCH_SETTLE_DELAY", 3*time.Second),
			PageAttempts: envInt("PUNCH_PAGE_ATTEMPTS", 3),
			MaxRetries:   envInt("PUNCH_MAX_RETRIES", 2),
			RetryDelay:   envDuration("PUNCH_RETRY_DELAY", 10*time.Second),
			ViewportW:    1366,
			ViewportH:    768,
			UserAgent:    env("BROWSER_USER_AGENT", DefaultUserAgent),
		},
		Credentials: Credentials{
			Username: os.Getenv("ADP_USERNAME"),
			Password: os.Getenv("ADP_PASSWORD"),
		},
		Punch: Punch{
			Override:   strings.TrimSpace(os.Getenv("PUNCH_TYPE")),
			TZOffset:   tzOffset,
			CutoffHour: envInt("PUNCH_CUTOFF_HOUR", 12),
			offsetErr:  offsetErr,
		},
		Browser: Browser{
			Driver:   strings.ToLower(env("BROWSER_DRIVER", DriverPlaywright)),
			Headless: envBoolDefault("PW_HEADLESS", true),
			ExecPath: os.Getenv("CHROME_PATH"),
		},
		Logger: Logger{
			Env:   env("ENV", "dev"),
			Level: env("LOG_LEVEL", "info"),
			File:  os.Getenv("LOG_FILE"),
		},
		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     env("DB_PORT", "5432"),
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASS"),
		},
		Migrations: Migrations{
			Path: env("MIGRATIONS_PATH", "file://migrations"),
		},
		OpenAI: OpenAI{
			KeyAI:             os.Getenv("OPENAI_API_KEY"),
			Model:             env("OPENAI_MODEL", "gpt-4o"),
			RequestsPerMinute: envInt("OPENAI_RPM", 20),
		},
		Server: Server{
			Host: env("APP_HOST", "0.0.0.0"),
			Port: env("APP_PORT", "8080"),
		},
		Schedule: Schedule{
			In:  env("SCHEDULE_IN", "0 5 * * 1-5"),
			Out: env("SCHEDULE_OUT", "30 15 * * 1-5"),
		},
		Diagnostics: Diagnostics{
			Enabled: envBoolDefault("SCREENSHOTS", true),
			Dir:     env("SCREENSHOT_DIR", "screenshots"),
		},
	}

	return cfg, nil
}

// Validate проверяет конфигурацию перед запуском браузера.
// Учетные данные нужны только командам, которые логинятся, поэтому проверяются отдельно.
func (c *Cfg) Validate() error {
	s := c.Session
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("широта вне диапазона: %v", s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("долгота вне диапазона: %v", s.Longitude)
	}
	if s.Accuracy < 0 {
		return fmt.Errorf("точность не может быть отрицательной: %v", s.Accuracy)
	}
	if s.Origin() == "" {
		return fmt.Errorf("некорректный ADP_LOGIN_URL: %q", s.LoginURL)
	}
	if s.LandingURL == "" {
		return fmt.Errorf("ADP_WELCOME_URL не задан")
	}
	if s.PageAttempts <= 0 || s.MaxRetries <= 0 {
		return fmt.Errorf("лимиты попыток должны быть положительными (page=%d, retries=%d)", s.PageAttempts, s.MaxRetries)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("PUNCH_TIMEOUT должен быть положительным")
	}
	if c.Punch.offsetErr != nil {
		return fmt.Errorf("PUNCH_TZ_OFFSET: %w", c.Punch.offsetErr)
	}
	if c.Punch.CutoffHour < 0 || c.Punch.CutoffHour > 24 {
		return fmt.Errorf("PUNCH_CUTOFF_HOUR вне диапазона: %d", c.Punch.CutoffHour)
	}
	switch c.Browser.Driver {
	case DriverPlaywright, DriverChromedp:
	default:
		return fmt.Errorf("неизвестный BROWSER_DRIVER: %s", c.Browser.Driver)
	}
	if o := strings.ToUpper(c.Punch.Override); o != "" && o != "IN" && o != "OUT" {
		return fmt.Errorf("PUNCH_TYPE должен быть IN или OUT, получено %q", c.Punch.Override)
	}
	return nil
}

// RequireCredentials проверяет наличие логина и пароля.
func (c *Cfg) RequireCredentials() error {
	if c.Credentials.Username == "" || c.Credentials.Password == "" {
		return fmt.Errorf("не заданы ADP_USERNAME и/или ADP_PASSWORD")
	}
	return nil
}

func env(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// ParseOffset разбирает смещение UTC вида +05:30, -03:00 или 05:30.
// Целое число без двоеточия считается минутами.
func ParseOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("пустое смещение")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return checkOffset(time.Duration(n) * time.Minute)
	}

	sign := time.Duration(1)
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("ожидается ±HH:MM, получено %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || len(hh) > 2 {
		return 0, fmt.Errorf("некорректные часы в смещении %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("некорректные минуты в смещении %q", s)
	}
	return checkOffset(sign * (time.Duration(h)*time.Hour + time.Duration(m)*time.Minute))
}

func checkOffset(d time.Duration) (time.Duration, error) {
	if d < -14*time.Hour || d > 14*time.Hour {
		return 0, fmt.Errorf("смещение вне диапазона ±14:00: %v", d)
	}
	return d, nil
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "true" || v == "1" || v == "yes"
}

func envBoolDefault(key string, defaultValue bool) bool {
	if os.Getenv(key) == "" {
		return defaultValue
	}
	return envBool(key)
}

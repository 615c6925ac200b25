package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/resguardoti/activos/internal/auth"
)

// Config centraliza la configuración cargada del ambiente.
type Config struct {
	Port         int
	DBDSN        string
	RedisURL     string
	AllowOrigins []string

	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig

	JWTAccessSecret   string
	JWTRefreshSecret  string
	JWTAccessTTL      time.Duration
	JWTRefreshTTLDays int
	JWTIssuer         string
	JWTAudience       string

	CredencialesKey   string
	CredencialesKeyV1 string

	Rotacion       RotacionConfig
	BootstrapAdmin BootstrapAdminConfig
}

// RateLimitConfig representa límites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// RotacionConfig gobierna la pasada programada de re-cifrado.
type RotacionConfig struct {
	Enabled  bool
	Cron     string
	Timezone string
}

// BootstrapAdminConfig describe el administrador inicial sembrado al arranque.
type BootstrapAdminConfig struct {
	Enabled  bool
	Nombre   string
	Email    string
	Password string
	Rol      auth.Rol
}

// Load carga variables de ambiente y aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obligatorio")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obligatorio")
	}

	cfg.JWTAccessSecret = strings.TrimSpace(getEnv("JWT_ACCESS_SECRET", ""))
	if len(cfg.JWTAccessSecret) < 20 {
		return nil, errors.New("JWT_ACCESS_SECRET debe tener al menos 20 caracteres")
	}
	cfg.JWTRefreshSecret = strings.TrimSpace(getEnv("JWT_REFRESH_SECRET", ""))
	if len(cfg.JWTRefreshSecret) < 20 {
		return nil, errors.New("JWT_REFRESH_SECRET debe tener al menos 20 caracteres")
	}
	// Dos secretos independientes: poseer un tipo de token no permite forjar el otro.
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, errors.New("JWT_ACCESS_SECRET y JWT_REFRESH_SECRET deben ser distintos")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshDays, err := parseIntEnv("JWT_REFRESH_TTL_DAYS", 30)
	if err != nil || refreshDays <= 0 {
		return nil, errors.New("JWT_REFRESH_TTL_DAYS inválido")
	}
	cfg.JWTRefreshTTLDays = refreshDays

	cfg.JWTIssuer = strings.TrimSpace(getEnv("JWT_ISSUER", ""))
	cfg.JWTAudience = strings.TrimSpace(getEnv("JWT_AUDIENCE", ""))

	cfg.CredencialesKey = strings.TrimSpace(getEnv("CREDENTIALS_ENC_KEY", ""))
	if cfg.CredencialesKey == "" {
		return nil, errors.New("CREDENTIALS_ENC_KEY obligatoria")
	}
	cfg.CredencialesKeyV1 = strings.TrimSpace(getEnv("CREDENTIALS_ENC_KEY_V1", ""))

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	cfg.Rotacion = RotacionConfig{
		Enabled:  getEnv("ROTATE_CREDENTIALS_ENABLED", "false") == "true",
		Cron:     getEnv("ROTATE_CREDENTIALS_CRON", "0 3 * * *"),
		Timezone: getEnv("ROTATE_CREDENTIALS_TZ", ""),
	}

	cfg.BootstrapAdmin = BootstrapAdminConfig{
		Enabled:  getEnv("BOOTSTRAP_ADMIN_ENABLED", "true") == "true",
		Nombre:   strings.TrimSpace(getEnv("BOOTSTRAP_ADMIN_NAME", "")),
		Email:    strings.ToLower(strings.TrimSpace(getEnv("BOOTSTRAP_ADMIN_EMAIL", ""))),
		Password: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}
	rol, err := auth.ParseRol(getEnv("BOOTSTRAP_ADMIN_ROLE", "ADMIN"))
	if err != nil {
		return nil, errors.New("BOOTSTRAP_ADMIN_ROLE inválido")
	}
	cfg.BootstrapAdmin.Rol = rol

	if cfg.BootstrapAdmin.Enabled {
		if cfg.BootstrapAdmin.Nombre == "" || cfg.BootstrapAdmin.Email == "" || cfg.BootstrapAdmin.Password == "" {
			return nil, errors.New("faltan variables BOOTSTRAP_ADMIN_* con BOOTSTRAP_ADMIN_ENABLED=true")
		}
	}

	return cfg, nil
}

// RefreshTTL devuelve la vigencia del refresh token como duración.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseIntEnv(key string, def int) (int, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return n, nil
}

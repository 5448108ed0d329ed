package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del tracker.
type Config struct {
	Tracker TrackerConfig `yaml:"tracker"`
	Source  SourceConfig  `yaml:"source"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// TrackerConfig controla las ventanas de captura y la cadencia de polling.
// Los umbrales son política ajustada empíricamente, no constantes: la
// latencia del upstream y el jitter del poll afectan el margen seguro.
type TrackerConfig struct {
	QuarterLengthSeconds int `yaml:"quarter_length_seconds"` // 300 para ligas 4x5min
	OpenerWindowSeconds  int `yaml:"opener_window_seconds"`  // captura del opener dentro de N s del inicio de Q1
	QuarterEndSeconds    int `yaml:"quarter_end_seconds"`    // captura de cierre con ≤N s restantes
	IdleIntervalSeconds  int `yaml:"idle_interval_seconds"`  // poll lento sin eventos live
	RosterRefreshSeconds int `yaml:"roster_refresh_seconds"` // cadencia del refresco de fixtures
	FinalGraceMinutes    int `yaml:"final_grace_minutes"`    // minutos desde el inicio antes de buscar finales por API
}

// SourceConfig apunta al feed de datos upstream.
type SourceConfig struct {
	BaseURL        string   `yaml:"base_url"`
	Token          string   `yaml:"-"` // solo por env (BETSAPI_KEY), nunca en YAML ni logs
	Bookmaker      string   `yaml:"bookmaker"`
	TargetLeagues  []string `yaml:"target_leagues"`  // substrings en minúsculas
	BlockedLeagues []string `yaml:"blocked_leagues"` // exclusiones, ganan sobre target
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// MetricsConfig controla el endpoint /metrics de prometheus.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // p.ej. ":9120"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// El token del upstream viene solo del entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IdleInterval devuelve el intervalo de poll sin eventos live.
func (c *Config) IdleInterval() time.Duration {
	return time.Duration(c.Tracker.IdleIntervalSeconds) * time.Second
}

// RosterRefresh devuelve la cadencia del refresco de fixtures.
func (c *Config) RosterRefresh() time.Duration {
	return time.Duration(c.Tracker.RosterRefreshSeconds) * time.Second
}

// FinalGrace devuelve cuánto esperar desde el inicio del partido antes de
// consultar el endpoint de resultados por finales que no llegaron.
func (c *Config) FinalGrace() time.Duration {
	return time.Duration(c.Tracker.FinalGraceMinutes) * time.Minute
}

func (c *Config) validate() error {
	if c.Tracker.QuarterEndSeconds >= c.Tracker.QuarterLengthSeconds {
		return fmt.Errorf("config: quarter_end_seconds (%d) must be below quarter_length_seconds (%d)",
			c.Tracker.QuarterEndSeconds, c.Tracker.QuarterLengthSeconds)
	}
	if c.Tracker.OpenerWindowSeconds >= c.Tracker.QuarterLengthSeconds {
		return fmt.Errorf("config: opener_window_seconds (%d) must be below quarter_length_seconds (%d)",
			c.Tracker.OpenerWindowSeconds, c.Tracker.QuarterLengthSeconds)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BETSAPI_KEY"); v != "" {
		cfg.Source.Token = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Los umbrales de captura vienen del tracker original de producción.
func setDefaults(cfg *Config) {
	if cfg.Tracker.QuarterLengthSeconds <= 0 {
		cfg.Tracker.QuarterLengthSeconds = 300
	}
	if cfg.Tracker.OpenerWindowSeconds <= 0 {
		cfg.Tracker.OpenerWindowSeconds = 5
	}
	if cfg.Tracker.QuarterEndSeconds <= 0 {
		cfg.Tracker.QuarterEndSeconds = 10
	}
	if cfg.Tracker.IdleIntervalSeconds <= 0 {
		cfg.Tracker.IdleIntervalSeconds = 60
	}
	if cfg.Tracker.RosterRefreshSeconds <= 0 {
		cfg.Tracker.RosterRefreshSeconds = 120
	}
	if cfg.Tracker.FinalGraceMinutes <= 0 {
		cfg.Tracker.FinalGraceMinutes = 20
	}
	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = "https://api.b365api.com"
	}
	if cfg.Source.Bookmaker == "" {
		cfg.Source.Bookmaker = "bet365"
	}
	if len(cfg.Source.TargetLeagues) == 0 {
		cfg.Source.TargetLeagues = []string{"ebasketball h2h gg league - 4x5mins"}
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "data/qlines.db"
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9120"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

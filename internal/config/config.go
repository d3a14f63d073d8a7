package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	AI            AIConfig             `koanf:"ai" validate:"required"`
	Weather       WeatherConfig        `koanf:"weather" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

type DatabaseConfig struct {
	URL             string `koanf:"url" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime"`
}

// AuthConfig drives bearer-credential verification. WeatherPublic keeps
// the weather route reachable without a credential; set it to false to
// guard weather with the same middleware as the advisory routes.
type AuthConfig struct {
	JWTSecret     string `koanf:"jwt_secret" validate:"required"`
	Issuer        string `koanf:"issuer"`
	WeatherPublic *bool  `koanf:"weather_public"`
}

// AIConfig points at the OpenAI-compatible completion gateway.
type AIConfig struct {
	BaseURL    string `koanf:"base_url" validate:"required,url"`
	APIKey     string `koanf:"api_key" validate:"required"`
	ChatModel  string `koanf:"chat_model"`
	JSONModel  string `koanf:"json_model"`
	TimeoutSec int    `koanf:"timeout_sec"`
}

type WeatherConfig struct {
	BaseURL    string `koanf:"base_url" validate:"required,url"`
	APIKey     string `koanf:"api_key" validate:"required"`
	TimeoutSec int    `koanf:"timeout_sec"`
}

// LoadConfig loads the configuration from environment variables using koanf.
func LoadConfig() (mainConfig *Config, err error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	k := koanf.New(".")
	err = k.Load(env.Provider("AGRIMITRA_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "AGRIMITRA_"))
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load initial env variables")
	}

	mainConfig = &Config{}
	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not unmarshal mainconfig")
	}

	applyDefaults(mainConfig)

	validate := validator.New()
	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not validate the struct")
	}

	// set default observability config if not provided
	// in config struct we set Observability as pointer type to check whether it is nil or not
	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// fill some of the fields
	mainConfig.Observability.ServiceName = "agrimitra"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	err = mainConfig.Observability.Validate()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid observability config")
	}

	return
}

func applyDefaults(c *Config) {
	if c.AI.ChatModel == "" {
		c.AI.ChatModel = "google/gemini-2.5-flash"
	}
	if c.AI.JSONModel == "" {
		c.AI.JSONModel = "google/gemini-2.5-flash"
	}
	if c.AI.TimeoutSec == 0 {
		c.AI.TimeoutSec = 120
	}
	if c.Weather.TimeoutSec == 0 {
		c.Weather.TimeoutSec = 15
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "agrimitra"
	}
	if c.Auth.WeatherPublic == nil {
		public := true
		c.Auth.WeatherPublic = &public
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
}

// WeatherIsPublic reports whether the weather route skips auth.
func (c *Config) WeatherIsPublic() bool {
	return c.Auth.WeatherPublic == nil || *c.Auth.WeatherPublic
}

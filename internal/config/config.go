package config

import (
	"strings"
	"time"

	"crm-access-engine/internal/platform/valkey"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig es la config de proceso. Se arma una vez al arrancar; lo único que
// se recarga en caliente es la GlobalAccessConfig (ver AccessConfigHolder).
type AppConfig struct {
	Port      string
	DBDSN     string
	LogLevel  string
	LogFormat string
	AppName   string

	AccessConfigFile string

	Valkey       valkey.Config
	EvalCacheTTL time.Duration

	AuditSQLitePath string

	JWTSecret string
	JWTIssuer string

	IDPBaseURL string
	IDPAPIKey  string
}

// UsesValkey indica si hay que intentar el cache distribuido.
func (c AppConfig) UsesValkey() bool { return strings.TrimSpace(c.Valkey.Address) != "" }

// NewViper arma un viper que lee env vars (APP_PORT, DB_DSN, ...) con defaults.
// Carga .env si existe; si no, sigue con el entorno del proceso.
func NewViper() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("app_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("app_name", "crm-access-engine")
	v.SetDefault("access_config_file", "")
	v.SetDefault("valkey_db", 0)
	v.SetDefault("valkey_key_prefix", "crm")
	v.SetDefault("eval_cache_ttl", "30s")
	v.SetDefault("jwt_issuer", "")
	return v
}

// Load lee AppConfig desde un viper ya preparado (flags de cobra incluidas).
func Load(v *viper.Viper) AppConfig {
	if v == nil {
		v = NewViper()
	}

	ttl := v.GetDuration("eval_cache_ttl")
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return AppConfig{
		Port:             strings.TrimSpace(v.GetString("app_port")),
		DBDSN:            strings.TrimSpace(v.GetString("db_dsn")),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
		AppName:          v.GetString("app_name"),
		AccessConfigFile: strings.TrimSpace(v.GetString("access_config_file")),
		Valkey: valkey.Config{
			Address:   strings.TrimSpace(v.GetString("valkey_address")),
			Password:  v.GetString("valkey_password"),
			DB:        v.GetInt("valkey_db"),
			KeyPrefix: v.GetString("valkey_key_prefix"),
		},
		EvalCacheTTL:    ttl,
		AuditSQLitePath: strings.TrimSpace(v.GetString("audit_sqlite_path")),
		JWTSecret:       v.GetString("jwt_secret"),
		JWTIssuer:       v.GetString("jwt_issuer"),
		IDPBaseURL:      strings.TrimSpace(v.GetString("idp_base_url")),
		IDPAPIKey:       v.GetString("idp_api_key"),
	}
}

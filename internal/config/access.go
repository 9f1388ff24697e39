package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/platform/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var ErrInvalidAccessConfig = errors.New("invalid access config")

// AccessConfigHolder guarda la GlobalAccessConfig vigente. Cada decisión toma un
// Snapshot; un reload reemplaza el puntero entero.
type AccessConfigHolder struct {
	cur atomic.Pointer[access.GlobalAccessConfig]
	log logger.Logger
}

func NewAccessConfigHolder(initial access.GlobalAccessConfig, log logger.Logger) *AccessConfigHolder {
	if log == nil {
		log = logger.Nop()
	}
	h := &AccessConfigHolder{log: log}
	h.cur.Store(&initial)
	return h
}

func (h *AccessConfigHolder) Snapshot() access.GlobalAccessConfig {
	return *h.cur.Load()
}

// Replace valida y publica una config nueva.
func (h *AccessConfigHolder) Replace(cfg access.GlobalAccessConfig) error {
	if err := validateAccessConfig(cfg); err != nil {
		return err
	}
	h.cur.Store(&cfg)
	return nil
}

// LoadAccessConfig lee un yaml (o json/toml, según extensión) sobre los defaults.
// Claves ausentes conservan el valor por defecto.
func LoadAccessConfig(path string) (access.GlobalAccessConfig, *viper.Viper, error) {
	cfg := access.DefaultGlobalAccessConfig()

	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, nil, fmt.Errorf("read access config %s: %w", path, err)
	}

	if err := decodeAccessConfig(v, &cfg); err != nil {
		return access.DefaultGlobalAccessConfig(), nil, err
	}
	return cfg, v, nil
}

// WatchAccessConfig recarga el archivo cuando cambia. Una versión inválida se
// loguea y se descarta; sigue vigente la anterior.
func (h *AccessConfigHolder) WatchAccessConfig(v *viper.Viper) {
	if v == nil {
		return
	}
	v.OnConfigChange(func(ev fsnotify.Event) {
		h.reload(v, ev.Name)
	})
	v.WatchConfig()
}

func (h *AccessConfigHolder) reload(v *viper.Viper, name string) {
	cfg := access.DefaultGlobalAccessConfig()
	if err := decodeAccessConfig(v, &cfg); err != nil {
		h.log.Error("access config reload rejected", map[string]any{"file": name, "err": err.Error()})
		return
	}
	if err := h.Replace(cfg); err != nil {
		h.log.Error("access config reload rejected", map[string]any{"file": name, "err": err.Error()})
		return
	}
	h.log.Info("access config reloaded", map[string]any{"file": name})
}

func decodeAccessConfig(v *viper.Viper, cfg *access.GlobalAccessConfig) error {
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAccessConfig, err)
	}
	return validateAccessConfig(*cfg)
}

func validateAccessConfig(cfg access.GlobalAccessConfig) error {
	for _, t := range access.AllEntityTypes {
		if h := cfg.For(t).HealthCoachUnassignedAfterHours; h < 0 {
			return fmt.Errorf("%w: %s.health_coach_unassigned_after_hours must be >= 0", ErrInvalidAccessConfig, t)
		}
	}
	return nil
}

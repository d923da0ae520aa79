package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	BillIDLayoutDDMMYY   = "DDMMYY"
	BillIDLayoutYYYYMMDD = "YYYYMMDD"
)

// NumberingConfig is the invoice identifier policy.
type NumberingConfig struct {
	MaxAllocationAttempts int    `mapstructure:"maxAllocationAttempts"`
	BillIDLayout          string `mapstructure:"billIdLayout"`
}

func DefaultNumberingConfig() NumberingConfig {
	return NumberingConfig{
		MaxAllocationAttempts: 5,
		BillIDLayout:          BillIDLayoutDDMMYY,
	}
}

type NumberingConfigHolder struct {
	current atomic.Value // holds NumberingConfig
}

// NewStaticNumberingConfig returns a holder that never reloads.
func NewStaticNumberingConfig(cfg NumberingConfig) *NumberingConfigHolder {
	holder := &NumberingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewNumberingConfigHolder(cfg Config, log *zap.Logger) (*NumberingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("invoicebook")
	v.SetConfigType("yml")
	if cfg.NumberingConfigDir != "" {
		v.AddConfigPath(cfg.NumberingConfigDir)
	}
	v.AddConfigPath("/etc/invoicebook")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INVOICEBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultNumberingConfig()
	v.SetDefault("numbering.maxAllocationAttempts", defaults.MaxAllocationAttempts)
	v.SetDefault("numbering.billIdLayout", defaults.BillIDLayout)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	numbering, err := readNumberingConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticNumberingConfig(numbering)
	if !fileLoaded {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := readNumberingConfig(v)
		if err != nil {
			log.Warn("numbering config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("numbering config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

// readNumberingConfig reads each key on its own so INVOICEBOOK_NUMBERING_*
// variables override the file.
func readNumberingConfig(v *viper.Viper) (NumberingConfig, error) {
	cfg := normalizeNumberingConfig(NumberingConfig{
		MaxAllocationAttempts: v.GetInt("numbering.maxAllocationAttempts"),
		BillIDLayout:          v.GetString("numbering.billIdLayout"),
	})
	if err := validateNumberingConfig(cfg); err != nil {
		return NumberingConfig{}, err
	}
	return cfg, nil
}

func (h *NumberingConfigHolder) Get() NumberingConfig {
	if h == nil {
		return DefaultNumberingConfig()
	}
	cfg, ok := h.current.Load().(NumberingConfig)
	if !ok {
		return DefaultNumberingConfig()
	}
	return cfg
}

func normalizeNumberingConfig(cfg NumberingConfig) NumberingConfig {
	cfg.BillIDLayout = strings.ToUpper(strings.TrimSpace(cfg.BillIDLayout))
	if cfg.BillIDLayout == "" {
		cfg.BillIDLayout = BillIDLayoutDDMMYY
	}
	return cfg
}

func validateNumberingConfig(cfg NumberingConfig) error {
	if cfg.MaxAllocationAttempts < 1 {
		return fmt.Errorf("numbering.maxAllocationAttempts must be >= 1, got %d", cfg.MaxAllocationAttempts)
	}
	switch cfg.BillIDLayout {
	case BillIDLayoutDDMMYY, BillIDLayoutYYYYMMDD:
		return nil
	default:
		return fmt.Errorf("numbering.billIdLayout %q is not supported", cfg.BillIDLayout)
	}
}

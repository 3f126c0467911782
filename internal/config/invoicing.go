package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InvoicingConfig carries the tunables read by the invoice generator and
// the report renderers. It is reloaded from invoicing.yml without restart.
type InvoicingConfig struct {
	NumberTemplate       string  `mapstructure:"numberTemplate"`
	DueDays              int     `mapstructure:"dueDays"`
	DefaultMarkupPercent float64 `mapstructure:"defaultMarkupPercent"`
	WeekStart            string  `mapstructure:"weekStart"`
	Currency             string  `mapstructure:"currency"`
}

func DefaultInvoicingConfig() InvoicingConfig {
	return InvoicingConfig{
		NumberTemplate:       "{PROJECT}-{SEQ3}",
		DueDays:              30,
		DefaultMarkupPercent: 20,
		WeekStart:            "monday",
		Currency:             "USD",
	}
}

// WeekStartDay resolves the configured week start, Monday when unset.
func (c InvoicingConfig) WeekStartDay() time.Weekday {
	switch strings.ToLower(strings.TrimSpace(c.WeekStart)) {
	case "sunday":
		return time.Sunday
	case "saturday":
		return time.Saturday
	default:
		return time.Monday
	}
}

type InvoicingConfigHolder struct {
	current atomic.Value // holds InvoicingConfig
}

// NewStaticInvoicingConfigHolder returns a holder that never reloads.
func NewStaticInvoicingConfigHolder(cfg InvoicingConfig) *InvoicingConfigHolder {
	holder := &InvoicingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewInvoicingConfigHolder(log *zap.Logger) (*InvoicingConfigHolder, error) {
	log = log.Named("config.invoicing")
	v := viper.New()

	v.SetConfigName("invoicing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/constructtrack/config")
	v.AddConfigPath("/etc/constructtrack")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CONSTRUCTTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoicingConfig()
	v.SetDefault("invoicing.numberTemplate", defaults.NumberTemplate)
	v.SetDefault("invoicing.dueDays", defaults.DueDays)
	v.SetDefault("invoicing.defaultMarkupPercent", defaults.DefaultMarkupPercent)
	v.SetDefault("invoicing.weekStart", defaults.WeekStart)
	v.SetDefault("invoicing.currency", defaults.Currency)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg InvoicingConfig
	if err := v.UnmarshalKey("invoicing", &cfg); err != nil {
		return nil, err
	}
	if err := validateInvoicingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticInvoicingConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InvoicingConfig
		if err := v.UnmarshalKey("invoicing", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateInvoicingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *InvoicingConfigHolder) Get() InvoicingConfig {
	if h == nil {
		return DefaultInvoicingConfig()
	}
	return h.current.Load().(InvoicingConfig)
}

func validateInvoicingConfig(cfg InvoicingConfig) error {
	if strings.TrimSpace(cfg.NumberTemplate) == "" {
		return errors.New("invoicing.numberTemplate cannot be empty")
	}
	if !strings.Contains(cfg.NumberTemplate, "{SEQ") {
		return errors.New("invoicing.numberTemplate must contain a {SEQ} token")
	}
	if cfg.DueDays < 0 {
		return errors.New("invoicing.dueDays cannot be negative")
	}
	if cfg.DefaultMarkupPercent < 0 {
		return errors.New("invoicing.defaultMarkupPercent cannot be negative")
	}
	return nil
}

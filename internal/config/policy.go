package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Policy is the immutable billing and brand policy shared by the lifecycle
// engine, the reminder scanner and the renderers.
type Policy struct {
	TaxRate               float64     `mapstructure:"taxRate"`
	Currency              string      `mapstructure:"currency"`
	Cycles                CycleMonths `mapstructure:"cycles"`
	ReminderLeadDays      int         `mapstructure:"reminderLeadDays"`
	InvoiceNumberTemplate string      `mapstructure:"invoiceNumberTemplate"`
	Timezone              string      `mapstructure:"timezone"`
	Company               Company     `mapstructure:"company"`
	Brand                 Brand       `mapstructure:"brand"`
}

type CycleMonths struct {
	Monthly   int `mapstructure:"monthly"`
	SixMonths int `mapstructure:"sixMonths"`
	Yearly    int `mapstructure:"yearly"`
}

type Company struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Email   string `mapstructure:"email"`
	Phone   string `mapstructure:"phone"`
	TaxID   string `mapstructure:"taxId"`
	Website string `mapstructure:"website"`
}

type Brand struct {
	PrimaryColor string `mapstructure:"primaryColor"`
	AccentColor  string `mapstructure:"accentColor"`
	LogoURL      string `mapstructure:"logoUrl"`
	AppName      string `mapstructure:"appName"`
}

func DefaultPolicy() Policy {
	return Policy{
		TaxRate:  0.18,
		Currency: "INR",
		Cycles: CycleMonths{
			Monthly:   1,
			SixMonths: 6,
			Yearly:    12,
		},
		ReminderLeadDays:      3,
		InvoiceNumberTemplate: "INV-{YYYY}{MM}{DD}-{TXN6}",
		Timezone:              "UTC",
		Company: Company{
			Name: "Ticketflow",
		},
		Brand: Brand{
			PrimaryColor: "#1E3A8A",
			AccentColor:  "#F59E0B",
			AppName:      "Ticketflow",
		},
	}
}

// TaxRateDecimal returns the VAT rate as a decimal.
func (p Policy) TaxRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(p.TaxRate)
}

// Location resolves the policy timezone, falling back to UTC.
func (p Policy) Location() *time.Location {
	name := strings.TrimSpace(p.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func NewPolicyHolder(cfg Config) (*PolicyHolder, error) {
	v := viper.New()

	if cfg.PolicyPath != "" {
		v.SetConfigFile(cfg.PolicyPath)
	} else {
		v.SetConfigName("policy")
		v.SetConfigType("yml")
		v.AddConfigPath("/var/lib/ticketflow/config")
		v.AddConfigPath("/etc/ticketflow")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TICKETFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setPolicyDefaults(v, DefaultPolicy())

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var p Policy
	if err := v.UnmarshalKey("policy", &p); err != nil {
		return nil, err
	}
	if err := ValidatePolicy(p); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(p)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[policy] reload failed: %v", err)
			return
		}
		if err := ValidatePolicy(updated); err != nil {
			log.Printf("[policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Get returns the current policy snapshot.
func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

func setPolicyDefaults(v *viper.Viper, p Policy) {
	v.SetDefault("policy.taxRate", p.TaxRate)
	v.SetDefault("policy.currency", p.Currency)
	v.SetDefault("policy.cycles.monthly", p.Cycles.Monthly)
	v.SetDefault("policy.cycles.sixMonths", p.Cycles.SixMonths)
	v.SetDefault("policy.cycles.yearly", p.Cycles.Yearly)
	v.SetDefault("policy.reminderLeadDays", p.ReminderLeadDays)
	v.SetDefault("policy.invoiceNumberTemplate", p.InvoiceNumberTemplate)
	v.SetDefault("policy.timezone", p.Timezone)
	v.SetDefault("policy.company.name", p.Company.Name)
	v.SetDefault("policy.brand.primaryColor", p.Brand.PrimaryColor)
	v.SetDefault("policy.brand.accentColor", p.Brand.AccentColor)
	v.SetDefault("policy.brand.appName", p.Brand.AppName)
}

func ValidatePolicy(p Policy) error {
	if p.TaxRate < 0 || p.TaxRate >= 1 {
		return fmt.Errorf("policy.taxRate must be in [0,1), got %v", p.TaxRate)
	}
	if p.Cycles.Monthly <= 0 || p.Cycles.SixMonths <= 0 || p.Cycles.Yearly <= 0 {
		return errors.New("policy.cycles must be positive month counts")
	}
	if p.ReminderLeadDays <= 0 {
		return errors.New("policy.reminderLeadDays must be positive")
	}
	if strings.TrimSpace(p.InvoiceNumberTemplate) == "" {
		return errors.New("policy.invoiceNumberTemplate cannot be empty")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(p.Timezone)); err != nil {
		return fmt.Errorf("policy.timezone: %w", err)
	}
	return nil
}

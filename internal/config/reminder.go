package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReminderTemplates is the operator-tunable copy used by the reminder
// scheduler. It lives in reminders.yml so front-desk wording changes do
// not need a redeploy.
type ReminderTemplates struct {
	UpcomingSubject string `mapstructure:"upcomingSubject"`
	UpcomingBody    string `mapstructure:"upcomingBody"`
	OverdueSubject  string `mapstructure:"overdueSubject"`
	OverdueBody     string `mapstructure:"overdueBody"`
}

func DefaultReminderTemplates() ReminderTemplates {
	return ReminderTemplates{
		UpcomingSubject: "Your membership payment is due soon",
		UpcomingBody:    "Hi {{.Name}}, your next payment of {{.Amount}} is due on {{.DueDate}}.",
		OverdueSubject:  "Your membership payment is overdue",
		OverdueBody:     "Hi {{.Name}}, your payment of {{.Amount}} was due on {{.DueDate}}. Please settle it at the front desk.",
	}
}

type ReminderTemplatesHolder struct {
	current atomic.Value // holds ReminderTemplates
}

func NewReminderTemplatesHolder() (*ReminderTemplatesHolder, error) {
	v := viper.New()

	v.SetConfigName("reminders")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/gymdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GYMDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultReminderTemplates()
		v.SetDefault("reminders.upcomingSubject", defaults.UpcomingSubject)
		v.SetDefault("reminders.upcomingBody", defaults.UpcomingBody)
		v.SetDefault("reminders.overdueSubject", defaults.OverdueSubject)
		v.SetDefault("reminders.overdueBody", defaults.OverdueBody)
	}

	var cfg ReminderTemplates
	if err := v.UnmarshalKey("reminders", &cfg); err != nil {
		return nil, err
	}
	if err := validateReminderTemplates(cfg); err != nil {
		return nil, err
	}

	holder := &ReminderTemplatesHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReminderTemplates
		if err := v.UnmarshalKey("reminders", &updated); err != nil {
			log.Printf("[reminder-config] reload failed: %v", err)
			return
		}
		if err := validateReminderTemplates(updated); err != nil {
			log.Printf("[reminder-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[reminder-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticReminderTemplatesHolder wraps a fixed set of templates with
// no file watching. Used in tests.
func NewStaticReminderTemplatesHolder(cfg ReminderTemplates) *ReminderTemplatesHolder {
	holder := &ReminderTemplatesHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ReminderTemplatesHolder) Get() ReminderTemplates {
	return h.current.Load().(ReminderTemplates)
}

func validateReminderTemplates(cfg ReminderTemplates) error {
	if strings.TrimSpace(cfg.UpcomingSubject) == "" || strings.TrimSpace(cfg.OverdueSubject) == "" {
		return errors.New("reminders: subjects cannot be empty")
	}
	if strings.TrimSpace(cfg.UpcomingBody) == "" || strings.TrimSpace(cfg.OverdueBody) == "" {
		return errors.New("reminders: bodies cannot be empty")
	}
	return nil
}

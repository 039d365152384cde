package config

import (
	"fmt"
	"time"

	"github.com/oakwood-commons/crmx/internal/attachments"
	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/pager"
)

// Config is the merged client configuration.
type Config struct {
	Backend     Backend            `yaml:"backend" json:"backend"`
	Identity    Identity           `yaml:"identity" json:"identity"`
	Screens     []model.Screen     `yaml:"screens" json:"screens"`
	Paging      Paging             `yaml:"paging" json:"paging"`
	Chat        Chat               `yaml:"chat" json:"chat"`
	History     History            `yaml:"history" json:"history"`
	Templates   map[string]string  `yaml:"templates" json:"templates"`
	Events      Events             `yaml:"events" json:"events"`
	Attachments attachments.Config `yaml:"attachments" json:"attachments"`
	Session     Session            `yaml:"session" json:"session"`
	Metrics     Metrics            `yaml:"metrics" json:"metrics"`
}

// Backend locates the CRM REST API.
type Backend struct {
	URL     string        `yaml:"url" json:"url"`
	Timeout Duration      `yaml:"timeout" json:"timeout"`
	Paths   gateway.Paths `yaml:"paths" json:"paths"`
}

// Identity locates the identity provider.
type Identity struct {
	URL    string `yaml:"url" json:"url"`
	APIKey string `yaml:"api_key" json:"api_key"`
}

// Paging lists the allowed page sizes.
type Paging struct {
	Sizes   []pager.Size `yaml:"sizes" json:"sizes"`
	Default pager.Size   `yaml:"default" json:"default"`
}

type Chat struct {
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`
}

// History controls how call dates are grouped.
type History struct {
	DateLayout string `yaml:"date_layout" json:"date_layout"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Location resolves Timezone; empty means local time.
func (h History) Location() (*time.Location, error) {
	if h.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return nil, fmt.Errorf("history timezone: %w", err)
	}
	return loc, nil
}

// Events configures the mutation broadcast. An empty URL disables it.
type Events struct {
	NATSURL string `yaml:"nats_url" json:"nats_url"`
	Prefix  string `yaml:"prefix" json:"prefix"`
}

type Session struct {
	Dir string `yaml:"dir" json:"dir"`
}

type Metrics struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Duration is a time.Duration written as "3s" in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// Package config loads linkshort settings
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/thatguystone/linkshort/shorten"
	"gopkg.in/yaml.v2"
)

const (
	maxFileSize = 1024 * 1024

	// Selectors may contain dots, so they can't be used to split keys
	keyDelim = "\x1f"
)

// EnvPrefix prefixes every environment variable that overrides settings
const EnvPrefix = "LINKSHORT_"

// envKeys maps environment variables (without EnvPrefix) to setting keys
var envKeys = map[string]string{
	"ENABLE":      "enable",
	"API":         "yoursApi",
	"TOKEN":       "token",
	"USERNAME":    "username",
	"PASSWORD":    "password",
	"BULK":        "bulkShortener",
	"FORCE_SHORT": "forceShort",
}

// Settings is what can be configured
type Settings struct {
	Enable     bool     `koanf:"enable"`
	Skips      []string `koanf:"skips"`
	YoursAPI   string   `koanf:"yoursApi"`
	Token      string   `koanf:"token"`
	Username   string   `koanf:"username"`
	Password   string   `koanf:"password"`
	Bulk       bool     `koanf:"bulkShortener"`
	ForceShort bool     `koanf:"forceShort"`

	// In the order they appear in the file
	Selectors []shorten.Selector `koanf:"-"`
}

// Load reads settings from the YAML file at path, then applies overrides
// from the environment.
func Load(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}

	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if len(b) > maxFileSize {
		return nil, errors.Errorf("config file %s is larger than %d bytes", path, maxFileSize)
	}

	return load(b, env.Provider(EnvPrefix, keyDelim, envKey))
}

// envKey maps an environment variable to its setting, or "" to ignore it
func envKey(s string) string {
	return envKeys[strings.TrimPrefix(s, EnvPrefix)]
}

func load(b []byte, environ koanf.Provider) (*Settings, error) {
	k := koanf.New(keyDelim)

	err := k.Load(rawbytes.Provider(b), koanfyaml.Parser())
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	err = k.Load(environ, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load environment")
	}

	var s Settings
	err = k.Unmarshal("", &s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	s.Selectors, err = loadSelectors(b)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// loadSelectors reads the selectors mapping, keeping its order. A null
// attribute disables a selector.
func loadSelectors(b []byte) ([]shorten.Selector, error) {
	var raw struct {
		Selectors *yaml.MapSlice `yaml:"selectors"`
	}

	err := yaml.Unmarshal(b, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse selectors")
	}

	if raw.Selectors == nil {
		return []shorten.Selector{{Query: "a", Attr: "href"}}, nil
	}

	sels := []shorten.Selector{}
	for _, item := range *raw.Selectors {
		sel := shorten.Selector{
			Query: fmt.Sprint(item.Key),
		}

		switch attr := item.Value.(type) {
		case nil:
		case string:
			sel.Attr = attr
		default:
			return nil, errors.Errorf("invalid config: selector %q: attribute must be a string", sel.Query)
		}

		sels = append(sels, sel)
	}

	return sels, nil
}

// Shorten converts Settings into a shorten.Config. A token takes precedence
// over a username and password.
func (s *Settings) Shorten(preview bool) shorten.Config {
	cfg := shorten.Config{
		Enabled:    s.Enable,
		Selectors:  s.Selectors,
		Skips:      s.Skips,
		API:        s.YoursAPI,
		Bulk:       s.Bulk,
		ForceShort: s.ForceShort,
		Preview:    preview,
	}

	switch {
	case s.Token != "":
		cfg.Auth = shorten.Token(s.Token)

	case s.Username != "" || s.Password != "":
		cfg.Auth = shorten.Basic{
			Username: s.Username,
			Password: s.Password,
		}
	}

	return cfg
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thatguystone/cog/check"
	"github.com/thatguystone/linkshort/shorten"
)

const testConfig = `
enable: true
selectors:
  a.external: href
  img: src
  script: null
  a: href
skips:
  - https://example.com/*
yoursApi: https://sho.rt/yourls-api.php
token: abc123
username: user
password: pass
bulkShortener: true
`

// testEnv stands in for the process environment
type testEnv map[string]string

func (e testEnv) ReadBytes() ([]byte, error) {
	return nil, errors.New("testEnv does not support ReadBytes")
}

func (e testEnv) Read() (map[string]interface{}, error) {
	m := map[string]interface{}{}
	for k, v := range e {
		if !strings.HasPrefix(k, EnvPrefix) {
			continue
		}

		if key := envKey(k); key != "" {
			m[key] = v
		}
	}

	return m, nil
}

func TestLoad(t *testing.T) {
	c := check.New(t)

	s, err := load([]byte(testConfig), testEnv{})
	c.Must.Nil(err)

	c.True(s.Enable)
	c.True(s.Bulk)
	c.False(s.ForceShort)
	c.Equal(s.Skips, []string{"https://example.com/*"})
	c.Equal(s.YoursAPI, "https://sho.rt/yourls-api.php")

	cfg := s.Shorten(false)
	c.Equal(cfg.Auth, shorten.Token("abc123"))
	c.Equal(cfg.Selectors, []shorten.Selector{
		{Query: "a.external", Attr: "href"},
		{Query: "img", Attr: "src"},
		{Query: "script", Attr: ""},
		{Query: "a", Attr: "href"},
	})
	c.False(cfg.Preview)
	c.True(s.Shorten(true).Preview)
}

func TestLoadDefaults(t *testing.T) {
	c := check.New(t)

	s, err := load([]byte("yoursApi: https://sho.rt/\nusername: user\npassword: pass\n"), testEnv{})
	c.Must.Nil(err)

	cfg := s.Shorten(false)
	c.False(cfg.Enabled)
	c.Equal(cfg.Auth, shorten.Basic{Username: "user", Password: "pass"})
	c.Equal(cfg.Selectors, []shorten.Selector{{Query: "a", Attr: "href"}})
}

func TestLoadEnv(t *testing.T) {
	c := check.New(t)

	s, err := load([]byte("enable: false\ntoken: from-file\n"), testEnv{
		"LINKSHORT_ENABLE":      "true",
		"LINKSHORT_TOKEN":       "from-env",
		"LINKSHORT_FORCE_SHORT": "true",
		"LINKSHORT_UNKNOWN":     "ignored",
		"TOKEN":                 "no-prefix",
	})
	c.Must.Nil(err)

	c.True(s.Enable)
	c.True(s.ForceShort)
	c.False(s.Bulk)
	c.Equal(s.Token, "from-env")
}

func TestEnvKey(t *testing.T) {
	c := check.New(t)

	c.Equal(envKey("LINKSHORT_API"), "yoursApi")
	c.Equal(envKey("LINKSHORT_BULK"), "bulkShortener")
	c.Equal(envKey("LINKSHORT_NOPE"), "")
}

func TestLoadSelectorOrder(t *testing.T) {
	c := check.New(t)

	s, err := load([]byte("selectors:\n  img: src\n  a.ext: href\n  a: href\n"), testEnv{})
	c.Must.Nil(err)

	c.Equal(s.Shorten(false).Selectors, []shorten.Selector{
		{Query: "img", Attr: "src"},
		{Query: "a.ext", Attr: "href"},
		{Query: "a", Attr: "href"},
	})

	s, err = load([]byte("selectors: {}\n"), testEnv{})
	c.Must.Nil(err)
	c.Equal(len(s.Selectors), 0)

	_, err = load([]byte("selectors:\n  a: [href]\n"), testEnv{})
	c.NotNil(err)
}

func TestLoadFile(t *testing.T) {
	c := check.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "linkshort.yml")

	err := os.WriteFile(path, []byte(testConfig), 0600)
	c.Must.Nil(err)

	s, err := Load(path)
	c.Must.Nil(err)
	c.Equal(s.Token, "abc123")

	_, err = Load(filepath.Join(dir, "missing.yml"))
	c.NotNil(err)

	big := filepath.Join(dir, "big.yml")
	err = os.WriteFile(big, []byte("# "+strings.Repeat("x", maxFileSize)), 0600)
	c.Must.Nil(err)

	_, err = Load(big)
	c.NotNil(err)
}

func TestLoadInvalid(t *testing.T) {
	c := check.New(t)

	_, err := load([]byte("enable: [not, a, bool"), testEnv{})
	c.NotNil(err)
}

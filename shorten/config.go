package shorten

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"

	"github.com/andybalholm/cascadia"
)

// Config configures what the Rewriter does
type Config struct {
	Enabled    bool       // Disabled rewriters leave everything alone
	Selectors  []Selector // Where to look for links, in processing order
	Skips      []string   // Globs of links that are never shortened
	API        string     // Shortening service endpoint
	Auth       Auth       // How to authenticate with API
	Bulk       bool       // Resolve all links of a fragment in one request
	ForceShort bool       // Shorten even in preview mode
	Preview    bool       // Host is serving an interactive preview
}

// A Selector pairs a CSS selector with the attribute holding links
type Selector struct {
	Query string
	Attr  string // Selectors without an attribute are ignored
}

// Auth authenticates requests to the shortening service. It is implemented
// by Token and Basic.
type Auth interface {
	params(now time.Time) url.Values
	valid() bool
}

// Token authenticates with a signature derived from a secret token. A new
// signature is computed for every request.
type Token string

func (tok Token) params(now time.Time) url.Values {
	ts := strconv.FormatInt(now.Unix(), 10)
	sum := md5.Sum([]byte(ts + string(tok)))

	return url.Values{
		"timestamp": {ts},
		"signature": {hex.EncodeToString(sum[:])},
	}
}

func (tok Token) valid() bool { return tok != "" }

// Basic authenticates with a username and password. The service expects
// them in the same parameters a Token signature uses.
type Basic struct {
	Username string
	Password string
}

func (b Basic) params(time.Time) url.Values {
	return url.Values{
		"timestamp": {b.Username},
		"signature": {b.Password},
	}
}

func (b Basic) valid() bool { return b.Username != "" && b.Password != "" }

type selector struct {
	query string
	attr  string
	m     cascadia.Selector
}

func (cfg *Config) validate() error {
	if cfg.API == "" {
		return &ConfigError{
			Field: "api",
			Msg:   "the shortening API endpoint must be set",
		}
	}

	if cfg.Auth == nil || !cfg.Auth.valid() {
		return &ConfigError{
			Field: "auth",
			Msg:   "a token or a username and password must be set",
		}
	}

	_, err := url.Parse(cfg.API)
	if err != nil {
		return &ConfigError{Field: "api", Msg: err.Error()}
	}

	return nil
}

func (cfg *Config) compileSelectors() ([]selector, error) {
	var sels []selector

	for _, s := range cfg.Selectors {
		if s.Attr == "" {
			continue
		}

		m, err := cascadia.Compile(s.Query)
		if err != nil {
			return nil, &ConfigError{
				Field: "selectors",
				Msg:   "invalid selector " + strconv.Quote(s.Query) + ": " + err.Error(),
			}
		}

		sels = append(sels, selector{
			query: s.Query,
			attr:  s.Attr,
			m:     m,
		})
	}

	return sels, nil
}

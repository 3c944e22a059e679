package shorten

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// An Option is passed to New() to change default options
type Option interface {
	applyTo(o *options)
}

type option func(o *options)

func (opt option) applyTo(o *options) { opt(o) }

type options struct {
	log  *zap.Logger
	http *http.Client
	now  func() time.Time
}

func newOptions(opts []Option) options {
	o := options{
		log:  zap.NewNop(),
		http: &http.Client{},
		now:  time.Now,
	}

	for _, opt := range opts {
		opt.applyTo(&o)
	}

	return o
}

func (o options) client(cfg Config) *Client {
	api, _ := url.Parse(cfg.API) // Checked by validate()

	return &Client{
		api:  *api,
		auth: cfg.Auth,
		http: o.http,
		now:  o.now,
		log:  o.log,
	}
}

// Logger sets where link substitutions and service warnings are logged
func Logger(log *zap.Logger) Option {
	return option(func(o *options) {
		if log != nil {
			o.log = log
		}
	})
}

// HTTPClient sets the client used to reach the shortening service
func HTTPClient(c *http.Client) Option {
	return option(func(o *options) {
		if c != nil {
			o.http = c
		}
	})
}

// Clock sets the time source used to sign requests
func Clock(now func() time.Time) Option {
	return option(func(o *options) {
		if now != nil {
			o.now = now
		}
	})
}

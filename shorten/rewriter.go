// Package shorten rewrites external links in rendered HTML into short links
// from a YOURLS-compatible shortening service.
//
// A Rewriter is built once from a Config and applied to every rendered
// Document. Each of a Document's fragments is parsed, rewritten and
// rendered on its own, so a link appearing in two fragments is resolved
// twice.
package shorten

import (
	"context"

	"go.uber.org/zap"
)

// A Rewriter replaces links in Documents with short links
type Rewriter struct {
	cfg  Config
	sels []selector
	cl   *Client
	log  *zap.Logger
}

// New validates cfg and creates a Rewriter from it. A disabled Config is not
// validated and produces a Rewriter that does nothing.
func New(cfg Config, opts ...Option) (*Rewriter, error) {
	o := newOptions(opts)

	rw := &Rewriter{
		cfg: cfg,
		log: o.log,
	}

	if !cfg.Enabled {
		return rw, nil
	}

	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	rw.sels, err = cfg.compileSelectors()
	if err != nil {
		return nil, err
	}

	rw.cl = o.client(cfg)
	return rw, nil
}

// Rewrite shortens the links in all of doc's fragments, in place.
//
// Errors reaching the shortening service abort the rewrite; fragments
// rewritten before the failure keep their new content.
func (rw *Rewriter) Rewrite(ctx context.Context, doc *Document) error {
	if !rw.active() {
		return nil
	}

	skips := CompileSkips(rw.cfg.Skips)

	for _, frag := range doc.fragments() {
		var out string
		var err error

		if rw.cfg.Bulk {
			out, err = rw.rewriteBulk(ctx, *frag)
		} else {
			out, err = rw.rewriteSingle(ctx, *frag, skips)
		}

		if err != nil {
			return err
		}

		*frag = out
	}

	rw.log.Info("updated short links", zap.String("path", doc.Path))
	return nil
}

func (rw *Rewriter) active() bool {
	if !rw.cfg.Enabled {
		return false
	}

	return !rw.cfg.Preview || rw.cfg.ForceShort
}

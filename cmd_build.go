package main

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/thatguystone/linkshort/internal/config"
	"github.com/thatguystone/linkshort/post"
	"github.com/thatguystone/linkshort/shorten"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type buildFlags struct {
	out        string
	minify     bool
	jobs       int
	forceShort bool
}

func newBuildCmd(gf *globalFlags) *cobra.Command {
	var bf buildFlags

	cmd := &cobra.Command{
		Use:   "build <src>",
		Short: "Shorten links in every post under src",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBuilder(gf, bf, args[0], false)
			if err != nil {
				return err
			}

			defer b.log.Sync()

			_, err = b.build(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVarP(&bf.out, "out", "o", "public", "where to write posts")
	cmd.Flags().BoolVar(&bf.minify, "minify", false, "minify posts after shortening")
	cmd.Flags().IntVarP(&bf.jobs, "jobs", "j", runtime.NumCPU(), "posts to build at once")

	return cmd
}

type builder struct {
	src    string
	out    string
	minify bool
	jobs   int
	rw     *shorten.Rewriter
	log    *zap.Logger
}

type buildStats struct {
	Posts    int
	Duration time.Duration
}

func newBuilder(gf *globalFlags, bf buildFlags, src string, preview bool) (*builder, error) {
	settings, err := config.Load(gf.config)
	if err != nil {
		return nil, err
	}

	cfg := settings.Shorten(preview)
	if bf.forceShort {
		cfg.ForceShort = true
	}

	log := newLogger(gf.stderr, gf.verbose)

	rw, err := shorten.New(cfg, shorten.Logger(log))
	if err != nil {
		return nil, err
	}

	jobs := bf.jobs
	if jobs < 1 {
		jobs = 1
	}

	b := &builder{
		src:    src,
		out:    bf.out,
		minify: bf.minify,
		jobs:   jobs,
		rw:     rw,
		log:    log,
	}

	return b, nil
}

// build rewrites every post under src into out. Posts that fail are
// reported together in a BuildError once all others are done.
func (b *builder) build(ctx context.Context) (stats buildStats, err error) {
	start := time.Now()

	paths, err := b.findPosts()
	if err != nil {
		return
	}

	var mtx sync.Mutex
	errs := make(BuildError)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs)

	for _, path := range paths {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			err := b.buildPost(ctx, path)
			if err != nil {
				mtx.Lock()
				errs.add(b.rel(path), err)
				mtx.Unlock()
			}

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return
	}

	err = errs.getError()
	if err != nil {
		return
	}

	stats.Posts = len(paths)
	stats.Duration = time.Since(start)

	b.log.Info("build done",
		zap.Int("posts", stats.Posts),
		zap.Duration("took", stats.Duration.Round(time.Millisecond)))

	return
}

func (b *builder) buildPost(ctx context.Context, path string) error {
	p, err := post.Read(b.src, path)
	if err != nil {
		return err
	}

	err = b.rw.Rewrite(ctx, &p.Doc)
	if err != nil {
		return err
	}

	if b.minify {
		err = p.Minify()
		if err != nil {
			return err
		}
	}

	return p.Write(filepath.Join(b.out, b.rel(path)))
}

func (b *builder) rel(path string) string {
	rel, err := filepath.Rel(b.src, path)
	if err != nil {
		return path
	}

	return rel
}

func (b *builder) findPosts() ([]string, error) {
	out, err := filepath.Abs(b.out)
	if err != nil {
		return nil, errors.Wrap(err, "invalid output dir")
	}

	var paths []string

	err = filepath.WalkDir(b.src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			abs, err := filepath.Abs(path)
			if err == nil && abs == out {
				return filepath.SkipDir
			}

			return nil
		}

		if filepath.Ext(path) == ".html" {
			paths = append(paths, path)
		}

		return nil
	})

	return paths, errors.Wrapf(err, "failed to find posts in %s", b.src)
}

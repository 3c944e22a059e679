package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thatguystone/linkshort/watch"
	"go.uber.org/zap"
)

func newWatchCmd(gf *globalFlags) *cobra.Command {
	bf := buildFlags{jobs: 1}

	cmd := &cobra.Command{
		Use:   "watch <src>",
		Short: "Preview posts, rebuilding whenever they change",
		Long: "Preview posts, rebuilding whenever they change.\n\n" +
			"Links are left alone while previewing unless --force-short is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBuilder(gf, bf, args[0], true)
			if err != nil {
				return err
			}

			defer b.log.Sync()

			return b.watch(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&bf.out, "out", "o", "public", "where to write posts")
	cmd.Flags().BoolVar(&bf.forceShort, "force-short", false, "shorten links while previewing")

	return cmd
}

// watch builds, then rebuilds on every change to a post until ctx is done
func (b *builder) watch(ctx context.Context) error {
	w, err := watch.New(b.src)
	if err != nil {
		return err
	}

	defer w.Stop()

	rebuild := make(chan struct{}, 1)
	w.Notify(watch.WatcherFunc(func(evs watch.Events) {
		if !b.postsChanged(evs) {
			return
		}

		select {
		case rebuild <- struct{}{}:
		default:
		}
	}))

	for {
		_, err := b.build(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			b.log.Error("build failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil

		case <-rebuild:
			b.log.Info("change detected, rebuilding")
		}
	}
}

// postsChanged checks if evs touch any post outside of the output dir
func (b *builder) postsChanged(evs watch.Events) bool {
	out, err := filepath.Abs(b.out)
	if err != nil {
		return evs.HasExt(".html")
	}

	for _, path := range evs.Paths() {
		if filepath.Ext(path) != ".html" {
			continue
		}

		rel, err := filepath.Rel(out, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return true
		}
	}

	return false
}

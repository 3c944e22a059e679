// Command linkshort shortens external links in rendered posts.
//
// Posts are HTML files with optional YAML front matter. Everything before
// a "<!-- more -->" marker is the post's excerpt.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}

// run executes the command line in args and returns the exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	return 0
}

type globalFlags struct {
	config  string
	verbose bool
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	gf := &globalFlags{
		stdout: stdout,
		stderr: stderr,
	}

	root := &cobra.Command{
		Use:           "linkshort",
		Short:         "Shorten external links in rendered posts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&gf.config, "config", "c", "linkshort.yml",
		"path to the config file")
	root.PersistentFlags().BoolVarP(&gf.verbose, "verbose", "v", false,
		"log skipped links and other details")

	root.AddCommand(newBuildCmd(gf))
	root.AddCommand(newWatchCmd(gf))

	return root
}

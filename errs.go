package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thatguystone/cog/stringc"
	"github.com/thatguystone/linkshort/shorten"
)

// A BuildError is returned when any post failed to build. It maps post
// paths to their errors.
type BuildError map[string][]error

func (err BuildError) getError() error {
	if len(err) == 0 {
		return nil
	}

	return err
}

func (err BuildError) add(path string, e error) {
	err[path] = append(err[path], e)
}

func (err BuildError) Error() string {
	var paths []string
	for path := range err {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	var b strings.Builder
	b.WriteString("the following posts have errors:\n")

	for _, path := range paths {
		fmt.Fprintf(&b, shorten.ErrIndent+"%q\n", path)

		for _, err := range err[path] {
			b.WriteString(stringc.Indent(err.Error(), shorten.ErrIndent+shorten.ErrIndent))
			b.WriteString("\n")
		}
	}

	return b.String()
}

package post

import (
	"github.com/pkg/errors"
	"github.com/tdewolff/minify"
	"github.com/tdewolff/minify/html"
)

const htmlType = "text/html"

var mini = minify.New()

func init() {
	mini.AddFunc(htmlType, html.Minify)
}

// Minify minifies every fragment of the post
func (p *Post) Minify() error {
	frags := []*string{&p.Doc.Content, &p.Doc.More, &p.Doc.Excerpt}

	for _, frag := range frags {
		if *frag == "" {
			continue
		}

		out, err := mini.String(htmlType, *frag)
		if err != nil {
			return errors.Wrapf(err, "failed to minify %s", p.Doc.Path)
		}

		*frag = out
	}

	return nil
}

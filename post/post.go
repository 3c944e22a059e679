// Package post reads and writes rendered posts: an optional YAML front
// matter block followed by HTML.
package post

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/thatguystone/linkshort/shorten"
	"gopkg.in/yaml.v2"
)

// MoreMarker separates a post's excerpt from the rest of it
const MoreMarker = "<!-- more -->"

const fmDelim = "---"

// Post is a rendered post
type Post struct {
	Meta yaml.MapSlice // Front matter, in file order
	Doc  shorten.Document
}

// Read reads the post at path. If its front matter has no "path", the
// document path is path relative to root.
func Read(root, path string) (*Post, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read post")
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, errors.Wrapf(err, "%s is not in %s", path, root)
	}

	return Parse(filepath.ToSlash(rel), b)
}

// Parse parses a post from b
func Parse(path string, b []byte) (*Post, error) {
	fm, body := splitFrontMatter(b)

	p := &Post{}
	if fm != nil {
		err := yaml.Unmarshal(fm, &p.Meta)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid front matter in %s", path)
		}
	}

	p.Doc.Path = path
	if v, ok := p.get("path").(string); ok && v != "" {
		p.Doc.Path = v
	}

	p.Doc.Content = string(body)
	if i := strings.Index(p.Doc.Content, MoreMarker); i >= 0 {
		p.Doc.Excerpt = p.Doc.Content[:i]
		p.Doc.More = p.Doc.Content[i+len(MoreMarker):]
	}

	return p, nil
}

func splitFrontMatter(b []byte) (fm, body []byte) {
	if !bytes.HasPrefix(b, []byte(fmDelim+"\n")) {
		return nil, b
	}

	rest := b[len(fmDelim)+1:]

	end := bytes.Index(rest, []byte("\n"+fmDelim+"\n"))
	if end < 0 {
		if !bytes.HasSuffix(rest, []byte("\n"+fmDelim)) {
			return nil, b
		}

		return rest[:len(rest)-len(fmDelim)-1], nil
	}

	return rest[:end], rest[end+len(fmDelim)+2:]
}

func (p *Post) get(key string) interface{} {
	for _, item := range p.Meta {
		if k, ok := item.Key.(string); ok && k == key {
			return item.Value
		}
	}

	return nil
}

func (p *Post) set(key string, val interface{}) {
	for i, item := range p.Meta {
		if k, ok := item.Key.(string); ok && k == key {
			p.Meta[i].Value = val
			return
		}
	}

	p.Meta = append(p.Meta, yaml.MapItem{Key: key, Value: val})
}

// Bytes encodes the post. When the post has an excerpt, it and the rest of
// the post are stored in the front matter as "excerpt" and "more".
func (p *Post) Bytes() ([]byte, error) {
	meta := append(yaml.MapSlice(nil), p.Meta...)
	out := Post{Meta: meta}

	if p.Doc.Excerpt != "" || p.Doc.More != "" {
		out.set("excerpt", p.Doc.Excerpt)
		out.set("more", p.Doc.More)
	}

	var buff bytes.Buffer

	if len(out.Meta) > 0 {
		fm, err := yaml.Marshal(out.Meta)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode front matter of %s", p.Doc.Path)
		}

		buff.WriteString(fmDelim + "\n")
		buff.Write(fm)
		buff.WriteString(fmDelim + "\n")
	}

	buff.WriteString(p.Doc.Content)
	return buff.Bytes(), nil
}

// Write writes the post to path, creating any missing directories
func (p *Post) Write(path string) error {
	b, err := p.Bytes()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err == nil {
		err = os.WriteFile(path, b, 0644)
	}

	return errors.Wrapf(err, "failed to write %s", path)
}

package shorten

import (
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// fragment is a piece of HTML that is matched as a tree but written back
// token by token. Only changed attribute values ever differ from the source.
type fragment struct {
	src   string
	toks  []rawToken
	doc   *goquery.Document
	edits map[*html.Node]map[string]string
}

// rawToken is a token exactly as it appeared in the source, along with the
// element it opened, if any
type rawToken struct {
	raw  string
	node *html.Node
}

var voidElements = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Keygen: true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// parseFragment builds a tree straight from the token stream. Unlike
// html.Parse, nothing is moved, implied or dropped, so every element maps
// back to the tag that opened it.
func parseFragment(src string) (*fragment, error) {
	root := &html.Node{Type: html.DocumentNode}
	stack := []*html.Node{root}

	f := &fragment{
		src:   src,
		edits: map[*html.Node]map[string]string{},
	}

	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				break
			}

			return nil, z.Err()
		}

		raw := string(z.Raw())
		tok := z.Token()
		top := stack[len(stack)-1]

		var el *html.Node

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			el = &html.Node{
				Type:     html.ElementNode,
				Data:     tok.Data,
				DataAtom: tok.DataAtom,
				Attr:     tok.Attr,
			}
			top.AppendChild(el)

			if tt == html.StartTagToken && !voidElements[tok.DataAtom] {
				stack = append(stack, el)
			}

		case html.EndTagToken:
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].Data == tok.Data {
					stack = stack[:i]
					break
				}
			}

		case html.TextToken:
			top.AppendChild(&html.Node{
				Type: html.TextNode,
				Data: tok.Data,
			})

		case html.CommentToken:
			top.AppendChild(&html.Node{
				Type: html.CommentNode,
				Data: tok.Data,
			})
		}

		f.toks = append(f.toks, rawToken{raw: raw, node: el})
	}

	f.doc = goquery.NewDocumentFromNode(root)
	return f, nil
}

// each calls cb for every link held by sels, selector by selector and in
// document order within a selector. The attribute is set to whatever cb
// returns, so later selectors see earlier changes. Elements without the
// attribute are skipped.
func (f *fragment) each(sels []selector, cb func(link string) (string, error)) error {
	for _, s := range sels {
		var err error

		f.doc.FindMatcher(s.m).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			link, ok := el.Attr(s.attr)
			if !ok {
				return true
			}

			var fixed string
			fixed, err = cb(link)
			if err != nil {
				return false
			}

			if fixed != link {
				f.set(el.Get(0), s.attr, fixed)
			}

			return true
		})

		if err != nil {
			return err
		}
	}

	return nil
}

func (f *fragment) set(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			break
		}
	}

	attrs := f.edits[n]
	if attrs == nil {
		attrs = map[string]string{}
		f.edits[n] = attrs
	}

	attrs[key] = val
}

// String writes the fragment back out. Untouched fragments are returned
// exactly as they were given; otherwise only edited attribute values differ.
func (f *fragment) String() (string, error) {
	if len(f.edits) == 0 {
		return f.src, nil
	}

	var b strings.Builder
	for _, tok := range f.toks {
		attrs, ok := f.edits[tok.node]
		if !ok {
			b.WriteString(tok.raw)
			continue
		}

		b.WriteString(replaceAttrs(tok.raw, attrs))
	}

	return b.String(), nil
}

// replaceAttrs swaps the values of attrs in a raw start tag, keeping the
// tag's spelling, spacing and quoting
func replaceAttrs(tag string, attrs map[string]string) string {
	var b strings.Builder
	last := 0
	done := map[string]bool{}

	for _, span := range attrSpans(tag) {
		val, ok := attrs[span.key]
		if !ok || done[span.key] {
			continue
		}

		done[span.key] = true

		b.WriteString(tag[last:span.start])
		b.WriteString(quoteAttr(val, span.quote))
		last = span.end
	}

	b.WriteString(tag[last:])
	return b.String()
}

// quoteAttr escapes val for use where the original value was quoted with
// quote (0 when unquoted)
func quoteAttr(val string, quote byte) string {
	esc := html.EscapeString(val)

	if quote == 0 {
		if esc != "" && !strings.ContainsAny(esc, " \t\n\r\f=`") {
			return esc
		}

		quote = '"'
	}

	q := string(quote)
	return q + esc + q
}

// attrSpan locates an attribute's value, including quotes, inside a raw tag
type attrSpan struct {
	key        string
	start, end int
	quote      byte
}

func isTagSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// attrSpans scans a raw start tag the way html.Tokenizer does. Attributes
// without a value are not reported.
func attrSpans(tag string) []attrSpan {
	var spans []attrSpan

	i := 1
	for i < len(tag) && !isTagSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' {
		i++
	}

	for i < len(tag) {
		for i < len(tag) && (isTagSpace(tag[i]) || tag[i] == '/') {
			i++
		}

		if i >= len(tag) || tag[i] == '>' {
			break
		}

		nameStart := i
		i++
		for i < len(tag) && !isTagSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' && tag[i] != '=' {
			i++
		}

		key := strings.ToLower(tag[nameStart:i])

		j := i
		for j < len(tag) && isTagSpace(tag[j]) {
			j++
		}

		if j >= len(tag) || tag[j] != '=' {
			continue
		}

		i = j + 1
		for i < len(tag) && isTagSpace(tag[i]) {
			i++
		}

		if i >= len(tag) {
			break
		}

		span := attrSpan{key: key, start: i}

		switch q := tag[i]; q {
		case '"', '\'':
			span.quote = q
			i++
			for i < len(tag) && tag[i] != q {
				i++
			}

			if i < len(tag) {
				i++
			}

		default:
			for i < len(tag) && !isTagSpace(tag[i]) && tag[i] != '>' {
				i++
			}
		}

		span.end = i
		spans = append(spans, span)
	}

	return spans
}

// rewriteSingle resolves every eligible link with its own request
func (rw *Rewriter) rewriteSingle(ctx context.Context, src string, skips Skips) (string, error) {
	f, err := parseFragment(src)
	if err != nil {
		return "", err
	}

	err = f.each(rw.sels, func(link string) (string, error) {
		if !IsExternal(link) {
			return link, nil
		}

		if skips.Match(link) {
			rw.log.Debug("skip link", zap.String("link", link))
			return link, nil
		}

		short, err := rw.cl.ShortURL(ctx, link)
		if err != nil {
			return link, err
		}

		if short == "" || short == link {
			return link, nil
		}

		rw.logShort(link, short)
		return short, nil
	})
	if err != nil {
		return "", err
	}

	return f.String()
}

// rewriteBulk collects every external link in the fragment, resolves them
// with a single request, then replaces what was resolved.
//
// Skip patterns are not consulted: every external link is sent.
func (rw *Rewriter) rewriteBulk(ctx context.Context, src string) (string, error) {
	f, err := parseFragment(src)
	if err != nil {
		return "", err
	}

	var links []string
	seen := make(map[string]struct{})

	err = f.each(rw.sels, func(link string) (string, error) {
		if _, ok := seen[link]; !ok && IsExternal(link) {
			seen[link] = struct{}{}
			links = append(links, link)
		}

		return link, nil
	})
	if err != nil {
		return "", err
	}

	if len(links) == 0 {
		return src, nil
	}

	shorts, err := rw.cl.BulkShortURLs(ctx, links)
	if err != nil {
		return "", err
	}

	err = f.each(rw.sels, func(link string) (string, error) {
		short, ok := shorts[link]
		if !ok || short == link {
			return link, nil
		}

		rw.logShort(link, short)
		return short, nil
	})
	if err != nil {
		return "", err
	}

	return f.String()
}

func (rw *Rewriter) logShort(link, short string) {
	rw.log.Info("short link",
		zap.String("link", link),
		zap.String("short", short))
}

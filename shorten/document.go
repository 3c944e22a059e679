package shorten

// Document is a rendered post. Each fragment is rewritten independently.
type Document struct {
	Path    string // Identifies the document in logs
	Content string // Main body
	More    string // Continuation after the excerpt
	Excerpt string // Summary
}

func (doc *Document) fragments() []*string {
	return []*string{&doc.Content, &doc.More, &doc.Excerpt}
}

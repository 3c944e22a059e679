package post

import (
	"os"
	"path/filepath"

	"github.com/thatguystone/cog/check"
)

type tmpDir struct {
	c    *check.C
	root string
}

func newTmpDir(c *check.C, files map[string]string) *tmpDir {
	root, err := os.MkdirTemp("", "linkshort-test-")
	c.Must.Nil(err)

	tmp := tmpDir{
		c:    c,
		root: root,
	}

	for path, content := range files {
		path = tmp.path(path)

		err = os.MkdirAll(filepath.Dir(path), 0750)
		c.Must.Nil(err)

		err = os.WriteFile(path, []byte(content), 0600)
		c.Must.Nil(err)
	}

	return &tmp
}

func (tmp *tmpDir) remove() {
	err := os.RemoveAll(tmp.root)
	tmp.c.Nil(err)
}

func (tmp *tmpDir) path(p string) string {
	return filepath.Join(tmp.root, filepath.Clean(p))
}

func (tmp *tmpDir) readFile(path string) string {
	b, err := os.ReadFile(tmp.path(path))
	tmp.c.Must.Nil(err)
	return string(b)
}

package shorten

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/thatguystone/cog/check"
	"github.com/thatguystone/linkshort/shorten/shortentest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// tickClock returns a clock that advances one second every call
func tickClock(start int64) func() time.Time {
	now := start
	return func() time.Time {
		t := time.Unix(now, 0)
		now++
		return t
	}
}

func newTestClient(c *check.C, api string, auth Auth) (*Client, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)

	cl, err := NewClient(
		Config{
			API:  api,
			Auth: auth,
		},
		Logger(zap.New(core)),
		Clock(tickClock(1500000000)))
	c.Must.Nil(err)

	return cl, logs
}

func TestClientShortURLToken(t *testing.T) {
	c := check.New(t)

	srv := shortentest.New()
	defer srv.Close()
	srv.Token = "secret"

	cl, _ := newTestClient(c, srv.URL, Token("secret"))

	short, err := cl.ShortURL(context.Background(), "http://example.com/a?b=c&d=e")
	c.Must.Nil(err)
	c.Equal(short, "http://sho.rt/1")

	short, err = cl.ShortURL(context.Background(), "http://example.com/b")
	c.Must.Nil(err)
	c.Equal(short, "http://sho.rt/2")

	reqs := srv.Requests()
	c.Must.Equal(len(reqs), 2)

	for i, req := range reqs {
		ts := strconv.Itoa(1500000000 + i)
		sum := md5.Sum([]byte(ts + "secret"))

		c.Equal(req.Action, "shorturl")
		c.Equal(req.Format, "json")
		c.Equal(req.Timestamp, ts)
		c.Equal(req.Signature, hex.EncodeToString(sum[:]))
	}

	c.Equal(reqs[0].URL, "http://example.com/a?b=c&d=e")
}

func TestClientShortURLBasic(t *testing.T) {
	c := check.New(t)

	srv := shortentest.New()
	defer srv.Close()
	srv.Username = "user"
	srv.Password = "pass"

	cl, _ := newTestClient(c, srv.URL, Basic{Username: "user", Password: "pass"})

	short, err := cl.ShortURL(context.Background(), "http://example.com/")
	c.Must.Nil(err)
	c.Equal(short, "http://sho.rt/1")

	reqs := srv.Requests()
	c.Must.Equal(len(reqs), 1)
	c.Equal(reqs[0].Timestamp, "user")
	c.Equal(reqs[0].Signature, "pass")
}

func TestClientShortURLMiss(t *testing.T) {
	c := check.New(t)

	srv := shortentest.New()
	defer srv.Close()
	srv.Short = func(string) (string, bool) { return "", false }

	cl, _ := newTestClient(c, srv.URL, Token("secret"))

	short, err := cl.ShortURL(context.Background(), "http://example.com/")
	c.Nil(err)
	c.Equal(short, "")
}

func TestClientShortURLGarbage(t *testing.T) {
	c := check.New(t)

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>not json</html>`))
		}))
	defer srv.Close()

	cl, _ := newTestClient(c, srv.URL, Token("secret"))

	short, err := cl.ShortURL(context.Background(), "http://example.com/")
	c.Nil(err)
	c.Equal(short, "")
}

func TestClientKeepsAPIQuery(t *testing.T) {
	c := check.New(t)

	var got string
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			got = r.URL.Query().Get("lang")
			w.Write([]byte(`{"shorturl": "http://s/1"}`))
		}))
	defer srv.Close()

	cl, _ := newTestClient(c, srv.URL+"/yourls-api.php?lang=en", Token("secret"))

	short, err := cl.ShortURL(context.Background(), "http://example.com/")
	c.Must.Nil(err)
	c.Equal(short, "http://s/1")
	c.Equal(got, "en")
}

func TestClientResponseError(t *testing.T) {
	c := check.New(t)

	srv := shortentest.New()
	defer srv.Close()
	srv.Token = "secret"

	cl, _ := newTestClient(c, srv.URL, Token("wrong"))

	_, err := cl.ShortURL(context.Background(), "http://example.com/")
	c.Must.NotNil(err)

	var te *TransportError
	c.Must.True(errors.As(err, &te))

	var re *ResponseError
	c.Must.True(errors.As(err, &re))
	c.Equal(re.Code, http.StatusForbidden)
	c.Contains(err.Error(), "Please log in")

	// Credentials stay out of errors
	c.NotContains(te.URL, "signature")
	c.NotContains(te.URL, "timestamp")
}

func TestClientUnreachable(t *testing.T) {
	c := check.New(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	api := srv.URL
	srv.Close()

	cl, _ := newTestClient(c, api, Token("secret"))

	_, err := cl.ShortURL(context.Background(), "http://example.com/")
	var te *TransportError
	c.True(errors.As(err, &te))

	_, err = cl.BulkShortURLs(context.Background(), []string{"http://example.com/"})
	c.True(errors.As(err, &te))
}

func TestClientBulk(t *testing.T) {
	c := check.New(t)

	srv := shortentest.New()
	defer srv.Close()
	srv.Token = "secret"
	srv.Short = func(link string) (string, bool) {
		switch link {
		case "http://a.com/":
			return "http://sho.rt/a", true
		case "http://b.com/":
			return "http://sho.rt/b", true
		}

		return "", false
	}

	cl, logs := newTestClient(c, srv.URL, Token("secret"))

	shorts, err := cl.BulkShortURLs(context.Background(), []string{
		"http://a.com/",
		"http://b.com/",
		"http://c.com/",
	})
	c.Must.Nil(err)
	c.Equal(shorts, map[string]string{
		"http://a.com/": "http://sho.rt/a",
		"http://b.com/": "http://sho.rt/b",
	})

	reqs := srv.Requests()
	c.Must.Equal(len(reqs), 1)
	c.Equal(reqs[0].Action, "bulkshortener")
	c.Equal(reqs[0].URLs, []string{"http://a.com/", "http://b.com/", "http://c.com/"})

	warns := logs.FilterLevelExact(zap.WarnLevel).All()
	c.Must.Equal(len(warns), 1)
	c.Equal(warns[0].Message, "could not shorten http://c.com/")
}

func TestClientBulkItems(t *testing.T) {
	c := check.New(t)

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": [
				{"status": "success", "url": {"url": "http://a.com/"}, "shorturl": "http://s/a"},
				{"status": "fail", "message": "already exists", "url": {"url": "http://b.com/"}, "shorturl": "http://s/b"},
				{"status": "fail", "message": "no luck", "url": {"url": "http://c.com/"}},
				{"status": "success", "shorturl": "http://s/d"},
				{"status": "success", "url": "http://e.com/", "shorturl": "http://s/e"},
				"garbage"
			]}`))
		}))
	defer srv.Close()

	cl, logs := newTestClient(c, srv.URL, Token("secret"))

	shorts, err := cl.BulkShortURLs(context.Background(), []string{"http://a.com/"})
	c.Must.Nil(err)
	c.Equal(shorts, map[string]string{
		"http://a.com/": "http://s/a",
		"http://b.com/": "http://s/b",
	})

	c.Equal(logs.FilterMessage("already exists").Len(), 1)
	c.Equal(logs.FilterMessage("no luck").Len(), 1)
	c.Equal(logs.FilterLevelExact(zap.WarnLevel).Len(), 2)
}

func TestClientBulkGarbage(t *testing.T) {
	c := check.New(t)

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`nope`))
		}))
	defer srv.Close()

	cl, logs := newTestClient(c, srv.URL, Token("secret"))

	shorts, err := cl.BulkShortURLs(context.Background(), []string{"http://a.com/"})
	c.Must.Nil(err)
	c.Len(shorts, 0)
	c.Equal(logs.FilterLevelExact(zap.WarnLevel).Len(), 1)
}

func TestNewClientInvalid(t *testing.T) {
	c := check.New(t)

	_, err := NewClient(Config{Auth: Token("secret")})

	var ce *ConfigError
	c.Must.True(errors.As(err, &ce))
	c.Equal(ce.Field, "api")
}

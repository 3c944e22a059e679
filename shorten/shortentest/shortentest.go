// Package shortentest provides an in-process shortening service for tests
package shortentest

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/goji/param"
)

// Request is a decoded request to the service
type Request struct {
	Action    string   `param:"action"`
	Format    string   `param:"format"`
	URL       string   `param:"url"`
	URLs      []string `param:"urls"`
	Timestamp string   `param:"timestamp"`
	Signature string   `param:"signature"`
}

// Server is a fake YOURLS service. Links are shortened to Prefix followed
// by a counter, unless Short says otherwise.
type Server struct {
	*httptest.Server

	Prefix   string // Prefix of generated short links
	Token    string // If set, token signatures are verified
	Username string // If set with Password, credentials are verified
	Password string

	// Short, if set, decides the short link for a link. Returning false
	// makes the service fail to shorten it.
	Short func(link string) (string, bool)

	mtx   sync.Mutex
	reqs  []Request
	next  int
	known map[string]string
}

// New starts a new Server. Close it when done.
func New() *Server {
	s := &Server{
		Prefix: "http://sho.rt/",
		known:  make(map[string]string),
	}

	s.Server = httptest.NewServer(s)
	return s
}

// Requests returns all requests made so far
func (s *Server) Requests() []Request {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return append([]Request(nil), s.reqs...)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request

	err := param.Parse(r.URL.Query(), &req)
	if err != nil {
		s.respond(w, http.StatusBadRequest, map[string]any{
			"status":  "fail",
			"message": err.Error(),
		})
		return
	}

	s.mtx.Lock()
	s.reqs = append(s.reqs, req)
	s.mtx.Unlock()

	if !s.authorized(req) {
		s.respond(w, http.StatusForbidden, map[string]any{
			"errorCode": http.StatusForbidden,
			"message":   "Please log in",
		})
		return
	}

	switch req.Action {
	case "shorturl":
		s.shortURL(w, req)

	case "bulkshortener":
		s.bulkShortener(w, req)

	default:
		s.respond(w, http.StatusBadRequest, map[string]any{
			"errorCode": http.StatusBadRequest,
			"message":   "Unknown or missing action",
		})
	}
}

func (s *Server) authorized(req Request) bool {
	switch {
	case s.Token != "":
		sum := md5.Sum([]byte(req.Timestamp + s.Token))
		return req.Signature == hex.EncodeToString(sum[:])

	case s.Username != "":
		return req.Timestamp == s.Username && req.Signature == s.Password

	default:
		return true
	}
}

func (s *Server) shorten(link string) (string, bool) {
	if s.Short != nil {
		return s.Short(link)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	short, ok := s.known[link]
	if !ok {
		s.next++
		short = fmt.Sprintf("%s%d", s.Prefix, s.next)
		s.known[link] = short
	}

	return short, true
}

func (s *Server) shortURL(w http.ResponseWriter, req Request) {
	short, ok := s.shorten(req.URL)
	if !ok {
		s.respond(w, http.StatusOK, map[string]any{
			"status":  "fail",
			"message": "could not shorten " + req.URL,
		})
		return
	}

	s.respond(w, http.StatusOK, map[string]any{
		"status":   "success",
		"url":      map[string]string{"url": req.URL},
		"shorturl": short,
	})
}

func (s *Server) bulkShortener(w http.ResponseWriter, req Request) {
	data := make([]map[string]any, 0, len(req.URLs))

	for _, link := range req.URLs {
		short, ok := s.shorten(link)
		if !ok {
			data = append(data, map[string]any{
				"status":  "fail",
				"message": "could not shorten " + link,
				"url":     map[string]string{"url": link},
			})
			continue
		}

		data = append(data, map[string]any{
			"status":   "success",
			"url":      map[string]string{"url": link},
			"shorturl": short,
		})
	}

	s.respond(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) respond(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

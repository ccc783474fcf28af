// Package supatest provides an in-memory fake of the PostgREST surface the
// supabase client talks to. It supports the filter subset the app uses
// (column=eq.value, select, order on created_at) and counts requests so
// tests can assert that skipped sync passes make no remote calls.
package supatest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Row is a loosely-typed resource row.
type Row map[string]any

// Server is a fake PostgREST instance backed by in-memory tables.
type Server struct {
	mu       sync.Mutex
	tables   map[string][]Row
	requests map[string]int
	failNext map[string]int

	httpSrv *httptest.Server
}

// New starts a fake server with empty chat_messages and memos tables.
// Callers own shutdown via Close.
func New() *Server {
	s := &Server{
		tables: map[string][]Row{
			"chat_messages": {},
			"memos":         {},
		},
		requests: make(map[string]int),
		failNext: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Get("/{table}", s.handleGet)
	r.Post("/{table}", s.handlePost)
	r.Patch("/{table}", s.handlePatch)
	r.Delete("/{table}", s.handleDelete)
	s.httpSrv = httptest.NewServer(r)
	return s
}

// URL returns the fake server's base URL.
func (s *Server) URL() string { return s.httpSrv.URL }

// Close shuts the server down.
func (s *Server) Close() { s.httpSrv.Close() }

// Requests returns the total number of requests served so far.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

// RequestsFor returns how many requests hit the given method+table, e.g.
// ("POST", "memos").
func (s *Server) RequestsFor(method, table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+table]
}

// FailNext makes the next n requests to the given method+table return 500.
func (s *Server) FailNext(method, table string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[method+" "+table] = n
}

// Seed inserts a row directly, filling id/created_at when absent, and
// returns its id.
func (s *Server) Seed(table string, row Row) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := cloneRow(row)
	if _, ok := r["id"]; !ok {
		r["id"] = uuid.New().String()
	}
	if _, ok := r["created_at"]; !ok {
		r["created_at"] = time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	s.tables[table] = append(s.tables[table], r)
	return fmt.Sprint(r["id"])
}

// Rows returns a snapshot of a table.
func (s *Server) Rows(table string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, len(s.tables[table]))
	for i, r := range s.tables[table] {
		out[i] = cloneRow(r)
	}
	return out
}

func cloneRow(r Row) Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// track counts the request and reports whether it should fail.
func (s *Server) track(r *http.Request) bool {
	key := r.Method + " " + chi.URLParam(r, "table")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[key]++
	if s.failNext[key] > 0 {
		s.failNext[key]--
		return true
	}
	return false
}

// matches applies every column=eq.value query param to the row.
func matches(r Row, query map[string][]string) bool {
	for col, vals := range query {
		if col == "select" || col == "order" {
			continue
		}
		want, ok := strings.CutPrefix(vals[0], "eq.")
		if !ok {
			continue
		}
		if asString(r[col]) != want {
			return false
		}
	}
	return true
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if s.track(r) {
		http.Error(w, `{"message":"injected failure"}`, http.StatusInternalServerError)
		return
	}
	table := chi.URLParam(r, "table")
	query := r.URL.Query()

	s.mu.Lock()
	var out []Row
	for _, row := range s.tables[table] {
		if matches(row, query) {
			out = append(out, cloneRow(row))
		}
	}
	s.mu.Unlock()

	if order := query.Get("order"); order != "" {
		col, dir, _ := strings.Cut(order, ".")
		sort.SliceStable(out, func(i, j int) bool {
			a, b := asString(out[i][col]), asString(out[j][col])
			if dir == "desc" {
				return a > b
			}
			return a < b
		})
	}

	if sel := query.Get("select"); sel != "" && sel != "*" {
		cols := strings.Split(sel, ",")
		for i, row := range out {
			trimmed := make(Row, len(cols))
			for _, c := range cols {
				c = strings.TrimSpace(c)
				if v, ok := row[c]; ok {
					trimmed[c] = v
				}
			}
			out[i] = trimmed
		}
	}

	if out == nil {
		out = []Row{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if s.track(r) {
		http.Error(w, `{"message":"injected failure"}`, http.StatusInternalServerError)
		return
	}
	table := chi.URLParam(r, "table")

	var row Row
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		http.Error(w, `{"message":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.New().String()
	}
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}

	s.mu.Lock()
	s.tables[table] = append(s.tables[table], row)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, []Row{row})
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	if s.track(r) {
		http.Error(w, `{"message":"injected failure"}`, http.StatusInternalServerError)
		return
	}
	table := chi.URLParam(r, "table")
	query := r.URL.Query()

	var fields Row
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		http.Error(w, `{"message":"invalid body"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	for _, row := range s.tables[table] {
		if matches(row, query) {
			for k, v := range fields {
				row[k] = v
			}
		}
	}
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.track(r) {
		http.Error(w, `{"message":"injected failure"}`, http.StatusInternalServerError)
		return
	}
	table := chi.URLParam(r, "table")
	query := r.URL.Query()

	s.mu.Lock()
	kept := s.tables[table][:0]
	for _, row := range s.tables[table] {
		if !matches(row, query) {
			kept = append(kept, row)
		}
	}
	s.tables[table] = kept
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Package testutil provides an in-memory StarkBank API for package tests.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coachpo/starkbank/pkg/key"
	"github.com/coachpo/starkbank/pkg/user"
)

// Collection is one endpoint's dataset, kept in server order.
type Collection struct {
	Singular string
	Plural   string
	Items    []map[string]any
}

// RecordedRequest is a request observed by the fake.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
}

// FailFunc lets a test inject a failure; returning ok=false lets the request
// through.
type FailFunc func(r *http.Request, call int) (status int, body string, ok bool)

// FakeBank serves list, get, create, patch and delete requests over a set of
// collections keyed by endpoint path ("invoice/log").
type FakeBank struct {
	Server *httptest.Server
	User   *user.Project

	mu          sync.Mutex
	collections map[string]*Collection
	requests    []RecordedRequest
	fail        FailFunc
	sequence    int
	pageCap     int
}

// NewFakeBank starts a fake bound to a fresh sandbox project. The server is
// closed when the test ends.
func NewFakeBank(t testing.TB) *FakeBank {
	t.Helper()
	privatePEM, _, err := key.Create("")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	project, err := user.NewProject(user.Sandbox, "5656565656565656", privatePEM)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	f := &FakeBank{User: project, collections: make(map[string]*Collection), sequence: 1000}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the host root to configure clients with.
func (f *FakeBank) URL() string { return f.Server.URL + "/" }

// Seed registers items under endpoint.
func (f *FakeBank) Seed(endpoint, singular, plural string, items ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[endpoint]
	if !ok {
		c = &Collection{Singular: singular, Plural: plural}
		f.collections[endpoint] = c
	}
	c.Items = append(c.Items, items...)
}

// CapPages makes list responses return at most size items per page, even
// when the request asks for more. Zero removes the cap.
func (f *FakeBank) CapPages(size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCap = size
}

// FailWith installs a failure hook.
func (f *FakeBank) FailWith(fn FailFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fn
}

// Requests returns a copy of the requests observed so far.
func (f *FakeBank) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// Items returns a snapshot of endpoint's dataset.
func (f *FakeBank) Items(endpoint string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[endpoint]
	if !ok {
		return nil
	}
	return append([]map[string]any(nil), c.Items...)
}

func (f *FakeBank) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, RecordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: string(body)})
	if f.fail != nil {
		if status, payload, ok := f.fail(r, len(f.requests)); ok {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, payload)
			return
		}
	}
	message := r.Header.Get("Access-Id") + ":" + r.Header.Get("Access-Time") + ":" + string(body)
	if !f.User.PrivateKey().Verify(message, r.Header.Get("Access-Signature")) {
		writeErrors(w, http.StatusUnauthorized, "invalidSignature", "signature does not match")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v2/")
	endpoint, id := f.route(path)
	if endpoint == "" {
		writeErrors(w, http.StatusNotFound, "routeNotFound", "no route for "+path)
		return
	}
	c := f.collections[endpoint]
	switch {
	case r.Method == http.MethodGet && id == "":
		f.list(w, r, c)
	case r.Method == http.MethodGet:
		f.withItem(w, c, id, func(item map[string]any) map[string]any { return item })
	case r.Method == http.MethodPost && id == "":
		f.create(w, c, body)
	case r.Method == http.MethodPatch:
		var patch map[string]any
		if err := json.Unmarshal(body, &patch); err != nil {
			writeErrors(w, http.StatusBadRequest, "invalidJson", err.Error())
			return
		}
		f.withItem(w, c, id, func(item map[string]any) map[string]any {
			for k, v := range patch {
				item[k] = v
			}
			return item
		})
	case r.Method == http.MethodDelete:
		f.withItem(w, c, id, func(item map[string]any) map[string]any {
			item["status"] = "canceled"
			return item
		})
	default:
		writeErrors(w, http.StatusMethodNotAllowed, "invalidMethod", r.Method)
	}
}

func (f *FakeBank) route(path string) (endpoint, id string) {
	if _, ok := f.collections[path]; ok {
		return path, ""
	}
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", ""
	}
	if _, ok := f.collections[path[:idx]]; ok {
		return path[:idx], path[idx+1:]
	}
	return "", ""
}

func (f *FakeBank) list(w http.ResponseWriter, r *http.Request, c *Collection) {
	query := r.URL.Query()
	limit := 100
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			writeErrors(w, http.StatusBadRequest, "invalidLimit", "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}
	if f.pageCap > 0 {
		limit = min(limit, f.pageCap)
	}
	offset := 0
	if raw := query.Get("cursor"); raw != "" {
		parsed, err := strconv.Atoi(strings.TrimPrefix(raw, "c"))
		if err != nil {
			writeErrors(w, http.StatusBadRequest, "invalidCursor", "unknown cursor")
			return
		}
		offset = parsed
	}
	var matched []map[string]any
	for _, item := range c.Items {
		if matches(item, query) {
			matched = append(matched, item)
		}
	}
	offset = min(offset, len(matched))
	end := min(offset+limit, len(matched))
	page := matched[offset:end]
	cursor := ""
	if end < len(matched) {
		cursor = "c" + strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, map[string]any{c.Plural: page, "cursor": nullable(cursor)})
}

func (f *FakeBank) withItem(w http.ResponseWriter, c *Collection, id string, apply func(map[string]any) map[string]any) {
	for i, item := range c.Items {
		if item["id"] == id {
			c.Items[i] = apply(item)
			writeJSON(w, http.StatusOK, map[string]any{c.Singular: c.Items[i]})
			return
		}
	}
	writeErrors(w, http.StatusBadRequest, "invalidId", fmt.Sprintf("%s id %s not found", c.Singular, id))
}

func (f *FakeBank) create(w http.ResponseWriter, c *Collection, body []byte) {
	var payload map[string][]map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		writeErrors(w, http.StatusBadRequest, "invalidJson", err.Error())
		return
	}
	entities, ok := payload[c.Plural]
	if !ok || len(entities) == 0 {
		writeErrors(w, http.StatusBadRequest, "invalidJson", "missing "+c.Plural)
		return
	}
	created := make([]map[string]any, 0, len(entities))
	for _, entity := range entities {
		if _, has := entity["id"]; has {
			writeErrors(w, http.StatusBadRequest, "invalidJson", "id must not be sent")
			return
		}
		f.sequence++
		entity["id"] = strconv.Itoa(f.sequence)
		entity["created"] = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(time.RFC3339)
		if _, has := entity["status"]; !has {
			entity["status"] = "created"
		}
		created = append(created, entity)
	}
	c.Items = append(c.Items, created...)
	writeJSON(w, http.StatusOK, map[string]any{c.Plural: created, "message": "created"})
}

func matches(item map[string]any, query url.Values) bool {
	for name := range query {
		value := query.Get(name)
		switch name {
		case "limit", "cursor", "fields":
			continue
		case "after":
			if created(item) < value {
				return false
			}
		case "before":
			if created(item) > value {
				return false
			}
		case "ids":
			if !contains(value, fmt.Sprint(item["id"])) {
				return false
			}
		case "types":
			if !contains(value, fmt.Sprint(item["type"])) {
				return false
			}
		case "status":
			if !contains(value, fmt.Sprint(item["status"])) {
				return false
			}
		case "tags":
			if !anyTag(value, item["tags"]) {
				return false
			}
		default:
			if parent, ok := strings.CutSuffix(name, "Ids"); ok {
				nested, _ := item[parent].(map[string]any)
				if nested == nil || !contains(value, fmt.Sprint(nested["id"])) {
					return false
				}
			}
		}
	}
	return true
}

func created(item map[string]any) string {
	s, _ := item["created"].(string)
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}

func contains(list, value string) bool {
	for _, part := range strings.Split(list, ",") {
		if part == value {
			return true
		}
	}
	return false
}

func anyTag(list string, tags any) bool {
	values, _ := tags.([]any)
	for _, tag := range values {
		if contains(list, fmt.Sprint(tag)) {
			return true
		}
	}
	return false
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func writeErrors(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"errors": []map[string]string{{"code": code, "message": message}}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// InvoiceLogs builds invoice logs for invoice ids, newest first as the API
// orders them, cycling through types.
func InvoiceLogs(count int, types ...string) []map[string]any {
	if len(types) == 0 {
		types = []string{"created"}
	}
	out := make([]map[string]any, 0, count)
	base := time.Date(2020, 3, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		out = append(out, map[string]any{
			"id":      strconv.Itoa(9000 + i),
			"type":    types[i%len(types)],
			"errors":  []string{},
			"created": base.Add(-time.Duration(i) * time.Hour).Format(time.RFC3339Nano),
			"invoice": map[string]any{
				"id":     strconv.Itoa(5000 + i%3),
				"amount": 400000,
				"name":   "Iron Bank S.A.",
				"taxId":  "20.018.183/0001-80",
				"status": types[i%len(types)],
			},
		})
	}
	return out
}

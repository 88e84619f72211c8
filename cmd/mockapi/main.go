// Command mockapi serves JSON fixtures shaped like the remote task API so
// tasklens can be exercised locally without credentials.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/containeroo/tinyflags"
	"gopkg.in/yaml.v3"
)

// Config is the mock server configuration root.
type Config struct {
	Port        int            `yaml:"port"`
	DataDir     string         `yaml:"dataDir"`     // holds people.json, products.json, items.json
	RandomDelay bool           `yaml:"randomDelay"` // sleep 200-1000ms per request
	Failures    map[string]int `yaml:"failures"`    // request path -> forced HTTP status
}

// main starts the mock server with a required YAML config.
func main() {
	var (
		flagConfigPath string
		flagLogBody    bool
	)

	tf := tinyflags.NewFlagSet("mockapi", tinyflags.ExitOnError)
	tf.StringVar(&flagConfigPath, "config", "", "Path to mockapi config.yaml (required)").Value()
	tf.BoolVar(&flagLogBody, "log-body", false, "Log JSON request bodies (may contain secrets)").Value()

	if err := tf.Parse(os.Args[1:]); err != nil {
		log.Fatal("flag parse error:", err)
	}
	if strings.TrimSpace(flagConfigPath) == "" {
		log.Fatal("missing required --config=<path to yaml>")
	}

	cfg, err := loadConfig(flagConfigPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// absolute stays absolute
	if !filepath.IsAbs(cfg.DataDir) {
		base := filepath.Dir(flagConfigPath)
		cfg.DataDir, _ = filepath.Abs(filepath.Join(base, cfg.DataDir))
	}

	srv := newServer(cfg, flagLogBody)
	addr := ":" + strconv.Itoa(cfg.Port)
	log.Printf("Mock API listening on %s (data-dir: %s)", addr, cfg.DataDir)
	log.Fatal(http.ListenAndServe(addr, srv))
}

// loadConfig reads the YAML configuration file and applies defaults.
func loadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		cfg.Port = 8081
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	for path, status := range cfg.Failures {
		if status < 400 || status > 599 {
			return Config{}, fmt.Errorf("failures[%q]: status %d is not an error status", path, status)
		}
	}
	return cfg, nil
}

// server serves collections and single resources from DataDir.
// Updates are kept in memory.
type server struct {
	cfg     Config
	logBody bool

	mu      sync.Mutex
	updates map[string]map[string]any // "kind/id" -> last PUT body
}

func newServer(cfg Config, logBody bool) *server {
	return &server{cfg: cfg, logBody: logBody, updates: map[string]map[string]any{}}
}

// ServeHTTP routes /<kind> and /<kind>/<id>.
func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cfg.RandomDelay {
		applyRandomDelay(200, 1000)
	}
	logRequest(r, s.logBody)

	path := strings.Trim(r.URL.Path, "/")
	if status, ok := s.cfg.Failures["/"+path]; ok {
		writeError(w, status, "forced failure")
		return
	}

	kind, id, hasID := strings.Cut(path, "/")
	switch kind {
	case "people", "products", "items":
	default:
		writeError(w, http.StatusNotFound, "unknown resource "+kind)
		return
	}

	records, err := s.load(kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch {
	case !hasID && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, records)
	case hasID && r.Method == http.MethodGet:
		rec := s.find(kind, id, records)
		if rec == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", kind, id))
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case hasID && r.Method == http.MethodPut:
		if s.find(kind, id, records) == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", kind, id))
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		s.mu.Lock()
		s.updates[kind+"/"+id] = body
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, s.find(kind, id, records))
	default:
		writeError(w, http.StatusMethodNotAllowed, r.Method+" not supported")
	}
}

// load reads the fixture list for kind.
func (s *server) load(kind string) ([]any, error) {
	raw, err := os.ReadFile(filepath.Join(s.cfg.DataDir, kind+".json"))
	if err != nil {
		return nil, fmt.Errorf("mock data not found for %s", kind)
	}
	var list []any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("invalid mock JSON for %s: %w", kind, err)
	}
	return list, nil
}

// find returns the record whose id (or number) equals id, merged with any stored update.
func (s *server) find(kind, id string, records []any) map[string]any {
	for _, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if fmt.Sprint(rec["id"]) != id && fmt.Sprint(rec["number"]) != id {
			continue
		}
		s.mu.Lock()
		upd := s.updates[kind+"/"+id]
		s.mu.Unlock()
		out := make(map[string]any, len(rec)+len(upd))
		for k, v := range rec {
			out[k] = v
		}
		for k, v := range upd {
			out[k] = v
		}
		return out
	}
	return nil
}

// writeJSON writes v as a JSON response with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error object the way the real API does.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"status": status, "error": http.StatusText(status), "message": msg})
}

// applyRandomDelay sleeps for a random duration between minMs and maxMs.
func applyRandomDelay(minMs, maxMs int) {
	if maxMs <= minMs {
		maxMs = minMs + 1
	}
	delta := rand.Intn(maxMs-minMs) + minMs
	time.Sleep(time.Duration(delta) * time.Millisecond)
}

// logRequest logs method, path and optionally the JSON body, redacting credentials.
func logRequest(r *http.Request, logBody bool) {
	auth := "none"
	if r.Header.Get("Authorization") != "" {
		auth = "<redacted>"
	}

	var bodyPreview string
	if logBody && r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		bodyPreview = string(b)
		r.Body = io.NopCloser(strings.NewReader(bodyPreview))
	}

	log.Printf("REQ %s %s auth=%s body=%s", r.Method, r.URL.Path, auth, truncate(bodyPreview, 2048))
}

// truncate returns at most n bytes of s.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

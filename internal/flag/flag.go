package flag

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/containeroo/tinyflags"

	"github.com/gi8lino/tasklens/internal/logging"
)

// Mode is the action a single invocation performs.
type Mode string

const (
	ModeList   Mode = "list"
	ModeGet    Mode = "get"
	ModeUpdate Mode = "update"
	ModeWarm   Mode = "warm"
)

// Config aggregates CLI flags after parsing.
type Config struct {
	Config    string            // Path to config file
	CacheDir  string            // Overrides cache.dir from the config file
	Kind      string            // Resource kind (people, products, items)
	Key       string            // Cache key; defaults to "<kind>.json"
	Query     string            // Text filter
	Assignee  string            // Assignee filter (items only)
	ID        int               // Resource id for get/update
	Set       map[string]string // Attribute assignments for update
	DryRun    bool              // Print the update payload without sending it
	Refresh   bool              // Drop the cache file before listing
	Format    string            // Output template override
	Mode      Mode              // Derived action
	Debug     bool              // Enables debug logging
	LogFormat logging.LogFormat // Log output format (text or json)
}

// ParseArgs parses CLI arguments into Config, handling version/help flags.
func ParseArgs(version string, args []string, out io.Writer, getEnv func(string) string) (Config, error) {
	var cfg Config
	tf := tinyflags.NewFlagSet("tasklens", tinyflags.ContinueOnError)
	tf.Version(version)
	tf.SetGetEnvFn(getEnv)
	tf.EnvPrefix("TASKLENS")
	tf.SetOutput(out)

	tf.StringVar(&cfg.Config, "config", "tasklens.yaml", "Path to config file").Short("c").Value()
	tf.StringVar(&cfg.CacheDir, "cache-dir", "", "Override the response cache directory").Placeholder("DIR").Value()

	// Query
	kind := tf.String("kind", "items", "Resource kind").Choices("people", "products", "items").Short("k").Value()
	tf.StringVar(&cfg.Key, "key", "", "Cache key (defaults to <kind>.json)").Value()
	tf.StringVar(&cfg.Query, "query", "", "Case-insensitive name/title filter (\"me\" on people)").Short("q").Value()
	tf.StringVar(&cfg.Assignee, "assignee", "", "Assignee filter for items (\"@me\" or a name)").Short("a").Value()
	tf.BoolVar(&cfg.Refresh, "refresh", false, "Drop the cached response before listing").Value()
	var warm bool
	tf.BoolVar(&warm, "warm", false, "Prefetch every collection into the cache").Value()

	// Single resource
	get := tf.String("get", "", "Fetch one resource by id").Placeholder("ID").Value()
	upd := tf.String("update", "", "Update the item with this number").Placeholder("ID").Value()
	set := tf.String("set", "", "Assignments for --update, e.g. \"score=M;tags=a,b\"").Placeholder("K=V;...").Value()
	tf.BoolVar(&cfg.DryRun, "dry-run", false, "Print the update payload without sending it").Value()

	// Output
	tf.StringVar(&cfg.Format, "format", "", "Go template used to render results").Placeholder("TEMPLATE").Value()

	// Logging
	tf.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging").Value()
	logFormat := tf.String("log-format", "text", "Log format").Choices("text", "json").Short("l").Value()

	if err := tf.Parse(args); err != nil {
		return Config{}, err
	}

	// Post-parse
	cfg.Kind = *kind
	cfg.LogFormat = logging.LogFormat(*logFormat)
	if cfg.Key == "" {
		cfg.Key = cfg.Kind + ".json"
	}

	modes := 0
	cfg.Mode = ModeList
	if strings.TrimSpace(*get) != "" {
		id, err := parseID("get", *get)
		if err != nil {
			return Config{}, err
		}
		cfg.ID, cfg.Mode = id, ModeGet
		modes++
	}
	if strings.TrimSpace(*upd) != "" {
		id, err := parseID("update", *upd)
		if err != nil {
			return Config{}, err
		}
		assignments, err := ParseAssignments(*set)
		if err != nil {
			return Config{}, err
		}
		cfg.ID, cfg.Set, cfg.Mode = id, assignments, ModeUpdate
		modes++
	}
	if warm {
		cfg.Mode = ModeWarm
		modes++
	}
	if modes > 1 {
		return Config{}, errors.New("--get, --update and --warm are mutually exclusive")
	}
	if cfg.Mode == ModeUpdate && cfg.Kind != "items" {
		return Config{}, errors.New("--update only supports --kind=items")
	}

	return cfg, nil
}

// ParseAssignments splits "k=v;k2=v2" into a map. Values may contain commas.
func ParseAssignments(s string) (map[string]string, error) {
	out := map[string]string{}
	for part := range strings.SplitSeq(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected key=value", part)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// parseID parses a positive resource id.
func parseID(flagName, raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("--%s: invalid id %q", flagName, raw)
	}
	return id, nil
}

package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultManifestExt is the extension of Steam app manifests (appmanifest_<id>.acf).
const DefaultManifestExt = ".acf"

// Entry is one installed application discovered from a manifest file.
type Entry struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Manifests are loosely structured KeyValues text, not JSON. Keys and values are
// quoted and separated by arbitrary whitespace; anything around them is ignored.
var (
	nameRe  = regexp.MustCompile(`(?i)"name"\s+"([^"]*)"`)
	appIDRe = regexp.MustCompile(`(?i)"appid"\s+"([^"]*)"`)
)

// Scanner discovers catalog entries under a set of library roots.
// It is read-only and safe for concurrent use.
type Scanner struct {
	ext    string
	logger *slog.Logger
}

type Option func(*Scanner)

// WithManifestExt overrides the manifest extension (compared case-insensitively).
func WithManifestExt(ext string) Option {
	return func(s *Scanner) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.ext = ext
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{ext: DefaultManifestExt, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ext returns the manifest extension the scanner looks for.
func (s *Scanner) Ext() string { return s.ext }

// Scan lists every root non-recursively and parses the manifests it finds.
// Missing roots and unparseable manifests are skipped, never reported.
// The result is sorted by name, case-insensitive ascending.
func (s *Scanner) Scan(roots []string) []Entry {
	out := make([]Entry, 0)
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		dirents, err := os.ReadDir(root)
		if err != nil {
			s.logger.Debug("skip library root", "root", root, "error", err)
			continue
		}
		for _, de := range dirents {
			if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), s.ext) {
				continue
			}
			p := filepath.Join(root, de.Name())
			e, ok := parseManifestFile(p)
			if !ok {
				s.logger.Debug("skip manifest", "path", p)
				continue
			}
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func parseManifestFile(path string) (Entry, bool) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Entry{}, false
	}
	return ParseManifest(b)
}

// ParseManifest extracts the name and appid fields from manifest content.
// It reports false when either field is missing or empty.
func ParseManifest(b []byte) (Entry, bool) {
	nm := nameRe.FindSubmatch(b)
	id := appIDRe.FindSubmatch(b)
	if nm == nil || id == nil {
		return Entry{}, false
	}
	e := Entry{Name: strings.TrimSpace(string(nm[1])), ID: strings.TrimSpace(string(id[1]))}
	if e.Name == "" || e.ID == "" {
		return Entry{}, false
	}
	return e, true
}

// Names returns the entry names in catalog order.
func Names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

package fingerprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Registry is a process-wide browser-profile lookup table, populated from
// code-constant defaults, a directory of JSON profile files, or an
// environment-variable-designated directory. It lazy-inits on first
// lookup (guarded by sync.Once); reads (Lookup/Names) take the read
// lock and writes (Register/Reload) take the write lock. Engine-scoped
// callers should construct their own Registry rather than rely on the
// package-level Default when the host process runs multiple independent
// engines that shouldn't share profile state.
type Registry struct {
	once    sync.Once
	mu      sync.RWMutex
	entries map[string]*BrowserProfile

	// Dir, when set, is consulted on first lazy init in addition to the
	// built-in defaults. EnvDir is checked if Dir is empty.
	Dir    string
	EnvDir string
}

// DefaultEnvDir is the environment variable consulted for a profile
// directory when a Registry's Dir field is left empty.
const DefaultEnvDir = "FPENGINE_PROFILE_DIR"

// NewRegistry returns a Registry seeded with the built-in default
// profiles; dir, if non-empty, is also loaded on first lookup.
func NewRegistry(dir string) *Registry {
	return &Registry{Dir: dir, EnvDir: DefaultEnvDir}
}

func (r *Registry) ensureInit() {
	r.once.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entries = make(map[string]*BrowserProfile, len(defaultProfiles))
		for _, p := range defaultProfiles {
			cp := p
			r.entries[p.Name] = &cp
		}
		dir := r.Dir
		if dir == "" {
			dir = os.Getenv(r.EnvDir)
		}
		if dir != "" {
			if err := r.loadDirLocked(dir); err != nil {
				fmt.Printf("[fingerprint] profile directory %q load error: %v\n", dir, err)
			}
		}
	})
}

// Lookup returns the named profile, or false if unknown.
func (r *Registry) Lookup(name string) (*BrowserProfile, bool) {
	r.ensureInit()
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[name]
	return p, ok
}

// Register adds or replaces a single profile.
func (r *Registry) Register(p *BrowserProfile) {
	r.ensureInit()
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.entries[p.Name] = &cp
}

// Names returns all registered profile names, sorted.
func (r *Registry) Names() []string {
	r.ensureInit()
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Reload loads every *.json file in dir, in lexicographic order, with
// later files superseding earlier same-named entries.
func (r *Registry) Reload(dir string) error {
	r.ensureInit()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadDirLocked(dir)
}

func (r *Registry) loadDirLocked(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("fingerprint: glob profile dir %q: %w", dir, err)
	}
	sort.Strings(matches)
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("fingerprint: read profile %q: %w", path, err)
		}
		var p BrowserProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("fingerprint: decode profile %q: %w", path, err)
		}
		if p.Name == "" {
			return fmt.Errorf("fingerprint: profile %q missing required \"name\" field", path)
		}
		cp := p
		r.entries[p.Name] = &cp
	}
	return nil
}

// Default is the package-level registry used by the boundary layer when
// no engine-scoped Registry has been constructed explicitly.
var Default = NewRegistry("")

// defaultProfiles are the code-constant seed profiles, analogous to the
// teacher's GetFingerprints table but keyed by fingerprint string rather
// than a fixed utls.ClientHelloID, since TransportSpec must be derivable
// from JA3/JA4R for arbitrary impersonated builds.
var defaultProfiles = []BrowserProfile{
	{
		Name:      "chrome-120",
		JA3:       "771,4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47-53,0-23-65281-10-11-35-16-5-13-18-51-45-43-27-17513,29-23-24,0",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	},
	{
		Name:      "firefox-121",
		JA3:       "771,4865-4867-4866-49195-49199-52393-52392-49196-49200-49162-49161-49171-49172-156-157-47-53,0-23-65281-10-11-35-16-5-34-51-43-13-28-65037,29-23-24-25-256-257,0",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	},
	{
		Name:       "safari-17",
		JA3:        "771,4865-4866-4867-49196-49195-52393-49200-49199-52392-49162-49161-49172-49171-157-156-53-47,0-23-65281-10-11-16-5-13-18-51-45-43-27,29-23-24-25,0",
		UserAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		ForceHTTP1: false,
	},
}

// Package symbols maps ticker symbols and company aliases to canonical
// symbols and detects mentions of them in post text.
package symbols

import (
	"fmt"
	"os"
	"sort"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Entry describes one tracked symbol. Aliases include the ticker itself,
// company and product names, and CEO names, since social posts rarely use the
// ticker alone.
type Entry struct {
	Symbol  string   `yaml:"symbol"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

type registryFile struct {
	Symbols []Entry `yaml:"symbols"`
}

// Snapshot is an immutable view of the tracked symbols with their compiled
// matching patterns. Detection against one snapshot is deterministic.
type Snapshot struct {
	entries  []Entry
	bySymbol map[string]Entry
	matchers []matcher
}

// Entries returns the tracked entries sorted by symbol.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Tracked reports whether the symbol is part of this snapshot.
func (s *Snapshot) Tracked(symbol string) bool {
	_, ok := s.bySymbol[symbol]
	return ok
}

// Registry holds the current symbol snapshot. It is loaded once at process
// start; Reload swaps in a fresh snapshot atomically. There is no live
// mutation of a published snapshot.
type Registry struct {
	path    string
	current atomic.Pointer[Snapshot]
}

// NewRegistry builds a registry from the YAML file at path, or from the
// built-in tracked set when path is empty.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Snapshot returns the current immutable snapshot.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Detect scans text against the current snapshot. Implements domain.Detector.
func (r *Registry) Detect(text string) []string {
	return r.current.Load().Detect(text)
}

// Reload re-reads the registry source and swaps the snapshot. On error the
// previous snapshot stays in place.
func (r *Registry) Reload() error {
	entries := defaultTracked
	if r.path != "" {
		loaded, err := loadFile(r.path)
		if err != nil {
			return err
		}
		entries = loaded
	}

	snap, err := newSnapshot(entries)
	if err != nil {
		return err
	}
	r.current.Store(snap)
	return nil
}

func loadFile(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read symbol registry: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse symbol registry: %w", err)
	}
	if len(file.Symbols) == 0 {
		return nil, fmt.Errorf("symbol registry %s contains no symbols", path)
	}
	return file.Symbols, nil
}

func newSnapshot(entries []Entry) (*Snapshot, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	bySymbol := make(map[string]Entry, len(sorted))
	matchers := make([]matcher, 0, len(sorted))
	for _, e := range sorted {
		if e.Symbol == "" {
			return nil, fmt.Errorf("symbol registry entry with empty symbol")
		}
		if _, dup := bySymbol[e.Symbol]; dup {
			return nil, fmt.Errorf("duplicate symbol %s in registry", e.Symbol)
		}
		bySymbol[e.Symbol] = e

		m, err := newMatcher(e)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}

	return &Snapshot{entries: sorted, bySymbol: bySymbol, matchers: matchers}, nil
}

// defaultTracked is the built-in tracked set. Aliases grow over time based on
// what shows up in real posts.
var defaultTracked = []Entry{
	{Symbol: "NVDA", Name: "NVIDIA", Aliases: []string{"NVDA", "NVIDIA", "GEFORCE", "RTX", "JENSEN", "HUANG"}},
	{Symbol: "AMD", Name: "AMD", Aliases: []string{"AMD", "ADVANCED MICRO DEVICES", "RYZEN", "RADEON", "LISA SU"}},
	{Symbol: "AVGO", Name: "Broadcom", Aliases: []string{"AVGO", "BROADCOM", "VMWARE"}},
	{Symbol: "TSLA", Name: "Tesla", Aliases: []string{"TSLA", "TESLA", "ELON", "MUSK"}},
	{Symbol: "NFLX", Name: "Netflix", Aliases: []string{"NFLX", "NETFLIX"}},
	{Symbol: "AAPL", Name: "Apple", Aliases: []string{"AAPL", "APPLE", "IPHONE", "TIM COOK"}},
	{Symbol: "GOOG", Name: "Alphabet", Aliases: []string{"GOOG", "GOOGL", "ALPHABET", "GOOGLE", "SUNDAR"}},
	{Symbol: "META", Name: "Meta", Aliases: []string{"META", "FACEBOOK", "INSTAGRAM", "WHATSAPP", "ZUCK"}},
	{Symbol: "AMZN", Name: "Amazon", Aliases: []string{"AMZN", "AMAZON", "AWS", "JASSY"}},
	{Symbol: "PLTR", Name: "Palantir", Aliases: []string{"PLTR", "PALANTIR", "KARP"}},
	{Symbol: "MSFT", Name: "Microsoft", Aliases: []string{"MSFT", "MICROSOFT", "AZURE", "SATYA"}},
	{Symbol: "OKLO", Name: "Oklo", Aliases: []string{"OKLO", "OKLO INC"}},
	{Symbol: "VST", Name: "Vistra", Aliases: []string{"VST", "VISTRA"}},
	{Symbol: "ORCL", Name: "Oracle", Aliases: []string{"ORCL", "ORACLE", "LARRY ELLISON"}},
	{Symbol: "BTC", Name: "Bitcoin", Aliases: []string{"BTC", "BITCOIN", "IBIT"}},
}

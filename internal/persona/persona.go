package persona

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Domain identifies one of the closed set of simulated professional domains.
type Domain string

const (
	Banking    Domain = "banking"
	Telecom    Domain = "telecom"
	Law        Domain = "law"
	Government Domain = "government"
)

// Domains lists every supported domain in a stable order.
var Domains = []Domain{Banking, Telecom, Law, Government}

// Tier classifies how sensitive a category is for a given persona.
type Tier string

const (
	TierNone     Tier = ""
	TierNormal   Tier = "normal"
	TierCritical Tier = "critical"
)

var (
	// ErrUnknownDomain is returned for domains outside the supported set.
	ErrUnknownDomain = errors.New("unknown domain")

	//go:embed personas.yaml
	defaultTable []byte
)

// ParseDomain resolves a domain name case-insensitively.
func ParseDomain(value string) (Domain, error) {
	key := Domain(strings.ToLower(strings.TrimSpace(value)))
	for _, d := range Domains {
		if d == key {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDomain, value)
}

// Persona is the simulated employee answering calls in one domain. It is
// read-only once loaded; accessors hand out copies.
type Persona struct {
	Domain       Domain
	Name         string
	Role         string
	Organization string

	vocabulary []string
	vocabSet   map[string]struct{}
	available  map[string]string
	normal     []string
	critical   []string
	tiers      map[string]Tier
}

// Vocabulary returns the domain's closed set of information categories.
func (p *Persona) Vocabulary() []string {
	return slices.Clone(p.vocabulary)
}

// InVocabulary reports whether key is a category of this domain.
func (p *Persona) InVocabulary(key string) bool {
	_, ok := p.vocabSet[key]
	return ok
}

// Offers reports whether the persona has a value on file for key.
func (p *Persona) Offers(key string) bool {
	_, ok := p.available[key]
	return ok
}

// Value returns the literal the persona would disclose for key.
func (p *Persona) Value(key string) (string, bool) {
	v, ok := p.available[key]
	return v, ok
}

// AvailableKeys returns the keys of the persona's available info, sorted.
func (p *Persona) AvailableKeys() []string {
	keys := make([]string, 0, len(p.available))
	for k := range p.available {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Tier returns the sensitivity tier of key, or TierNone when unclassified.
func (p *Persona) Tier(key string) Tier {
	return p.tiers[key]
}

// NormalCategories returns the persona's normal-tier list.
func (p *Persona) NormalCategories() []string { return slices.Clone(p.normal) }

// CriticalCategories returns the persona's critical-tier list.
func (p *Persona) CriticalCategories() []string { return slices.Clone(p.critical) }

// Registry holds the persona of every domain.
type Registry struct {
	personas map[Domain]*Persona
}

type personaFile struct {
	Name          string            `yaml:"name"`
	Role          string            `yaml:"role"`
	Organization  string            `yaml:"organization"`
	Vocabulary    []string          `yaml:"vocabulary"`
	AvailableInfo map[string]string `yaml:"available_info"`
	Tiers         struct {
		Normal   []string `yaml:"normal"`
		Critical []string `yaml:"critical"`
	} `yaml:"tiers"`
}

// Default returns the registry built from the embedded persona table.
func Default() (*Registry, error) {
	return Parse(defaultTable)
}

// Load reads a persona table from a YAML file. An empty path yields the
// embedded default.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read personas: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML persona table and validates it.
func Parse(data []byte) (*Registry, error) {
	var raw map[string]personaFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal personas: %w", err)
	}
	reg := &Registry{personas: make(map[Domain]*Persona, len(raw))}
	for name, entry := range raw {
		domain, err := ParseDomain(name)
		if err != nil {
			return nil, err
		}
		p, err := build(domain, entry)
		if err != nil {
			return nil, fmt.Errorf("persona %s: %w", domain, err)
		}
		reg.personas[domain] = p
	}
	for _, d := range Domains {
		if _, ok := reg.personas[d]; !ok {
			return nil, fmt.Errorf("persona %s: missing", d)
		}
	}
	return reg, nil
}

func build(domain Domain, entry personaFile) (*Persona, error) {
	if strings.TrimSpace(entry.Name) == "" {
		return nil, errors.New("name is required")
	}
	p := &Persona{
		Domain:       domain,
		Name:         strings.TrimSpace(entry.Name),
		Role:         strings.TrimSpace(entry.Role),
		Organization: strings.TrimSpace(entry.Organization),
		vocabSet:     make(map[string]struct{}, len(entry.Vocabulary)),
		available:    make(map[string]string, len(entry.AvailableInfo)),
		tiers:        make(map[string]Tier),
	}
	for _, key := range entry.Vocabulary {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, dup := p.vocabSet[key]; dup {
			return nil, fmt.Errorf("duplicate category %q", key)
		}
		p.vocabSet[key] = struct{}{}
		p.vocabulary = append(p.vocabulary, key)
	}
	if len(p.vocabulary) == 0 {
		return nil, errors.New("vocabulary is empty")
	}
	for k, v := range entry.AvailableInfo {
		p.available[strings.TrimSpace(k)] = v
	}
	for _, key := range entry.Tiers.Normal {
		p.normal = append(p.normal, key)
		p.tiers[key] = TierNormal
	}
	for _, key := range entry.Tiers.Critical {
		if p.tiers[key] == TierNormal {
			return nil, fmt.Errorf("category %q is listed as both normal and critical", key)
		}
		p.critical = append(p.critical, key)
		p.tiers[key] = TierCritical
	}
	return p, nil
}

// Lookup returns the persona for domain.
func (r *Registry) Lookup(domain Domain) (*Persona, error) {
	if r == nil {
		return nil, errors.New("persona registry is nil")
	}
	p, ok := r.personas[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	return p, nil
}

// All returns personas in the order of Domains.
func (r *Registry) All() []*Persona {
	out := make([]*Persona, 0, len(r.personas))
	for _, d := range Domains {
		if p, ok := r.personas[d]; ok {
			out = append(out, p)
		}
	}
	return out
}

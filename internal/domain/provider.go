package domain

import (
	"fmt"
	"strings"
)

// SearchDomain selects which family of namespaces a query runs against.
type SearchDomain string

const (
	// DomainTitles searches job titles.
	DomainTitles SearchDomain = "titles"
	// DomainSkills searches skills.
	DomainSkills SearchDomain = "skills"
)

// ParseSearchDomain normalizes and validates a domain name.
func ParseSearchDomain(s string) (SearchDomain, error) {
	switch d := SearchDomain(strings.ToLower(strings.TrimSpace(s))); d {
	case DomainTitles, DomainSkills:
		return d, nil
	default:
		return "", fmt.Errorf("%w: unknown search domain %q", ErrInvalidRequest, s)
	}
}

// ProviderKind selects the adapter implementation for a provider.
type ProviderKind string

const (
	// KindOpenAI is the OpenAI embeddings API.
	KindOpenAI ProviderKind = "openai"
	// KindVoyage is the Voyage AI embeddings API.
	KindVoyage ProviderKind = "voyage"
	// KindVertex is Google Vertex AI text embeddings.
	KindVertex ProviderKind = "vertex"
)

// ProviderConfig identifies one embedding provider. Read-only during a run.
type ProviderConfig struct {
	Name       string
	Kind       ProviderKind
	Model      string
	Dimensions int
	// CredentialRef names where the credential came from (env var, file); never the secret itself.
	CredentialRef string
	Namespaces    map[SearchDomain]string
}

// Namespace is a vector database partition holding one provider's embeddings.
type Namespace struct {
	Name       string
	Provider   string
	Dimensions int
}

// NamespaceTable is the explicit (provider, domain) -> namespace lookup.
type NamespaceTable struct {
	providers []ProviderConfig
	byName    map[string]int
}

// NewNamespaceTable builds a lookup table. Provider order is preserved.
func NewNamespaceTable(providers []ProviderConfig) (*NamespaceTable, error) {
	t := &NamespaceTable{
		providers: make([]ProviderConfig, 0, len(providers)),
		byName:    make(map[string]int, len(providers)),
	}
	for _, p := range providers {
		if p.Name == "" {
			return nil, fmt.Errorf("provider name is required")
		}
		if _, dup := t.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate provider %q", p.Name)
		}
		if p.Dimensions <= 0 {
			return nil, fmt.Errorf("provider %q: dimensions must be positive", p.Name)
		}
		ns := make(map[SearchDomain]string, len(p.Namespaces))
		for d, n := range p.Namespaces {
			ns[d] = n
		}
		p.Namespaces = ns
		t.byName[p.Name] = len(t.providers)
		t.providers = append(t.providers, p)
	}
	return t, nil
}

// Providers returns provider configs in configuration order.
func (t *NamespaceTable) Providers() []ProviderConfig {
	out := make([]ProviderConfig, len(t.providers))
	copy(out, t.providers)
	return out
}

// Provider returns a provider config by name.
func (t *NamespaceTable) Provider(name string) (ProviderConfig, bool) {
	i, ok := t.byName[name]
	if !ok {
		return ProviderConfig{}, false
	}
	return t.providers[i], true
}

// Lookup returns the namespace for a provider and domain.
// A blank namespace means the provider is not configured for that domain.
func (t *NamespaceTable) Lookup(provider string, d SearchDomain) (Namespace, bool) {
	p, ok := t.Provider(provider)
	if !ok {
		return Namespace{}, false
	}
	name := strings.TrimSpace(p.Namespaces[d])
	if name == "" {
		return Namespace{}, false
	}
	return Namespace{Name: name, Provider: p.Name, Dimensions: p.Dimensions}, true
}

// knownModelDimensions maps vector lengths to the model that usually produces them.
var knownModelDimensions = map[int]string{
	768:  "Vertex AI text-multilingual-embedding-002",
	1024: "Voyage voyage-4",
	1536: "OpenAI text-embedding-3-small",
	3072: "OpenAI text-embedding-3-large",
}

// ModelForDimensions returns the model typically associated with a vector length.
func ModelForDimensions(dim int) (string, bool) {
	m, ok := knownModelDimensions[dim]
	return m, ok
}

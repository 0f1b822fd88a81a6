package endpoint

import (
	"strings"
	"sync"
)

const (
	// APIVersionPath is the path suffix every resolved base URL ends with.
	APIVersionPath = "/api/v1"

	// DefaultBaseURL is used when neither an override nor an origin is configured.
	DefaultBaseURL = "https://hardikjain0083-email-rag.hf.space" + APIVersionPath
)

// Source names the rule that produced a resolved base URL.
type Source string

// Resolution sources, in rule order.
const (
	SourceOverride Source = "override"
	SourceOrigin   Source = "origin"
	SourceDefault  Source = "default"
)

// Config is the input to base URL resolution. Empty strings mean "absent".
type Config struct {
	// Override is the explicitly configured backend URL.
	Override string

	// Origin is the origin of the running site (scheme://host[:port]).
	Origin string
}

// Resolve computes the backend base URL from an optional override and an optional
// current origin.
//
// Only one trailing slash is removed from the override, so "https://x//" resolves
// to "https://x//api/v1".
func Resolve(override, origin string) string {
	url, _ := resolve(override, origin)
	return url
}

func resolve(override, origin string) (string, Source) {
	if override != "" {
		base := strings.TrimSuffix(override, "/")
		if !strings.HasSuffix(base, APIVersionPath) {
			base += APIVersionPath
		}
		return base, SourceOverride
	}
	if origin != "" {
		return origin + APIVersionPath, SourceOrigin
	}
	return DefaultBaseURL, SourceDefault
}

// Resolver computes the base URL once and returns the same value for the lifetime
// of the process.
type Resolver struct {
	config Config

	once   sync.Once
	url    string
	source Source
}

// NewResolver creates a Resolver for the given configuration. The configuration is
// copied, so later changes to the caller's value have no effect.
func NewResolver(config Config) *Resolver {
	return &Resolver{config: config}
}

// BaseURL returns the resolved base URL, computing it on first use.
func (r *Resolver) BaseURL() string {
	r.once.Do(r.compute)
	return r.url
}

// Source returns the rule that produced the base URL.
func (r *Resolver) Source() Source {
	r.once.Do(r.compute)
	return r.source
}

func (r *Resolver) compute() {
	r.url, r.source = resolve(r.config.Override, r.config.Origin)
}

package endpoint

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		override string
		origin   string
		expected string
	}{
		{
			name:     "override without slash or suffix",
			override: "https://api.example.com",
			expected: "https://api.example.com/api/v1",
		},
		{
			name:     "override with one trailing slash",
			override: "https://api.example.com/",
			expected: "https://api.example.com/api/v1",
		},
		{
			name:     "override already has suffix",
			override: "https://api.example.com/api/v1",
			expected: "https://api.example.com/api/v1",
		},
		{
			name:     "override has suffix and trailing slash",
			override: "https://api.example.com/api/v1/",
			expected: "https://api.example.com/api/v1",
		},
		{
			name:     "only one trailing slash is stripped",
			override: "https://api.example.com//",
			expected: "https://api.example.com//api/v1",
		},
		{
			name:     "override with a path prefix",
			override: "http://localhost:8000/backend",
			expected: "http://localhost:8000/backend/api/v1",
		},
		{
			name:     "override wins over origin",
			override: "https://api.example.com",
			origin:   "https://app.example.com",
			expected: "https://api.example.com/api/v1",
		},
		{
			name:     "origin when no override",
			origin:   "https://app.example.com",
			expected: "https://app.example.com/api/v1",
		},
		{
			name:     "origin with port",
			origin:   "http://localhost:8080",
			expected: "http://localhost:8080/api/v1",
		},
		{
			name:     "default when nothing configured",
			expected: "https://hardikjain0083-email-rag.hf.space/api/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.override, tt.origin))
		})
	}
}

func TestResolve_IsIdempotentOnResolvedValues(t *testing.T) {
	for _, override := range []string{
		"https://api.example.com",
		"https://api.example.com/",
		"https://api.example.com/api/v1",
	} {
		once := Resolve(override, "")
		assert.Equal(t, once, Resolve(once, ""), "override %q", override)
	}
}

func TestResolver_Source(t *testing.T) {
	assert.Equal(t, SourceOverride, NewResolver(Config{Override: "https://x"}).Source())
	assert.Equal(t, SourceOrigin, NewResolver(Config{Origin: "https://x"}).Source())
	assert.Equal(t, SourceDefault, NewResolver(Config{}).Source())
}

func TestResolver_ComputesOnce(t *testing.T) {
	cfg := Config{Override: "https://api.example.com/"}
	r := NewResolver(cfg)

	first := r.BaseURL()
	assert.Equal(t, "https://api.example.com/api/v1", first)

	// Mutating the caller's configuration must not change the resolved value.
	cfg.Override = "https://other.example.com"
	assert.Equal(t, first, r.BaseURL())
}

func TestResolver_ConcurrentAccess(t *testing.T) {
	r := NewResolver(Config{Origin: "https://app.example.com"})

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.BaseURL()
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, "https://app.example.com/api/v1", got)
	}
}

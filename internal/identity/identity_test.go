package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "replaces @ and dots",
			input:    "a@x.com",
			expected: "a-x-com",
		},
		{
			name:     "multiple dots",
			input:    "first.last@sub.example.co.uk",
			expected: "first-last-sub-example-co-uk",
		},
		{
			name:     "already safe string is unchanged",
			input:    "alreadysafe",
			expected: "alreadysafe",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SafeKey(tt.input))
		})
	}
}

// Distinct emails used in practice must map to distinct keys. This is an
// assumption the product relies on, documented here rather than proven.
func TestSafeKeyDistinctness(t *testing.T) {
	emails := []string{
		"a@x.com",
		"b@x.com",
		"a@y.com",
		"a.b@x.com",
		"test@example.com",
	}

	seen := make(map[string]string)
	for _, email := range emails {
		key := SafeKey(email)
		if prior, ok := seen[key]; ok {
			t.Fatalf("key collision: %q and %q both map to %q", prior, email, key)
		}
		seen[key] = email
	}
}

func TestNewSession(t *testing.T) {
	session := NewSession("joe.smith@example.com", "Joe Smith")

	assert.Equal(t, "joe.smith@example.com", session.Email)
	assert.Equal(t, "joe-smith-example-com", session.Key)
	assert.Equal(t, "Joe Smith", session.DisplayName)
}

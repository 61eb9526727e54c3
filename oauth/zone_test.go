package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZone_BaseURL(t *testing.T) {
	testCases := []struct {
		description string
		zone        Zone
		expect      string
		expectErr   bool
	}{
		{"explicit url", Zone{URL: "https://acme.zone.example/"}, "https://acme.zone.example", false},
		{"id with base domain", Zone{ID: "acme", BaseDomain: "zone.example"}, "https://acme.zone.example", false},
		{"url wins over id", Zone{ID: "other", URL: "https://acme.zone.example", BaseDomain: "zone.example"}, "https://acme.zone.example", false},
		{"missing everything", Zone{}, "", true},
		{"id without domain", Zone{ID: "acme"}, "", true},
	}
	for _, testCase := range testCases {
		actual, err := testCase.zone.BaseURL()
		if testCase.expectErr {
			var configErr *ConfigError
			assert.ErrorAs(t, err, &configErr, testCase.description)
			continue
		}
		assert.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
}

func TestZone_Key(t *testing.T) {
	assert.Equal(t, "acme", (&Zone{ID: "acme", URL: "https://acme.zone.example"}).Key())
	assert.Equal(t, "acme.zone.example", (&Zone{URL: "https://acme.zone.example"}).Key())
}

func TestEndpoints_Resolve(t *testing.T) {
	endpoints := &Endpoints{Token: "https://override.example/token"}
	// explicit override wins
	assert.Equal(t, "https://override.example/token", endpoints.resolve(endpointToken, "https://zone.example", nil))
	// default path when nothing configured
	assert.Equal(t, "https://zone.example/oauth2/register", (*Endpoints)(nil).resolve(endpointRegister, "https://zone.example", nil))
}

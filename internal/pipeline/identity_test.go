package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"peerdata/internal/util"
)

func TestParseIdentity(t *testing.T) {
	cases := []struct {
		in      string
		numeric bool
		key     string
	}{
		{"64500", true, "64500"},
		{"00100", true, "100"},
		{" 100 ", true, "100"},
		{"64500.0", true, "64500"},
		{"000", true, "0"},
		{"64500.5", false, "64500.5"},
		{"AS-FOO", false, "AS-FOO"},
		{"AS64500", false, "AS64500"},
		{"-1", false, "-1"},
		{".0", false, ".0"},
	}
	for _, tc := range cases {
		id, ok := ParseIdentity(util.StringPtr(tc.in))
		if assert.True(t, ok, tc.in) {
			assert.Equal(t, tc.numeric, id.Numeric, tc.in)
			assert.Equal(t, tc.key, id.Key, tc.in)
		}
	}
}

func TestParseIdentityNull(t *testing.T) {
	_, ok := ParseIdentity(nil)
	assert.False(t, ok)
	for _, v := range []string{"   ", "None", "NULL", "n/a", "nan"} {
		_, ok = ParseIdentity(util.StringPtr(v))
		assert.False(t, ok, v)
	}
}

func TestIdentityCompare(t *testing.T) {
	id := func(s string) Identity {
		v, _ := ParseIdentity(util.StringPtr(s))
		return v
	}
	assert.Equal(t, 0, id("100").Compare(id("00100")))
	assert.Equal(t, -1, id("9").Compare(id("10")))
	assert.Equal(t, 1, id("4200000000").Compare(id("64500")))
	assert.Equal(t, -1, id("AS-BAR").Compare(id("AS-FOO")))
	assert.Equal(t, -1, id("99999").Compare(id("AS-FOO")))
	assert.NotEqual(t, id("100"), id("AS100"))
}

package parser

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/clanrelay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 4, 19, 5, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{"rfc3339 utc", "2024-03-04T19:05:00Z", want},
		{"rfc3339 offset", "2024-03-04T14:05:00-05:00", want},
		{"iso without zone", "2024-03-04T19:05:00", want},
		{"iso fractional", "2024-03-04T19:05:00.250Z", want.Add(250 * time.Millisecond)},
		{"space separated", "2024-03-04 19:05:00", want},
		{"space separated fractional", "2024-03-04 19:05:00.5", want.Add(500 * time.Millisecond)},
		{"epoch seconds string", "1709579100", want},
		{"epoch millis string", "1709579100000", want},
		{"epoch seconds number", float64(1709579100), want},
		{"epoch millis number", float64(1709579100000), want},
		{"epoch seconds json number", json.Number("1709579100"), want},
		{"epoch millis json number", json.Number("1709579100000"), want},
		{"epoch seconds int64", int64(1709579100), want},
		{"fractional epoch seconds", "1709579100.5", want.Add(500 * time.Millisecond)},
		{"surrounding whitespace", "  2024-03-04T19:05:00Z ", want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	inputs := []any{"", "yesterday", "2024-13-45", true, []any{1}}

	for _, input := range inputs {
		_, err := ParseTimestamp(input)
		var perr *ParseError
		assert.True(t, errors.As(err, &perr), "input %v", input)
	}
}

func TestParseFieldNames(t *testing.T) {
	p := New(TimestampPolicySkip)

	camel := types.RawRecord{
		"clanName":       "KlutzCo",
		"memberUsername": "Bob",
		"message":        "Bob added 500x Gold.",
		"timestamp":      "2024-03-04T19:05:00Z",
	}
	snake := types.RawRecord{
		"clan_name":       "KlutzCo",
		"member_username": "Bob",
		"message":         "Bob added 500x Gold.",
		"time":            "2024-03-04T19:05:00Z",
	}

	a, err := p.Parse(camel)
	require.NoError(t, err)
	b, err := p.Parse(snake)
	require.NoError(t, err)

	assert.Equal(t, a.Identity(), b.Identity())
	assert.Equal(t, "KlutzCo", a.ClanName)
	assert.Equal(t, "Bob", a.Actor)
	assert.Equal(t, "Bob added 500x Gold.", a.Text)
}

func TestParseMissingFieldsDefaultEmpty(t *testing.T) {
	p := New(TimestampPolicySkip)

	ev, err := p.Parse(types.RawRecord{"timestamp": "2024-03-04T19:05:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "", ev.ClanName)
	assert.Equal(t, "", ev.Actor)
	assert.Equal(t, "", ev.Text)
}

func TestParseTimestampPolicy(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := types.RawRecord{"message": "hello", "timestamp": "not a time"}

	t.Run("now substitutes current time", func(t *testing.T) {
		p := New(TimestampPolicyNow)
		p.now = func() time.Time { return fixed }

		ev, err := p.Parse(rec)
		require.NotNil(t, ev)
		assert.Error(t, err)
		assert.True(t, fixed.Equal(ev.Timestamp))
		assert.Equal(t, "hello", ev.Text)
	})

	t.Run("skip rejects record", func(t *testing.T) {
		p := New(TimestampPolicySkip)

		ev, err := p.Parse(rec)
		assert.Nil(t, ev)
		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "timestamp", perr.Field)
	})

	t.Run("missing timestamp follows policy", func(t *testing.T) {
		p := New(TimestampPolicySkip)
		ev, err := p.Parse(types.RawRecord{"message": "hello"})
		assert.Nil(t, ev)
		assert.Error(t, err)

		p = New(TimestampPolicyNow)
		p.now = func() time.Time { return fixed }
		ev, _ = p.Parse(types.RawRecord{"message": "hello"})
		require.NotNil(t, ev)
		assert.True(t, fixed.Equal(ev.Timestamp))
	})
}

func TestParseNilRecord(t *testing.T) {
	ev, err := New(TimestampPolicyNow).Parse(nil)
	assert.Nil(t, ev)
	assert.Error(t, err)
}

func TestParseNonStringFields(t *testing.T) {
	p := New(TimestampPolicySkip)
	ev, err := p.Parse(types.RawRecord{
		"memberUsername": json.Number("42"),
		"message":        "hi",
		"timestamp":      json.Number("1709579100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "42", ev.Actor)
}

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord(json.RawMessage(`{"message":"hi","timestamp":1709579100000}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("1709579100000"), rec["timestamp"])

	for _, bad := range []string{`42`, `"text"`, `null`, `[1,2]`} {
		_, err := DecodeRecord(json.RawMessage(bad))
		assert.Error(t, err, bad)
	}
}

func TestParseTimestampPolicyConfig(t *testing.T) {
	p, err := ParseTimestampPolicy("")
	require.NoError(t, err)
	assert.Equal(t, TimestampPolicyNow, p)

	p, err = ParseTimestampPolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, TimestampPolicySkip, p)

	_, err = ParseTimestampPolicy("drop")
	assert.Error(t, err)
}

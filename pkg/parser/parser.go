package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/clanrelay/pkg/types"
)

// TimestampPolicy decides what happens to a record whose timestamp is missing or unparseable
type TimestampPolicy string

const (
	// TimestampPolicyNow substitutes the current time and keeps the record
	TimestampPolicyNow TimestampPolicy = "now"
	// TimestampPolicySkip rejects the record
	TimestampPolicySkip TimestampPolicy = "skip"
)

// ParseTimestampPolicy converts a configuration string into a TimestampPolicy
func ParseTimestampPolicy(s string) (TimestampPolicy, error) {
	switch TimestampPolicy(s) {
	case TimestampPolicyNow, TimestampPolicySkip:
		return TimestampPolicy(s), nil
	case "":
		return TimestampPolicyNow, nil
	default:
		return "", fmt.Errorf("invalid timestamp policy %q (want %q or %q)", s, TimestampPolicyNow, TimestampPolicySkip)
	}
}

// ParseError describes why a single record could not be turned into an event
type ParseError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return "malformed record: " + e.Reason
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

var (
	clanNameKeys  = []string{"clanName", "clan_name"}
	actorKeys     = []string{"memberUsername", "member_username"}
	textKeys      = []string{"message"}
	timestampKeys = []string{"timestamp", "time"}
)

// Parser normalizes raw clan-log records into events
type Parser struct {
	policy TimestampPolicy
	now    func() time.Time
}

// New creates a parser applying the given timestamp policy
func New(policy TimestampPolicy) *Parser {
	if policy == "" {
		policy = TimestampPolicyNow
	}
	return &Parser{policy: policy, now: time.Now}
}

// Policy returns the parser's timestamp policy
func (p *Parser) Policy() TimestampPolicy {
	return p.policy
}

// Parse converts one record into an event. The category is left unset.
//
// When the timestamp cannot be read and the policy is "now", the event is
// returned together with the *ParseError so callers can log the substitution.
func (p *Parser) Parse(rec types.RawRecord) (*types.Event, error) {
	if rec == nil {
		return nil, &ParseError{Reason: "record is not an object"}
	}

	ev := &types.Event{
		ClanName: pickString(rec, clanNameKeys...),
		Actor:    pickString(rec, actorKeys...),
		Text:     pickString(rec, textKeys...),
	}

	raw, ok := pick(rec, timestampKeys...)
	if !ok || raw == nil {
		return p.fallback(ev, &ParseError{Field: "timestamp", Value: nil, Reason: "missing"})
	}

	ts, err := ParseTimestamp(raw)
	if err != nil {
		return p.fallback(ev, err)
	}
	ev.Timestamp = ts
	return ev, nil
}

func (p *Parser) fallback(ev *types.Event, err error) (*types.Event, error) {
	if p.policy == TimestampPolicySkip {
		return nil, err
	}
	ev.Timestamp = p.now().UTC()
	return ev, err
}

// DecodeRecord turns one JSON array element into a RawRecord
func DecodeRecord(data json.RawMessage) (types.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec types.RawRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, &ParseError{Reason: "record is not an object: " + err.Error()}
	}
	if rec == nil {
		return nil, &ParseError{Reason: "record is null"}
	}
	return rec, nil
}

func pick(rec types.RawRecord, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// pickString returns the first present key rendered as a string, or ""
func pickString(rec types.RawRecord, keys ...string) string {
	v, ok := pick(rec, keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case bool, float64, int, int64:
		return fmt.Sprint(s)
	default:
		return ""
	}
}

var stringLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp reads a timestamp in any of the encodings the clan-log API
// has been observed to use and returns it in UTC.
func ParseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case string:
		return parseTimestampString(t)
	case json.Number:
		return parseTimestampString(t.String())
	case float64:
		return fromEpochNumber(t)
	case int64:
		return fromEpochNumber(float64(t))
	case int:
		return fromEpochNumber(float64(t))
	default:
		return time.Time{}, &ParseError{Field: "timestamp", Value: v, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

func parseTimestampString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ParseError{Field: "timestamp", Value: s, Reason: "empty"}
	}

	if isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, &ParseError{Field: "timestamp", Value: s, Reason: err.Error()}
		}
		if len(s) == 13 {
			return time.UnixMilli(n).UTC(), nil
		}
		return fromEpochNumber(float64(n))
	}

	for _, layout := range stringLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}

	// Numeric strings with a fraction or sign, e.g. "1709579100.5"
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpochNumber(f)
	}

	return time.Time{}, &ParseError{Field: "timestamp", Value: s, Reason: "unrecognized format"}
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
// 1e12 seconds is tens of thousands of years away; 1e12 ms is September 2001.
const epochMillisThreshold = 1e12

func fromEpochNumber(f float64) (time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, &ParseError{Field: "timestamp", Value: f, Reason: "not a finite number"}
	}
	if math.Abs(f) >= epochMillisThreshold {
		ms := math.Trunc(f)
		frac := f - ms
		return time.UnixMilli(int64(ms)).Add(time.Duration(frac * float64(time.Millisecond))).UTC(), nil
	}
	sec := math.Trunc(f)
	nsec := math.Round((f - sec) * 1e9)
	return time.Unix(int64(sec), int64(nsec)).UTC(), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

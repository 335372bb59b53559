package store

import (
	"fmt"
	"regexp"
	"time"
)

// Settings is the single settings row holding the answer provider credential.
type Settings struct {
	APIKey    string
	UpdatedAt *time.Time
}

// HasAPIKey reports whether a provider credential is stored.
func (s Settings) HasAPIKey() bool {
	return s.APIKey != ""
}

// Fixed width keeps lexical order equal to chronological order in SQLite.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// rebind rewrites $N placeholders to ? for SQLite. Queries number their
// placeholders in argument order.
func rebind(dialect Dialect, query string) string {
	if dialect != SQLite {
		return query
	}
	return placeholderPattern.ReplaceAllString(query, "?")
}

func timeArg(dialect Dialect, t time.Time) any {
	if dialect == SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

// timeValue scans TIMESTAMPTZ columns and SQLite text timestamps alike.
type timeValue struct {
	Time  time.Time
	Valid bool
}

func (v *timeValue) Scan(src any) error {
	switch value := src.(type) {
	case nil:
		v.Time, v.Valid = time.Time{}, false
		return nil
	case time.Time:
		v.Time, v.Valid = value.UTC(), true
		return nil
	case string:
		return v.parse(value)
	case []byte:
		return v.parse(string(value))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (v *timeValue) parse(raw string) error {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			v.Time, v.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", raw)
}

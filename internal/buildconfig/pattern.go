package buildconfig

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Pattern is a regular expression rendered in /source/flags form, the way
// bundler rule tests are written.
type Pattern struct {
	Source     string
	IgnoreCase bool
}

func (p Pattern) String() string {
	if p.IgnoreCase {
		return "/" + p.Source + "/i"
	}
	return "/" + p.Source + "/"
}

// Compile returns the Go equivalent of the pattern.
func (p Pattern) Compile() (*regexp.Regexp, error) {
	if p.IgnoreCase {
		return regexp.Compile("(?i)" + p.Source)
	}
	return regexp.Compile(p.Source)
}

// ParsePattern accepts /source/flags or a bare source.
func ParsePattern(s string) Pattern {
	if len(s) < 2 || s[0] != '/' {
		return Pattern{Source: s}
	}
	end := strings.LastIndex(s, "/")
	if end == 0 {
		return Pattern{Source: s}
	}
	return Pattern{
		Source:     s[1:end],
		IgnoreCase: strings.Contains(s[end+1:], "i"),
	}
}

func (p Pattern) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Pattern) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParsePattern(s)
	return nil
}

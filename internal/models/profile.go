// Package models defines core data structures for profiles, listings, and match results.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedProfile is returned when a profile is missing or is not a JSON object.
var ErrMalformedProfile = errors.New("malformed profile")

// QueryProfile is a candidate's self-description. Every field may be empty.
type QueryProfile struct {
	InterestedRoles string `json:"interested_roles"`
	Skillsets       string `json:"skillsets"`
	Experience      string `json:"experience"`
	Achievements    string `json:"achievements"`
}

// profileAliases maps accepted input keys to profile fields.
// "skills" is the form field name used by the web front end.
var profileAliases = map[string]string{
	"interested_roles": "interested_roles",
	"roles":            "interested_roles",
	"skillsets":        "skillsets",
	"skills":           "skillsets",
	"experience":       "experience",
	"achievements":     "achievements",
}

// ParseProfile decodes a profile from a JSON object.
// Missing or null keys become empty text. Lists are joined with ", ".
// Anything other than an object returns ErrMalformedProfile.
func ParseProfile(data []byte) (*QueryProfile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedProfile)
	}
	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}

	fields := make(map[string]string, 4)
	for key, value := range raw {
		k := strings.ToLower(strings.TrimSpace(key))
		name, ok := profileAliases[k]
		if !ok {
			continue
		}
		text := fieldText(value)
		// Canonical keys win over aliases when both are present.
		if _, seen := fields[name]; seen && k != name {
			continue
		}
		fields[name] = text
	}
	return &QueryProfile{
		InterestedRoles: fields["interested_roles"],
		Skillsets:       fields["skillsets"],
		Experience:      fields["experience"],
		Achievements:    fields["achievements"],
	}, nil
}

func fieldText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := fieldText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// IsEmpty reports whether every field is blank.
func (p *QueryProfile) IsEmpty() bool {
	return strings.TrimSpace(p.InterestedRoles) == "" &&
		strings.TrimSpace(p.Skillsets) == "" &&
		strings.TrimSpace(p.Experience) == "" &&
		strings.TrimSpace(p.Achievements) == ""
}

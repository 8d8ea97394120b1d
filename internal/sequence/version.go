package sequence

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FileVersion is the version written into every saved or exported document.
var FileVersion = Version{Major: 2, Minor: 0, Patch: 0}

// legacyVersion is assumed for documents that carry no version field.
var legacyVersion = Version{Major: 1, Minor: 0, Patch: 0}

// Version is a semantic version triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses "MAJOR[.MINOR[.PATCH]]". Missing components are zero.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return Version{}, fmt.Errorf("parse version: empty string")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, fmt.Errorf("parse version %q: too many components", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("parse version %q: invalid component %q", s, p)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// Compatible reports whether documents written at v can be read by a store
// at other. Only the major component has to match.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// MarshalJSON writes the version as a string.
func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON reads a version string.
func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("version must be a string: %w", err)
	}
	parsed, err := ParseVersion(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

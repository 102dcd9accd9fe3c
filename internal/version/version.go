// Package version derives build version tags from semantic versions.
package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	LevelMajor      = "major"
	LevelMinor      = "minor"
	LevelPatch      = "patch"
	LevelPremajor   = "premajor"
	LevelPreminor   = "preminor"
	LevelPrepatch   = "prepatch"
	LevelPrerelease = "prerelease"
)

var (
	// ErrInvalidVersion indicates the version is not a semantic version
	ErrInvalidVersion = errors.New("invalid semantic version")
	// ErrInvalidLevel indicates the bump level is not a known increment
	ErrInvalidLevel = errors.New("invalid version increment level")
)

var nonDigits = regexp.MustCompile(`[^\d]+`)

// Package is the subset of a package.json manifest we need.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ReadPackage loads a package manifest.
func ReadPackage(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &pkg, nil
}

// CurrentVersion replaces every run of non digits in v with an underscore,
// "1.2.3" becomes "1_2_3".
func CurrentVersion(v string) string {
	return nonDigits.ReplaceAllString(v, "_")
}

// NextVersion bumps v by level (patch when empty) and returns the tag of
// the result. A prerelease already sitting on the requested boundary is
// released rather than bumped, so 2.0.0-beta becomes 2.0.0 for major.
func NextVersion(v, level string) (string, error) {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidVersion, v, err)
	}

	next, err := increment(sv, level)
	if err != nil {
		return "", err
	}

	return CurrentVersion(next.String()), nil
}

// increment applies level to sv. Build metadata is always dropped.
func increment(sv *semver.Version, level string) (*semver.Version, error) {
	major, minor, patch, pre := sv.Major(), sv.Minor(), sv.Patch(), sv.Prerelease()

	switch level {
	case LevelMajor:
		if minor != 0 || patch != 0 || pre == "" {
			major++
		}
		return semver.New(major, 0, 0, "", ""), nil
	case LevelMinor:
		if patch != 0 || pre == "" {
			minor++
		}
		return semver.New(major, minor, 0, "", ""), nil
	case LevelPatch, "":
		if pre == "" {
			patch++
		}
		return semver.New(major, minor, patch, "", ""), nil
	case LevelPremajor:
		return semver.New(major+1, 0, 0, "0", ""), nil
	case LevelPreminor:
		return semver.New(major, minor+1, 0, "0", ""), nil
	case LevelPrepatch:
		return semver.New(major, minor, patch+1, "0", ""), nil
	case LevelPrerelease:
		if pre == "" {
			return semver.New(major, minor, patch+1, "0", ""), nil
		}
		return semver.New(major, minor, patch, nextPrerelease(pre), ""), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
}

// nextPrerelease increments the last numeric identifier of pre, appending
// ".0" when there is none.
func nextPrerelease(pre string) string {
	ids := strings.Split(pre, ".")
	for i := len(ids) - 1; i >= 0; i-- {
		n, err := strconv.ParseUint(ids[i], 10, 64)
		if err != nil {
			continue
		}
		ids[i] = strconv.FormatUint(n+1, 10)
		return strings.Join(ids, ".")
	}
	return pre + ".0"
}

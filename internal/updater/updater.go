// Package updater checks GitHub for a newer php-mt-seed release.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/phpmtseed/phpmtseed/internal/version"
)

const (
	owner = "phpmtseed"
	repo  = "phpmtseed"

	defaultBaseURL = "https://api.github.com"
)

// Release is the part of a GitHub release the version command prints.
type Release struct {
	TagName string // e.g. "v1.2.0"
	HTMLURL string
}

// Checker queries the releases API. The zero value uses api.github.com
// and http.DefaultClient.
type Checker struct {
	BaseURL string
	Client  *http.Client
	Current string // defaults to version.Version
}

// Check returns the latest release when it is newer than the running
// build, or nil, nil when already up to date.
func Check(ctx context.Context) (*Release, error) {
	return (&Checker{}).Check(ctx)
}

// Check is the method form of the package-level Check.
func (c *Checker) Check(ctx context.Context) (*Release, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	current := c.Current
	if current == "" {
		current = version.Version
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", strings.TrimSuffix(base, "/"), owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api: status %d", resp.StatusCode)
	}

	var gh struct {
		TagName string `json:"tag_name"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&gh); err != nil {
		return nil, fmt.Errorf("parsing github response: %w", err)
	}

	if !IsNewer(gh.TagName, current) {
		return nil, nil
	}
	return &Release{TagName: gh.TagName, HTMLURL: gh.HTMLURL}, nil
}

// IsNewer reports whether remote is a later "vMAJOR.MINOR.PATCH" than
// local. Dev builds are never behind.
func IsNewer(remote, local string) bool {
	if local == "dev" {
		return false
	}
	r, okR := parseVersion(remote)
	l, okL := parseVersion(local)
	if !okR || !okL {
		return false
	}
	for i := range r {
		if r[i] != l[i] {
			return r[i] > l[i]
		}
	}
	return false
}

func parseVersion(v string) ([3]int, bool) {
	var out [3]int
	parts := strings.SplitN(strings.TrimPrefix(v, "v"), ".", 3)
	if len(parts) != 3 {
		return out, false
	}
	for i, p := range parts {
		// pre-release suffix
		p, _, _ = strings.Cut(p, "-")
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, false
		}
		out[i] = n
	}
	return out, true
}

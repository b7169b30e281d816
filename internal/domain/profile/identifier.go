package profile

import (
	"net/url"
	"regexp"
	"strings"

	"sentinel/pkg/errors"
)

var (
	bareUsername  = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	looseUsername = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
	numericID     = regexp.MustCompile(`^[0-9]+$`)
)

var platformHosts = map[Platform][]string{
	PlatformTwitter:   {"twitter.com", "www.twitter.com", "x.com", "www.x.com", "mobile.twitter.com"},
	PlatformInstagram: {"instagram.com", "www.instagram.com"},
	PlatformFacebook:  {"facebook.com", "www.facebook.com", "m.facebook.com"},
}

// ParsePlatform converts user input into a Platform. "x" is accepted for twitter.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if p == "x" {
		return PlatformTwitter, nil
	}
	if !p.Valid() {
		return "", errors.NewValidationError("platform", "unsupported platform", s)
	}
	return p, nil
}

// ParseIdentifier extracts a username (or numeric id for Facebook) from a bare
// handle, an @handle or a profile URL on the given platform.
func ParseIdentifier(input string, platform Platform) (string, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return "", errors.NewValidationError("identifier", "is empty", input)
	}
	if bareUsername.MatchString(raw) {
		return raw, nil
	}

	if handle := strings.TrimPrefix(raw, "@"); handle != raw && looseUsername.MatchString(handle) {
		return handle, nil
	}

	if username, ok := fromURL(raw, platform); ok {
		return username, nil
	}

	if looseUsername.MatchString(raw) {
		return raw, nil
	}
	return "", errors.NewValidationError("identifier", "not a "+platform.String()+" username or profile URL", input)
}

func fromURL(raw string, platform Platform) (string, bool) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	accepted := false
	for _, h := range platformHosts[platform] {
		if host == h {
			accepted = true
			break
		}
	}
	if !accepted {
		return "", false
	}

	path := strings.Trim(u.Path, "/")
	if platform == PlatformFacebook && path == "profile.php" {
		id := u.Query().Get("id")
		return id, numericID.MatchString(id)
	}

	segment, _, _ := strings.Cut(path, "/")
	segment = strings.TrimPrefix(segment, "@")
	if segment == "" || !looseUsername.MatchString(segment) {
		return "", false
	}
	return segment, true
}

// ProfileURL returns the canonical profile URL for a username
func ProfileURL(username string, platform Platform) string {
	switch platform {
	case PlatformTwitter:
		return "https://twitter.com/" + username
	case PlatformInstagram:
		return "https://www.instagram.com/" + username + "/"
	case PlatformFacebook:
		if numericID.MatchString(username) {
			return "https://www.facebook.com/profile.php?id=" + username
		}
		return "https://www.facebook.com/" + username
	default:
		return ""
	}
}

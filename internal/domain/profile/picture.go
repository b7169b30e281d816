package profile

import "strings"

var defaultPicturePatterns = []string{
	"default_profile",
	"default_avatar",
	"placeholder",
	"no_photo",
	"anonymous",
	"blank_profile",
}

// IsDefaultPictureURL reports whether the URL points at a platform placeholder avatar
func IsDefaultPictureURL(url string) bool {
	lower := strings.ToLower(url)
	for _, p := range defaultPicturePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

package profile

import "time"

// Unknown marks a count the platform did not report
const Unknown = -1

// Platform identifies the social network a profile belongs to
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

// Platforms lists supported platforms in their canonical order
var Platforms = []Platform{PlatformTwitter, PlatformInstagram, PlatformFacebook}

// Valid checks if platform is supported
func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitter, PlatformInstagram, PlatformFacebook:
		return true
	}
	return false
}

// String returns string representation
func (p Platform) String() string {
	return string(p)
}

// RawProfileRecord is the typed output of a platform connector. Only the
// platform and username are required; any negative count, Unknown included,
// is replaced by the feature default during extraction.
type RawProfileRecord struct {
	Platform          Platform   `json:"platform" validate:"required,oneof=twitter instagram facebook"`
	Username          string     `json:"username" validate:"required"`
	DisplayName       string     `json:"display_name,omitempty"`
	AccountAgeDays    int        `json:"account_age_days"`
	FollowersCount    int        `json:"followers_count"`
	FollowingCount    int        `json:"following_count"`
	PostCount         int        `json:"post_count"`
	BioText           string     `json:"bio_text,omitempty"`
	Location          string     `json:"location,omitempty"`
	Website           string     `json:"website,omitempty"`
	ProfilePictureURL string     `json:"profile_picture_url,omitempty"`
	Verified          bool       `json:"verified"`
	FetchedAt         time.Time  `json:"fetched_at"`
	Posts             []RawPost  `json:"posts,omitempty"`
	Attributes        Attributes `json:"attributes"`
}

// RawPost is one item of the sampled post history, newest or oldest first
type RawPost struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	Shares    int       `json:"shares"`
	IsShare   bool      `json:"is_share"` // retweet / reshare of someone else's post
	HasMedia  bool      `json:"has_media"`
}

// Attributes holds platform-specific raw fields
type Attributes struct {
	// Instagram
	IsBusinessAccount bool `json:"is_business_account,omitempty"`

	// Twitter
	IsBlue bool `json:"is_blue,omitempty"`

	// Facebook
	PageLikesCount     int    `json:"page_likes_count,omitempty"`
	Work               string `json:"work,omitempty"`
	Education          string `json:"education,omitempty"`
	RelationshipStatus string `json:"relationship_status,omitempty"`
}

// NewRecord returns a record with every count set to Unknown
func NewRecord(platform Platform, username string) RawProfileRecord {
	return RawProfileRecord{
		Platform:       platform,
		Username:       username,
		AccountAgeDays: Unknown,
		FollowersCount: Unknown,
		FollowingCount: Unknown,
		PostCount:      Unknown,
	}
}

// Meta is the identity part of a record carried into reports
type Meta struct {
	Platform    Platform `json:"platform"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name,omitempty"`
	ProfileURL  string   `json:"profile_url"`
	Verified    bool     `json:"verified"`
}

// Meta extracts report identity from the record
func (r *RawProfileRecord) Meta() Meta {
	return Meta{
		Platform:    r.Platform,
		Username:    r.Username,
		DisplayName: r.DisplayName,
		ProfileURL:  ProfileURL(r.Username, r.Platform),
		Verified:    r.Verified,
	}
}

package content

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform describes one known network whose pages may sit behind a login
// wall. AuthPatterns are path shapes that require authentication;
// PublicPatterns carve out exceptions that stay reachable without a session.
type Platform struct {
	Name           string
	Hosts          []string
	AuthPatterns   []*regexp.Regexp
	PublicPatterns []*regexp.Regexp

	// LoginPhrases extend the generic login-indicator list for this
	// platform's localized wording.
	LoginPhrases []string
}

// PlatformGeneric names the unclassified platform.
const PlatformGeneric = "generic"

// Classification is the result of platform detection for one URL.
type Classification struct {
	Platform string

	// AuthWalled is true when the URL is confidently classified as
	// requiring authentication with no public-content exception; the
	// pipeline then short-circuits without navigating.
	AuthWalled bool

	// Known is true for any recognised platform, walled or not.
	Known bool

	phrases []string
}

// Classifier matches URLs against a platform table.
type Classifier struct {
	platforms []Platform
}

// NewClassifier builds a Classifier; with no arguments it uses the default
// platform table.
func NewClassifier(platforms ...Platform) *Classifier {
	if len(platforms) == 0 {
		platforms = DefaultPlatforms()
	}
	return &Classifier{platforms: platforms}
}

// DefaultPlatforms is the shipped table of auth-walled networks.
func DefaultPlatforms() []Platform {
	return []Platform{
		{
			Name:  "linkedin",
			Hosts: []string{"linkedin.com"},
			AuthPatterns: []*regexp.Regexp{
				regexp.MustCompile(`^/in/[^/]+`),       // member profiles
				regexp.MustCompile(`^/company/[^/]+`),  // organization pages
				regexp.MustCompile(`^/school/[^/]+`),
				regexp.MustCompile(`^/(feed|mynetwork|jobs)(/|$)`),
			},
			PublicPatterns: []*regexp.Regexp{
				regexp.MustCompile(`^/pulse/`), // published articles
			},
			LoginPhrases: []string{"join linkedin", "sign in to view"},
		},
		{
			Name:  "instagram",
			Hosts: []string{"instagram.com"},
			AuthPatterns: []*regexp.Regexp{
				regexp.MustCompile(`^/[^/]+/?$`), // profile pages
			},
			PublicPatterns: []*regexp.Regexp{
				regexp.MustCompile(`^/(p|reel|explore)/`),
			},
			LoginPhrases: []string{"log in to instagram"},
		},
		{
			Name:  "facebook",
			Hosts: []string{"facebook.com"},
			AuthPatterns: []*regexp.Regexp{
				regexp.MustCompile(`^/profile\.php`),
				regexp.MustCompile(`^/people/`),
				regexp.MustCompile(`^/groups/`),
			},
			LoginPhrases: []string{"log in to facebook", "log into facebook"},
		},
		{
			Name:  "twitter",
			Hosts: []string{"twitter.com", "x.com"},
			AuthPatterns: []*regexp.Regexp{
				regexp.MustCompile(`^/(home|notifications|messages|i)(/|$)`),
			},
			LoginPhrases: []string{"sign in to x", "sign up for x"},
		},
		{
			// Medium meters rather than walls; classified so the
			// empty-content fallback applies, never short-circuited.
			Name:         "medium",
			Hosts:        []string{"medium.com"},
			LoginPhrases: []string{"become a member"},
		},
	}
}

// Classify derives the platform from the URL's host and path shape.
func (c *Classifier) Classify(rawURL string) Classification {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Classification{Platform: PlatformGeneric}
	}

	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	path := u.Path

	for _, p := range c.platforms {
		if !hostMatches(host, p.Hosts) {
			continue
		}

		cls := Classification{Platform: p.Name, Known: true, phrases: p.LoginPhrases}

		for _, pub := range p.PublicPatterns {
			if pub.MatchString(path) {
				return cls // recognised, but publicly reachable
			}
		}
		for _, auth := range p.AuthPatterns {
			if auth.MatchString(path) {
				cls.AuthWalled = true
				return cls
			}
		}
		return cls
	}

	return Classification{Platform: PlatformGeneric}
}

func hostMatches(host string, candidates []string) bool {
	for _, c := range candidates {
		if host == c || strings.HasSuffix(host, "."+c) {
			return true
		}
	}
	return false
}

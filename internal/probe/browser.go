package probe

import (
	"regexp"
	"strconv"
	"strings"
)

// Minimum supported major versions.
const (
	MinChrome  = 90
	MinFirefox = 88
	MinSafari  = 14
	MinEdge    = 90
)

const unknown = "Unknown"

var (
	chromeVersion  = regexp.MustCompile(`Chrome/(\d+)`)
	firefoxVersion = regexp.MustCompile(`Firefox/(\d+)`)
	safariVersion  = regexp.MustCompile(`Version/(\d+)`)
	edgeVersion    = regexp.MustCompile(`Edg/(\d+)`)
)

// Browser describes the client named by a user agent.
type Browser struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Supported bool   `json:"isSupported"`
}

// ParseBrowser identifies the browser family and major version in ua.
// Unrecognized agents are reported as unsupported.
func ParseBrowser(ua string) Browser {
	switch {
	case strings.Contains(ua, "Chrome") && !strings.Contains(ua, "Edg"):
		return browser("Chrome", chromeVersion, ua, MinChrome)
	case strings.Contains(ua, "Firefox"):
		return browser("Firefox", firefoxVersion, ua, MinFirefox)
	case strings.Contains(ua, "Safari") && !strings.Contains(ua, "Chrome"):
		return browser("Safari", safariVersion, ua, MinSafari)
	case strings.Contains(ua, "Edg"):
		return browser("Edge", edgeVersion, ua, MinEdge)
	default:
		return Browser{Name: unknown, Version: unknown}
	}
}

func browser(name string, re *regexp.Regexp, ua string, minimum int) Browser {
	b := Browser{Name: name, Version: unknown}
	m := re.FindStringSubmatch(ua)
	if m == nil {
		return b
	}
	b.Version = m[1]
	major, err := strconv.Atoi(m[1])
	b.Supported = err == nil && major >= minimum
	return b
}

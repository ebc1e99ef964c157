package probe

import "regexp"

// Device classes.
const (
	ClassMobile  = "mobile"
	ClassTablet  = "tablet"
	ClassDesktop = "desktop"
)

var (
	mobileAgent  = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)
	ipadAgent    = regexp.MustCompile(`(?i)iPad`)
	androidAgent = regexp.MustCompile(`(?i)Android`)
	mobileMarker = regexp.MustCompile(`(?i)Mobile`)
)

// Device describes the client device.
type Device struct {
	Class          string `json:"class"`
	Mobile         bool   `json:"isMobile"`
	Tablet         bool   `json:"isTablet"`
	Desktop        bool   `json:"isDesktop"`
	ViewportWidth  int    `json:"viewportWidth,omitempty"`
	ViewportHeight int    `json:"viewportHeight,omitempty"`
	Language       string `json:"language,omitempty"`
}

// IsMobile reports whether ua belongs to a handheld device, tablets included.
func IsMobile(ua string) bool { return mobileAgent.MatchString(ua) }

// IsTablet reports iPads and Android agents without a Mobile token.
func IsTablet(ua string) bool {
	if ipadAgent.MatchString(ua) {
		return true
	}
	all := androidAgent.FindAllStringIndex(ua, -1)
	if len(all) == 0 {
		return false
	}
	last := all[len(all)-1]
	return !mobileMarker.MatchString(ua[last[1]:])
}

// DeviceClass returns tablet, mobile or desktop for ua.
func DeviceClass(ua string) string {
	switch {
	case IsTablet(ua):
		return ClassTablet
	case IsMobile(ua):
		return ClassMobile
	default:
		return ClassDesktop
	}
}

func describeDevice(env Env) Device {
	mobile := IsMobile(env.UserAgent)
	return Device{
		Class:          DeviceClass(env.UserAgent),
		Mobile:         mobile,
		Tablet:         IsTablet(env.UserAgent),
		Desktop:        !mobile,
		ViewportWidth:  env.ViewportWidth,
		ViewportHeight: env.ViewportHeight,
		Language:       env.Language,
	}
}

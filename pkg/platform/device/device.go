// Package device turns User-Agent headers into short display names for logs
// and audit events.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns a display name such as "Chrome on macOS".
// Empty input yields "Unknown Device".
func ParseUserAgent(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	platform := osName(ua)
	if p := ua.Platform(); p == "iPhone" || p == "iPad" {
		platform = p
	}
	if platform == "" {
		platform = "Unknown OS"
	}

	return strings.TrimSpace(browser + " on " + platform)
}

func osName(ua *useragent.UserAgent) string {
	info := ua.OSInfo()
	switch name := strings.TrimSpace(info.Name); name {
	case "Mac OS X", "Intel Mac OS X":
		return "macOS"
	case "CPU iPhone OS", "iPhone OS":
		return "iOS"
	case "":
		return strings.TrimSpace(ua.OS())
	default:
		return name
	}
}

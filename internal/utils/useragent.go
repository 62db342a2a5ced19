package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo holds parsed information from a User-Agent string
type DeviceInfo struct {
	DeviceType string `json:"device_type"` // mobile, desktop
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	BrowserVer string `json:"browser_ver"`
	IsBot      bool   `json:"is_bot"`
	Raw        string `json:"raw"`
}

// ParseUserAgent parses a User-Agent string and extracts device information
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" {
		return DeviceInfo{
			DeviceType: "unknown",
			OS:         "Unknown",
			Browser:    "Unknown",
			Raw:        userAgent,
		}
	}

	parser := ua.New(userAgent)
	browser, version := parser.Browser()

	info := DeviceInfo{
		Raw:        userAgent,
		IsBot:      parser.Bot(),
		Browser:    browser,
		BrowserVer: version,
		OS:         osName(parser),
		DeviceType: "desktop",
	}
	if parser.Mobile() {
		info.DeviceType = "mobile"
	}
	if info.Browser == "" {
		info.Browser = "Unknown"
	}
	return info
}

func osName(parser *ua.UserAgent) string {
	info := parser.OSInfo()
	if info.Name == "" {
		return "Unknown"
	}
	if info.Version != "" {
		return strings.TrimSpace(info.Name + " " + info.Version)
	}
	return info.Name
}

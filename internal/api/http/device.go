package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avoronov/authkeeper-server/internal/model"
)

const deviceHeader = "X-Device-ID"

// deviceFromRequest derives the device fingerprint from the request: client
// IP, raw user agent, and a coarse browser/OS classification parsed out of it.
func deviceFromRequest(c *gin.Context) model.DeviceInfo {
	userAgent := c.GetHeader("User-Agent")
	browser, os := classifyUserAgent(userAgent)
	return model.DeviceInfo{
		DeviceID:  c.GetHeader(deviceHeader),
		UserAgent: userAgent,
		IP:        c.ClientIP(),
		Browser:   browser,
		OS:        os,
	}
}

// classifyUserAgent is intentionally coarse: the fingerprint only has to be
// stable across logins from the same client, not forensically precise.
func classifyUserAgent(userAgent string) (browser, os string) {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "edg/"):
		browser = "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		browser = "Opera"
	case strings.Contains(ua, "chrome/"):
		browser = "Chrome"
	case strings.Contains(ua, "firefox/"):
		browser = "Firefox"
	case strings.Contains(ua, "safari/"):
		browser = "Safari"
	case strings.Contains(ua, "curl/"):
		browser = "curl"
	default:
		browser = "Unknown"
	}

	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ios"):
		os = "iOS"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Unknown"
	}

	return browser, os
}

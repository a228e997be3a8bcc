package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"media-suite-accounts/internal/domain/model"
)

var (
	uaVersions  = regexp.MustCompile(`\d+(\.\d+)*`)
	uaHexIDs    = regexp.MustCompile(`[a-fA-F0-9]{8,}`)
	uaWhitespace = regexp.MustCompile(`\s+`)
)

// normalizeUserAgent strips version numbers and embedded identifiers so the
// fingerprint survives routine browser updates.
func normalizeUserAgent(ua string) string {
	n := uaVersions.ReplaceAllString(ua, "X")
	n = uaHexIDs.ReplaceAllString(n, "ID")
	return strings.TrimSpace(uaWhitespace.ReplaceAllString(n, " "))
}

// Fingerprint derives a one-way device label from stable request attributes.
// It is used for session auditing only, never as an authentication factor.
func Fingerprint(userAgent, ip string) string {
	sum := sha256.Sum256([]byte(normalizeUserAgent(userAgent) + ":" + ip))
	return hex.EncodeToString(sum[:])
}

// DeviceName maps a user agent to a coarse human-readable device label.
func DeviceName(userAgent string) string {
	if userAgent == "" {
		return "unknown device"
	}
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "iphone"):
		return "iPhone"
	case strings.Contains(ua, "ipad"):
		return "iPad"
	case strings.Contains(ua, "android"):
		return "Android device"
	case strings.Contains(ua, "mobile"):
		return "mobile device"
	case strings.Contains(ua, "windows"):
		return "Windows PC"
	case strings.Contains(ua, "mac"):
		return "Mac"
	case strings.Contains(ua, "linux"):
		return "Linux PC"
	default:
		return "unknown device"
	}
}

// DeviceInfoFrom assembles the session device metadata from the request
// attributes the boundary layer extracted.
func DeviceInfoFrom(userAgent, ip string) model.DeviceInfo {
	return model.DeviceInfo{
		DeviceID:   Fingerprint(userAgent, ip),
		DeviceName: DeviceName(userAgent),
		UserAgent:  userAgent,
		IPAddress:  ip,
	}
}

package device

import (
	"strings"

	"github.com/garage-notify/internal/domain"
)

// NormalizePlatform maps a client-supplied platform string onto a known platform.
// Anything unrecognised is treated as Android, which is served by the FCM application.
func NormalizePlatform(platform string) string {
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case "ios", "iphone", "ipad", "apns":
		return domain.PlatformIOS
	case "web", "browser":
		return domain.PlatformWeb
	default:
		return domain.PlatformAndroid
	}
}

package httpx

import (
	"net/http"
	"strings"

	"github.com/target/dispatch-api/internal/domain/dispatch"
)

// ResolvePlatform picks the deep-link flavour for a request: an explicit
// ?platform= wins, otherwise the User-Agent decides, defaulting to desktop.
func ResolvePlatform(r *http.Request) dispatch.ClientPlatform {
	if p, ok := dispatch.ParseClientPlatform(r.URL.Query().Get(queryPlatform)); ok {
		return p
	}
	return platformFromUserAgent(r.UserAgent())
}

func platformFromUserAgent(ua string) dispatch.ClientPlatform {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return dispatch.PlatformIOS
	case strings.Contains(ua, "android"):
		return dispatch.PlatformAndroid
	default:
		return dispatch.PlatformDesktop
	}
}

package dispatch

import (
	"fmt"
	"net/url"
	"strings"
)

// ClientPlatform selects which deep-link flavour the caller can open.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ClientPlatform string

const (
	// PlatformIOS opens the WhatsApp app scheme and Apple Maps.
	PlatformIOS ClientPlatform = "ios"
	// PlatformAndroid opens the WhatsApp app scheme and a geo: intent.
	PlatformAndroid ClientPlatform = "android"
	// PlatformDesktop opens WhatsApp Web and Google Maps in the browser.
	PlatformDesktop ClientPlatform = "desktop"
)

// Valid reports whether p is a known platform.
func (p ClientPlatform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid || p == PlatformDesktop
}

// UnmarshalText implements encoding.TextUnmarshaler for ClientPlatform.
func (p *ClientPlatform) UnmarshalText(text []byte) error {
	v, ok := ParseClientPlatform(string(text))
	if !ok {
		return fmt.Errorf("invalid ClientPlatform: %q", string(text))
	}
	*p = v
	return nil
}

// ParseClientPlatform normalizes value and reports whether it names a platform.
func ParseClientPlatform(value string) (ClientPlatform, bool) {
	p := ClientPlatform(strings.ToLower(strings.TrimSpace(value)))
	return p, p.Valid()
}

// Link is a deep link plus a universal URL that works anywhere and can be
// handed back for copy/paste when the deep link cannot be opened.
type Link struct {
	Platform ClientPlatform `json:"platform"`
	URL      string         `json:"url"`
	Fallback string         `json:"fallback"`
}

// linkStrategy renders a messaging URL for normalized digits and encoded text.
type linkStrategy func(phone, text string) string

var messagingStrategies = map[ClientPlatform]linkStrategy{
	PlatformIOS:     appSchemeLink,
	PlatformAndroid: appSchemeLink,
	PlatformDesktop: func(phone, text string) string {
		return "https://web.whatsapp.com/send?phone=" + phone + "&text=" + text
	},
}

func appSchemeLink(phone, text string) string {
	return "whatsapp://send?phone=" + phone + "&text=" + text
}

// ToMessagingDeepLink returns the universal wa.me link for phone carrying
// message. The message is whitespace-collapsed and percent-encoded.
func ToMessagingDeepLink(phone, message string) (string, error) {
	digits, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}
	return universalLink(digits, encodeText(message)), nil
}

// MessagingLink picks the messaging link for platform. Unknown platforms are
// treated as desktop.
func MessagingLink(platform ClientPlatform, phone, message string) (Link, error) {
	digits, err := NormalizePhone(phone)
	if err != nil {
		return Link{}, err
	}
	if !platform.Valid() {
		platform = PlatformDesktop
	}
	text := encodeText(message)
	return Link{
		Platform: platform,
		URL:      messagingStrategies[platform](digits, text),
		Fallback: universalLink(digits, text),
	}, nil
}

// MapsLink opens address in the platform's native maps application.
func MapsLink(platform ClientPlatform, address string) Link {
	q := encodeText(address)
	web := "https://www.google.com/maps/search/?api=1&query=" + q
	switch platform {
	case PlatformIOS:
		return Link{Platform: platform, URL: "maps://?q=" + q, Fallback: "https://maps.apple.com/?q=" + q}
	case PlatformAndroid:
		return Link{Platform: platform, URL: "geo:0,0?q=" + q, Fallback: web}
	default:
		return Link{Platform: PlatformDesktop, URL: web, Fallback: web}
	}
}

func universalLink(digits, text string) string {
	return "https://wa.me/" + digits + "?text=" + text
}

func encodeText(s string) string {
	return strings.ReplaceAll(url.QueryEscape(CollapseWhitespace(s)), "+", "%20")
}

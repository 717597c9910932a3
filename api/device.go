package api

import (
	"fmt"

	ua "github.com/mssola/user_agent"
)

// describeDevice turns a User-Agent header into a short label stored on the
// checkout session, e.g. "Chrome 120.0 on Linux x86_64 (desktop)".
func describeDevice(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}
	parser := ua.New(userAgent)
	if parser.Bot() {
		name, _ := parser.Browser()
		return "bot: " + name
	}

	kind := "desktop"
	if parser.Mobile() {
		kind = "mobile"
	}
	name, version := parser.Browser()
	if name == "" {
		name = "Unknown"
	}
	if version != "" {
		name += " " + version
	}
	if os := parser.OS(); os != "" {
		return fmt.Sprintf("%s on %s (%s)", name, os, kind)
	}
	return fmt.Sprintf("%s (%s)", name, kind)
}

package camera

import "strings"

// mobile runtime markers, matched case-insensitively against the runtime's
// user-agent style descriptor.
var mobileMarkers = []string{"iphone", "ipad", "ipod", "android"}

// IsMobileRuntime reports whether the runtime descriptor identifies a
// handheld device. Only handheld runtimes expose the facing toggle;
// desktop cameras are treated as fixed-facing.
func IsMobileRuntime(descriptor string) bool {
	d := strings.ToLower(descriptor)
	for _, marker := range mobileMarkers {
		if strings.Contains(d, marker) {
			return true
		}
	}
	return false
}

// ToggleAvailable reports whether the switch control should be exposed for
// the given runtime descriptor.
func (m *Manager) ToggleAvailable(descriptor string) bool {
	return IsMobileRuntime(descriptor)
}

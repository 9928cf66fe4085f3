package hal

import (
	"fmt"
	"strings"

	"github.com/watt-tools/watt/internal/domain"
)

// PlatformProfileSupported reports whether the ACPI platform profile
// interface exists.
func (h *HAL) PlatformProfileSupported() bool {
	return h.exists(h.path(platformProfile))
}

// PlatformProfileChoices returns the profiles the firmware offers.
func (h *HAL) PlatformProfileChoices() ([]string, error) {
	s, err := readString(h.path(platformChoices))
	if err != nil {
		return nil, err
	}
	return strings.Fields(s), nil
}

// CurrentPlatformProfile reads the active ACPI platform profile.
func (h *HAL) CurrentPlatformProfile() (string, error) {
	return readString(h.path(platformProfile))
}

// SetPlatformProfile writes the ACPI platform profile. When the firmware
// publishes its choices, names outside that set are unsupported.
func (h *HAL) SetPlatformProfile(name string) error {
	if !h.PlatformProfileSupported() {
		return fmt.Errorf("%w: %s", domain.ErrUnsupported, h.path(platformProfile))
	}
	if choices, err := h.PlatformProfileChoices(); err == nil && len(choices) > 0 {
		ok := false
		for _, c := range choices {
			if c == name {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: platform profile %q not in %v", domain.ErrUnsupported, name, choices)
		}
	}
	return writeVerified(h.path(platformProfile), name)
}

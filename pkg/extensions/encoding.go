package extensions

import (
	"fmt"
	"strings"
)

// OptionSeparator joins a plugin id and an option name. Plugin ids must not contain it.
const OptionSeparator = ":"

// EncodeOptionName prefixes an option with its owning plugin id so options of
// different plugins with colliding names stay distinct in transit
func EncodeOptionName(pluginID, option string) string {
	return pluginID + OptionSeparator + option
}

// DecodeOptionName splits an encoded option name at the first separator
func DecodeOptionName(encoded string) (pluginID, option string, err error) {
	pluginID, option, ok := strings.Cut(encoded, OptionSeparator)
	if !ok || pluginID == "" || option == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedOptionName, encoded)
	}
	return pluginID, option, nil
}

// ValidatePluginID rejects ids that cannot survive option encoding
func ValidatePluginID(pluginID string) error {
	if strings.TrimSpace(pluginID) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPluginID)
	}
	if strings.Contains(pluginID, OptionSeparator) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidPluginID, pluginID, OptionSeparator)
	}
	return nil
}

// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validateHTTPURL checks scheme and host. Paths are allowed because the
// upstream API may live under a prefix.
func validateHTTPURL(rawURL, fieldName string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if u.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, u.RawQuery)
	}
	return nil
}

// validateTopic checks MQTT topic syntax. Wildcards are only legal in
// subscription filters: '+' must fill a whole level and '#' must be last.
func validateTopic(topic string, allowWildcards bool) error {
	if topic == "" {
		return fmt.Errorf("topic must not be empty")
	}
	if strings.ContainsRune(topic, 0) {
		return fmt.Errorf("topic %q contains a NUL character", topic)
	}
	levels := strings.Split(topic, "/")
	for i, level := range levels {
		hasWildcard := strings.ContainsAny(level, "+#")
		if !hasWildcard {
			continue
		}
		if !allowWildcards {
			return fmt.Errorf("topic %q must not contain wildcards", topic)
		}
		if level != "+" && level != "#" {
			return fmt.Errorf("topic %q: wildcard must occupy a whole level", topic)
		}
		if level == "#" && i != len(levels)-1 {
			return fmt.Errorf("topic %q: '#' must be the last level", topic)
		}
	}
	return nil
}

// ValidateSubscriptionTopic is exported for API handlers accepting topics from clients.
func ValidateSubscriptionTopic(topic string) error {
	return validateTopic(topic, true)
}

// ValidatePublishTopic rejects wildcards.
func ValidatePublishTopic(topic string) error {
	return validateTopic(topic, false)
}

package tracing

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Span attributes whose key contains one of these fragments never reach
// the exporter. API keys and tenant credentials must not leak into a
// shared collector.
var redactedFragments = []string{
	"authorization",
	"api_key",
	"secret",
	"token",
	"password",
}

// SafeAttributes filters out attributes with credential-bearing keys.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	kept := attrs[:0]
	for _, attr := range attrs {
		key := strings.ToLower(string(attr.Key))
		redacted := false
		for _, fragment := range redactedFragments {
			if strings.Contains(key, fragment) {
				redacted = true
				break
			}
		}
		if !redacted {
			kept = append(kept, attr)
		}
	}
	return kept
}

// SafeError reduces an error to its type name before it is recorded on a
// span, since error strings may embed DSNs or key material.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%T", err)
}

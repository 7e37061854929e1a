package custody

import (
	"encoding/json"
	"strings"

	"github.com/devicemanager/api/internal/core/domain"
)

// MergeCustodian writes c into blob under domain.CustodianKey, replacing any
// value already there and keeping every other key. A missing, malformed or
// non-object blob is treated as {}. With no custodian the blob is returned
// unchanged, except that an empty blob becomes {}.
func MergeCustodian(blob string, c *domain.Custodian) string {
	if c == nil {
		if strings.TrimSpace(blob) == "" {
			return domain.EmptyProperties
		}
		return blob
	}

	props := ParseProperties(blob)

	raw, err := json.Marshal(c)
	if err != nil {
		return blob
	}
	props[domain.CustodianKey] = raw

	out, err := json.Marshal(props)
	if err != nil {
		return blob
	}
	return string(out)
}

// ParseProperties decodes blob as a JSON object, falling back to an empty
// object for anything else. Values are kept verbatim.
func ParseProperties(blob string) map[string]json.RawMessage {
	props := map[string]json.RawMessage{}
	if strings.TrimSpace(blob) == "" {
		return props
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &decoded); err != nil || decoded == nil {
		return props
	}
	return decoded
}

// IsObject reports whether blob is a JSON object. Empty input counts as the
// default {} and is accepted.
func IsObject(blob string) bool {
	trimmed := strings.TrimSpace(blob)
	if trimmed == "" {
		return true
	}
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	var decoded map[string]json.RawMessage
	return json.Unmarshal([]byte(trimmed), &decoded) == nil
}

// WithoutCustodian drops domain.CustodianKey from a client-supplied blob. The
// key is derived on every read and is never stored.
func WithoutCustodian(blob string) string {
	props := ParseProperties(blob)
	if _, ok := props[domain.CustodianKey]; !ok {
		if strings.TrimSpace(blob) == "" {
			return domain.EmptyProperties
		}
		return blob
	}
	delete(props, domain.CustodianKey)

	out, err := json.Marshal(props)
	if err != nil {
		return domain.EmptyProperties
	}
	return string(out)
}

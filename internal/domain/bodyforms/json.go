// Package bodyforms implements the auxiliary request-body mapping helpers
// named in §4.13: JSON, form-url-encoded, and multipart/form-data, each
// mapping into a caller-supplied typed target.
package bodyforms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/corehttp/corehttp/internal/domain/httpmsg"
)

// ErrWrongContentType is returned when the request's Content-Type does not
// match what the helper requires.
var ErrWrongContentType = fmt.Errorf("bodyforms: unexpected content type")

// JSONOptions restricts which fields of target are populated.
type JSONOptions struct {
	Include []string // when non-empty, only these top-level keys are applied
	Exclude []string // keys to skip even if present
}

// DecodeJSON requires Content-Type to start with application/json, then
// unmarshals the body into target, honoring Include/Exclude field lists
// (§4.13). Include and Exclude operate on top-level JSON object keys.
func DecodeJSON(req *httpmsg.Request, target interface{}, opts JSONOptions) error {
	ct, _ := req.Headers.TryGet("Content-Type")
	if !strings.HasPrefix(ct, "application/json") {
		return ErrWrongContentType
	}

	if len(opts.Include) == 0 && len(opts.Exclude) == 0 {
		return json.Unmarshal(req.Body, target)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(req.Body, &raw); err != nil {
		return err
	}
	filtered := filterFields(raw, opts)
	b, err := json.Marshal(filtered)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, target)
}

func filterFields(raw map[string]json.RawMessage, opts JSONOptions) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(raw))
	includeSet := toSet(opts.Include)
	excludeSet := toSet(opts.Exclude)
	for k, v := range raw {
		if len(includeSet) > 0 && !includeSet[k] {
			continue
		}
		if excludeSet[k] {
			continue
		}
		out[k] = v
	}
	return out
}

func toSet(keys []string) map[string]bool {
	if len(keys) == 0 {
		return nil
	}
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

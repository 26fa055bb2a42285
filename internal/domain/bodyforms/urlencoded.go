package bodyforms

import (
	"net/url"
	"strings"
)

// ParseFormURLEncoded decodes an application/x-www-form-urlencoded body
// (`+` -> space, `%HH` -> byte). Repeated keys and the `key[]` convention
// both yield list values in the returned map (§4.13).
func ParseFormURLEncoded(body []byte) (map[string][]string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(values))
	for k, v := range values {
		name := strings.TrimSuffix(k, "[]")
		out[name] = append(out[name], v...)
	}
	return out, nil
}

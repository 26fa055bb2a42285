// Package jwtauth implements HS256 JWT encoding, decoding, and claim
// validation (§4.10). No JWT library appears anywhere in the retrieval
// pack this repo is grounded on, so this is the one component built
// directly on the standard library (see DESIGN.md).
package jwtauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error is the tagged enumeration of resolution/validation outcomes named
// in §4.10. None indicates a successfully validated token.
type Error int

const (
	None Error = iota
	InvalidFormat
	InvalidBase64
	InvalidJson
	UnsupportedAlg
	BadSignature
	Expired
	InvalidIssuer
	NotYetValid
	InvalidJsonOptions
)

func (e Error) String() string {
	switch e {
	case None:
		return "none"
	case InvalidFormat:
		return "invalid_format"
	case InvalidBase64:
		return "invalid_base64"
	case InvalidJson:
		return "invalid_json"
	case UnsupportedAlg:
		return "unsupported_alg"
	case BadSignature:
		return "bad_signature"
	case Expired:
		return "expired"
	case InvalidIssuer:
		return "invalid_issuer"
	case NotYetValid:
		return "not_yet_valid"
	case InvalidJsonOptions:
		return "invalid_json_options"
	default:
		return "unknown"
	}
}

// Header is the fixed JWT header this package emits and expects.
type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Claims holds the registered claims plus arbitrary custom claims.
type Claims struct {
	Exp    int64                  `json:"exp,omitempty"`
	Nbf    int64                  `json:"nbf,omitempty"`
	Iat    int64                  `json:"iat,omitempty"`
	Iss    string                 `json:"iss,omitempty"`
	Sub    string                 `json:"sub,omitempty"`
	Aud    string                 `json:"aud,omitempty"`
	Custom map[string]interface{} `json:"-"`
}

// Token is a decoded JWT: header, claims, the raw payload JSON (for callers
// that want fields Claims doesn't surface), and the signature bytes.
type Token struct {
	Header    Header
	Claims    Claims
	RawPayload []byte
	Signature []byte
}

var registeredClaimNames = map[string]bool{
	"exp": true, "nbf": true, "iat": true, "iss": true, "sub": true, "aud": true,
}

// ErrDuplicateClaim is returned by Encode when a custom claim collides with
// a registered claim name.
var ErrDuplicateClaim = errors.New("jwtauth: custom claim collides with a registered claim name")

func base64url(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func base64urlDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// Encode produces an HS256-signed JWT string. custom merges into the
// payload alongside the registered claims; a key collision is an error.
func Encode(secret []byte, claims Claims, custom map[string]interface{}) (string, error) {
	for k := range custom {
		if registeredClaimNames[k] {
			return "", fmt.Errorf("%w: %s", ErrDuplicateClaim, k)
		}
	}

	header := Header{Alg: "HS256", Typ: "JWT"}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("jwtauth: marshal header: %w", err)
	}

	payload := map[string]interface{}{}
	for k, v := range custom {
		payload[k] = v
	}
	if claims.Exp != 0 {
		payload["exp"] = claims.Exp
	}
	if claims.Nbf != 0 {
		payload["nbf"] = claims.Nbf
	}
	if claims.Iat != 0 {
		payload["iat"] = claims.Iat
	}
	if claims.Iss != "" {
		payload["iss"] = claims.Iss
	}
	if claims.Sub != "" {
		payload["sub"] = claims.Sub
	}
	if claims.Aud != "" {
		payload["aud"] = claims.Aud
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("jwtauth: marshal payload: %w", err)
	}

	signingInput := base64url(headerJSON) + "." + base64url(payloadJSON)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signingInput))
	sig := mac.Sum(nil)

	return signingInput + "." + base64url(sig), nil
}

// Options controls claim validation toggles and clock skew.
type Options struct {
	Skew           time.Duration
	Issuer         string
	ValidateExp    bool
	ValidateNbf    bool
	ValidateIssuer bool
	// Clock allows tests to pin "now" without sleeping; defaults to
	// time.Now when left nil (an ambient testing affordance, not a
	// change to the validation semantics).
	Clock func() time.Time
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// Decode parses and validates raw against secret and opts, returning the
// decoded Token and an Error (None on success). A non-None Error may still
// come with a partially populated Token when decoding succeeded but
// validation failed (e.g. Expired).
func Decode(raw string, secret []byte, opts Options) (*Token, Error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, InvalidFormat
	}

	headerJSON, err := base64urlDecode(parts[0])
	if err != nil {
		return nil, InvalidBase64
	}
	payloadJSON, err := base64urlDecode(parts[1])
	if err != nil {
		return nil, InvalidBase64
	}
	sig, err := base64urlDecode(parts[2])
	if err != nil {
		return nil, InvalidBase64
	}

	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, InvalidJson
	}
	if header.Alg != "HS256" {
		return nil, UnsupportedAlg
	}

	var rawClaims map[string]interface{}
	if err := json.Unmarshal(payloadJSON, &rawClaims); err != nil {
		return nil, InvalidJson
	}

	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signingInput))
	expectedSig := mac.Sum(nil)
	if subtle.ConstantTimeCompare(sig, expectedSig) != 1 {
		return nil, BadSignature
	}

	claims, custom, convErr := splitClaims(rawClaims)
	if convErr != nil {
		return nil, InvalidJsonOptions
	}
	token := &Token{Header: header, Claims: claims, RawPayload: payloadJSON, Signature: sig}
	token.Claims.Custom = custom

	now := opts.now()
	skew := opts.Skew
	if skew == 0 {
		skew = 30 * time.Second
	}

	if opts.ValidateExp && claims.Exp != 0 {
		if now.Add(-skew).After(time.Unix(claims.Exp, 0)) {
			return token, Expired
		}
	}
	if opts.ValidateNbf && claims.Nbf != 0 {
		if now.Add(skew).Before(time.Unix(claims.Nbf, 0)) {
			return token, NotYetValid
		}
	}
	if opts.ValidateIssuer && opts.Issuer != "" {
		if claims.Iss != opts.Issuer {
			return token, InvalidIssuer
		}
	}

	return token, None
}

func splitClaims(raw map[string]interface{}) (Claims, map[string]interface{}, error) {
	var claims Claims
	custom := make(map[string]interface{})
	for k, v := range raw {
		switch k {
		case "exp":
			n, err := toInt64(v)
			if err != nil {
				return Claims{}, nil, err
			}
			claims.Exp = n
		case "nbf":
			n, err := toInt64(v)
			if err != nil {
				return Claims{}, nil, err
			}
			claims.Nbf = n
		case "iat":
			n, err := toInt64(v)
			if err != nil {
				return Claims{}, nil, err
			}
			claims.Iat = n
		case "iss":
			s, ok := v.(string)
			if !ok {
				return Claims{}, nil, fmt.Errorf("iss must be a string")
			}
			claims.Iss = s
		case "sub":
			s, ok := v.(string)
			if !ok {
				return Claims{}, nil, fmt.Errorf("sub must be a string")
			}
			claims.Sub = s
		case "aud":
			s, ok := v.(string)
			if !ok {
				return Claims{}, nil, fmt.Errorf("aud must be a string")
			}
			claims.Aud = s
		default:
			custom[k] = v
		}
	}
	return claims, custom, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("expected numeric claim, got %T", v)
	}
}

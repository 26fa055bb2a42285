package jwtauth

import "strings"

// Resolve implements the per-request token resolution order from §4.10:
// 1. the "jwt" query parameter,
// 2. the Authorization: Bearer … header,
// 3. for upgrade requests only (version "13"), Sec-WebSocket-Protocol:
//    "Bearer, <token>".
// The first non-empty candidate wins; empty string + false means no
// candidate was present anywhere.
func Resolve(queryJWT string, hasQueryJWT bool, authorizationHeader string, secWebSocketProtocol string, isUpgradeRequest bool) (string, bool) {
	if hasQueryJWT && queryJWT != "" {
		return queryJWT, true
	}
	if token, ok := bearerToken(authorizationHeader); ok {
		return token, true
	}
	if isUpgradeRequest {
		if token, ok := bearerFromProtocolHeader(secWebSocketProtocol); ok {
			return token, true
		}
	}
	return "", false
}

func bearerToken(authorization string) (string, bool) {
	const prefix = "Bearer "
	if len(authorization) <= len(prefix) {
		return "", false
	}
	if !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(authorization[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// bearerFromProtocolHeader parses "Bearer, <token>" out of a
// Sec-WebSocket-Protocol header value, the convention used by browser
// WebSocket clients that cannot set Authorization on an upgrade request.
func bearerFromProtocolHeader(value string) (string, bool) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(strings.TrimSpace(parts[0]), "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

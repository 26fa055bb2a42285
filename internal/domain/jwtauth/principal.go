package jwtauth

// WebUser is the resolved request principal named in §3's data model: an
// id, a login, and an optional reference back to the token it came from.
// The core only ever populates this from a successfully decoded token's
// sub/custom claims; a middleware is free to overwrite it (e.g. after
// looking the subject up in a user store) before any handler runs.
type WebUser struct {
	ID    string
	Login string
	Token *Token
}

// UserFromToken builds the default WebUser for a successfully decoded
// token: ID is always the "sub" claim; Login is the "login" custom claim
// when it is a non-empty string, and otherwise also "sub", matching the
// common case where the JWT carries no separate display name.
func UserFromToken(tok *Token) *WebUser {
	if tok == nil {
		return nil
	}
	login := tok.Claims.Sub
	if v, ok := tok.Claims.Custom["login"]; ok {
		if s, ok := v.(string); ok && s != "" {
			login = s
		}
	}
	return &WebUser{ID: tok.Claims.Sub, Login: login, Token: tok}
}

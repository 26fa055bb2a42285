package corehttp

import (
	"github.com/corehttp/corehttp/internal/domain/bodyforms"
	"github.com/corehttp/corehttp/internal/domain/executor"
)

// JSONOptions re-exports bodyforms.JSONOptions so handlers never need to
// import internal/domain/bodyforms directly (§4.13).
type JSONOptions = bodyforms.JSONOptions

// MultipartLimits re-exports bodyforms.MultipartLimits.
type MultipartLimits = bodyforms.MultipartLimits

// MultipartFile re-exports bodyforms.MultipartFile.
type MultipartFile = bodyforms.MultipartFile

// DecodeJSONBody requires ctx.Request's Content-Type to start with
// application/json, then unmarshals the body into target, honoring
// opts.Include/Exclude (§4.13). A Delegate calls this the same way it
// reads ctx.Request directly; no separate body-parsing middleware is
// required.
func DecodeJSONBody(ctx *executor.Context, target interface{}, opts JSONOptions) error {
	return bodyforms.DecodeJSON(ctx.Request, target, opts)
}

// ParseFormBody decodes ctx.Request's body as application/x-www-form-urlencoded
// (§4.13): `+` -> space, `%HH` -> byte, repeated keys and the `key[]`
// convention both yield list values.
func ParseFormBody(ctx *executor.Context) (map[string][]string, error) {
	return bodyforms.ParseFormURLEncoded(ctx.Request.Body)
}

// ParseMultipartBody decodes ctx.Request's body as multipart/form-data per
// RFC 7578 (§4.13), using the request's own Content-Type header for the
// boundary. limits bounds the number of parts and per-file bytes; exceeding
// either returns bodyforms.ErrTooManyParts / bodyforms.ErrFileTooLarge,
// which the caller maps to 400 the same way a BadRequest parse result is.
func ParseMultipartBody(ctx *executor.Context, limits MultipartLimits) (fields map[string][]string, files []MultipartFile, err error) {
	contentType, _ := ctx.Request.Headers.TryGet("Content-Type")
	return bodyforms.ParseMultipart(ctx.Request.Body, contentType, limits)
}

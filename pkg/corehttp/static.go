package corehttp

import (
	"fmt"
	"net/http"
	"os"

	"github.com/corehttp/corehttp/internal/adapter/metrics"
	"github.com/corehttp/corehttp/internal/domain/executor"
	"github.com/corehttp/corehttp/internal/domain/httpmsg"
	"github.com/corehttp/corehttp/internal/domain/staticfiles"
)

// StaticHandler adapts a staticfiles.Module into an executor.Delegate,
// implementing the per-request algorithm of §4.11 end to end: conditional
// requests (ETag/Last-Modified), directory default-document/auto-index
// rendering, and streaming large files straight from disk. A handler
// mutates ctx.Response in place and returns nil; the Session writes
// whatever is left on the response once dispatch returns, so there is no
// need to hand the pointer back explicitly. m may be nil to skip
// cache-size gauge updates.
func StaticHandler(mod *staticfiles.Module, m *metrics.Metrics) executor.Delegate {
	return func(ctx *executor.Context) (interface{}, error) {
		req, resp := ctx.Request, ctx.Response
		ifNoneMatch, _ := req.Headers.TryGet("If-None-Match")
		ifModifiedSince, _ := req.Headers.TryGet("If-Modified-Since")

		result, err := mod.Resolve(req.Path, ifNoneMatch, ifModifiedSince)
		if err != nil {
			return nil, fmt.Errorf("corehttp: resolve static file: %w", err)
		}

		if m != nil {
			entries, bytes := mod.CacheStats()
			m.StaticCacheEntries.Set(float64(entries))
			m.StaticCacheBytes.Set(float64(bytes))
		}

		switch {
		case result.NotModified:
			return nil, resp.Status(304)

		case result.IsAutoIndex:
			if err := resp.Status(200); err != nil {
				return nil, err
			}
			return nil, resp.Body([]byte(result.AutoIndexDoc), "text/html; charset=utf-8")

		case result.Entry != nil:
			return nil, serveCachedEntry(resp, result.Entry)

		case result.FilePath != "":
			return nil, serveStreamedFile(resp, result.FilePath)

		default:
			return nil, resp.Status(404)
		}
	}
}

func serveCachedEntry(resp *httpmsg.Response, e *staticfiles.Entry) error {
	if err := resp.Status(200); err != nil {
		return err
	}
	if err := resp.AddHeader("ETag", e.ETag); err != nil {
		return err
	}
	if err := resp.AddHeader("Last-Modified", e.LastModifiedUTC.Format(http.TimeFormat)); err != nil {
		return err
	}
	return resp.Body(e.Data, e.ContentType)
}

func serveStreamedFile(resp *httpmsg.Response, fsPath string) error {
	info, err := os.Stat(fsPath)
	if err != nil {
		return resp.Status(404)
	}

	f, err := os.Open(fsPath)
	if err != nil {
		return resp.Status(404)
	}
	contentType, detectErr := staticfiles.DetectContentType(fsPath, f)
	f.Close()
	if detectErr != nil {
		return detectErr
	}

	if err := resp.Status(200); err != nil {
		return err
	}
	if err := resp.AddHeader("ETag", staticfiles.WeakETag(info.Size(), info.ModTime().UTC())); err != nil {
		return err
	}
	if err := resp.AddHeader("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat)); err != nil {
		return err
	}
	return resp.File(fsPath, info.Size(), contentType)
}

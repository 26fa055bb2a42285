package staticfiles

import (
	"fmt"
	"time"
)

// WeakETag computes the `W/"<length>-<last-write-ticks>"` validator used by
// §4.11. Ticks are .NET-style 100ns intervals since 0001-01-01, matching the
// donor domain's convention for this value so that round-tripped ETags from
// an existing deployment remain stable in format.
func WeakETag(length int64, lastModifiedUTC time.Time) string {
	return fmt.Sprintf(`W/"%d-%d"`, length, ticksOf(lastModifiedUTC))
}

const ticksPerSecond = 10_000_000
const ticksToUnixEpoch = 621_355_968_000_000_000

func ticksOf(t time.Time) int64 {
	return t.Unix()*ticksPerSecond + int64(t.Nanosecond()/100) + ticksToUnixEpoch
}

// IfNoneMatchSatisfied reports whether the If-None-Match header value
// matches the current ETag, per RFC 7232 weak comparison (the "W/" prefix
// is ignored when comparing).
func IfNoneMatchSatisfied(ifNoneMatch, currentETag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	return stripWeakPrefix(ifNoneMatch) == stripWeakPrefix(currentETag)
}

func stripWeakPrefix(etag string) string {
	if len(etag) >= 2 && etag[0:2] == "W/" {
		return etag[2:]
	}
	return etag
}

// IfModifiedSinceSatisfied reports whether the resource is unmodified since
// the If-Modified-Since header value, at second precision per §4.11.
func IfModifiedSinceSatisfied(ifModifiedSince string, lastModifiedUTC time.Time) bool {
	if ifModifiedSince == "" {
		return false
	}
	t, err := time.Parse(http1Date, ifModifiedSince)
	if err != nil {
		return false
	}
	return !lastModifiedUTC.Truncate(time.Second).After(t)
}

const http1Date = "Mon, 02 Jan 2006 15:04:05 GMT"

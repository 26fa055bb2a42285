package staticfiles

import (
	"html"
	"os"
	"sort"
	"strings"
)

// RenderAutoIndex builds a minimal HTML directory listing for dirPath,
// relative to urlPath (the request's URL path, used for link hrefs).
func RenderAutoIndex(dirPath, urlPath string, entries []os.DirEntry) string {
	sorted := make([]os.DirEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].IsDir() != sorted[j].IsDir() {
			return sorted[i].IsDir()
		}
		return sorted[i].Name() < sorted[j].Name()
	})

	base := urlPath
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Index of ")
	b.WriteString(html.EscapeString(urlPath))
	b.WriteString("</title></head><body>\n<h1>Index of ")
	b.WriteString(html.EscapeString(urlPath))
	b.WriteString("</h1>\n<ul>\n")
	if urlPath != "/" {
		b.WriteString(`<li><a href="../">../</a></li>` + "\n")
	}
	for _, e := range sorted {
		name := e.Name()
		href := html.EscapeString(base + name)
		label := html.EscapeString(name)
		if e.IsDir() {
			href += "/"
			label += "/"
		}
		b.WriteString("<li><a href=\"" + href + "\">" + label + "</a></li>\n")
	}
	b.WriteString("</ul>\n</body></html>\n")
	return b.String()
}

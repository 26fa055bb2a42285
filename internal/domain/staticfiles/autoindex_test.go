package staticfiles

import (
	"os"
	"strings"
	"testing"
)

func TestRenderAutoIndex_ListsEntriesAndParentLink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(dir+"/b.txt", []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(dir+"/a-dir", 0o755); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	html := RenderAutoIndex(dir, "/sub/", entries)

	if !strings.Contains(html, `href="../"`) {
		t.Error("RenderAutoIndex() missing parent directory link")
	}
	if !strings.Contains(html, "a-dir/") {
		t.Error("RenderAutoIndex() missing directory entry")
	}
	if !strings.Contains(html, "b.txt") {
		t.Error("RenderAutoIndex() missing file entry")
	}
}

func TestRenderAutoIndex_RootHasNoParentLink(t *testing.T) {
	t.Parallel()

	html := RenderAutoIndex(t.TempDir(), "/", nil)
	if strings.Contains(html, `href="../"`) {
		t.Error("RenderAutoIndex() included a parent link at the root")
	}
}

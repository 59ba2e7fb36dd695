package funnel

import (
	"os"
	"path/filepath"

	"github.com/Tombirdi473/telegrambot/internal/chat"
)

// Assets resolves the optional signal images shipped next to the binary.
// A missing file is not an error; the caller renders text-only instead.
type Assets struct {
	dir string
}

// NewAssets creates a resolver rooted at dir. An empty dir means the
// current working directory.
func NewAssets(dir string) *Assets {
	if dir == "" {
		dir = "."
	}
	return &Assets{dir: dir}
}

// Resolve looks up a named image on disk.
func (a *Assets) Resolve(name string) (chat.Image, bool) {
	path := filepath.Join(a.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return chat.Image{}, false
	}
	return chat.Image{Path: path}, true
}

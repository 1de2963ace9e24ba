package web

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var EmbeddedStaticFS embed.FS

const mainPageFile = "static/main.html"

var mainPage = mustReadEmbedded(mainPageFile)

// RenderMainPage returns the tree view page.
// The output is identical on every call and each caller gets its own copy.
func RenderMainPage() []byte {
	out := make([]byte, len(mainPage))
	copy(out, mainPage)
	return out
}

// ListEmbeddedFiles returns a list of all embedded static files for debugging
func ListEmbeddedFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(EmbeddedStaticFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func mustReadEmbedded(name string) []byte {
	content, err := fs.ReadFile(EmbeddedStaticFS, name)
	if err != nil {
		panic("Failed to read embedded file " + name + ": " + err.Error())
	}
	return content
}

package server

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

//go:embed static/*
var staticFiles embed.FS

type staticAsset struct {
	data        []byte
	contentType string
	etag        string
}

// staticAssets is the embedded static directory, read once with a content
// hash per file for conditional requests.
type staticAssets struct {
	byName map[string]staticAsset
}

func loadStaticAssets() (*staticAssets, error) {
	fsys, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	assets := &staticAssets{byName: make(map[string]staticAsset)}
	err = fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		sum := sha256.Sum256(data)
		assets.byName[name] = staticAsset{
			data:        data,
			contentType: assetContentType(name, data),
			etag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func assetContentType(name string, data []byte) string {
	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
		ctype += "; charset=utf-8"
	}
	return ctype
}

// serve writes the named asset, or 304 when the client already has it. It
// reports false when there is no such asset.
func (a *staticAssets) serve(w http.ResponseWriter, r *http.Request, name string) bool {
	asset, ok := a.byName[name]
	if !ok {
		return false
	}
	w.Header().Set("ETag", asset.etag)
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, asset.etag) {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	w.Header().Set("Content-Type", asset.contentType)
	_, _ = w.Write(asset.data)
	return true
}

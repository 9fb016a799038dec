package cf

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/cf-pulse/internal/platform"
)

// ResolveArtifact expands a glob such as target/*.jar to exactly one file
// or directory. Plain paths are returned unchanged if they exist.
func ResolveArtifact(path string) (string, error) {
	if !strings.ContainsAny(path, "*?[{") {
		if _, err := os.Stat(path); err != nil {
			return "", platform.Errorf(platform.KindInvalid, "artifact %s does not exist", path)
		}
		return path, nil
	}

	matches, err := doublestar.FilepathGlob(path)
	if err != nil {
		return "", platform.Errorf(platform.KindInvalid, "bad artifact pattern %s: %v", path, err)
	}
	switch len(matches) {
	case 0:
		return "", platform.Errorf(platform.KindInvalid, "no artifact matches %s", path)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", platform.Errorf(platform.KindInvalid, "%s matches %d artifacts: %s", path, len(matches), strings.Join(matches, ", "))
	}
}

// Bits returns the zip archive uploaded as an application package. Jar, war
// and zip files already are archives and are sent as they are; a directory
// is zipped with paths relative to it; any other file is zipped alone.
func Bits(path string) ([]byte, error) {
	resolved, err := ResolveArtifact(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, platform.Errorf(platform.KindInvalid, "artifact %s: %v", resolved, err)
	}

	if !info.IsDir() {
		switch strings.ToLower(filepath.Ext(resolved)) {
		case ".jar", ".war", ".zip":
			data, err := os.ReadFile(resolved)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", resolved, err)
			}
			return data, nil
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if info.IsDir() {
		err = addDir(zw, resolved)
	} else {
		err = addFile(zw, resolved, filepath.Base(resolved), info)
	}
	if err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zipping %s: %w", resolved, err)
	}
	return buf.Bytes(), nil
}

func addDir(zw *zip.Writer, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return addFile(zw, p, filepath.ToSlash(rel), info)
	})
}

func addFile(zw *zip.Writer, path, name string, info fs.FileInfo) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

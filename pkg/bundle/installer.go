package bundle

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var downloadClient = &http.Client{Timeout: 60 * time.Second}

// Install copies a bundle from a directory, .zip, .tar.gz/.tgz archive or
// http(s) URL into destDir and returns the installed path. The result must
// contain both app.yaml and metadata.json.
func Install(ctx context.Context, source, destDir string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("source is required")
	}
	if destDir == "" {
		return "", fmt.Errorf("apps directory is required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	localPath, name, cleanup, err := resolveSource(ctx, source)
	if err != nil {
		return "", err
	}
	if cleanup != nil {
		defer cleanup()
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return "", err
	}

	var target string
	switch {
	case info.IsDir():
		target = filepath.Join(destDir, filepath.Base(localPath))
		err = copyDir(localPath, target)
	case strings.HasSuffix(strings.ToLower(name), ".zip"):
		target = filepath.Join(destDir, trimExt(name))
		err = unzip(localPath, target)
	case strings.HasSuffix(strings.ToLower(name), ".tar.gz"):
		target = filepath.Join(destDir, trimExt(trimExt(name)))
		err = untarGz(localPath, target)
	case strings.HasSuffix(strings.ToLower(name), ".tgz"):
		target = filepath.Join(destDir, trimExt(name))
		err = untarGz(localPath, target)
	default:
		return "", fmt.Errorf("unsupported bundle source %q: expected a directory, .zip or .tar.gz", source)
	}
	if err != nil {
		return "", err
	}

	for _, required := range []string{ManifestName, MetadataName} {
		if _, err := os.Stat(filepath.Join(target, required)); err != nil {
			_ = os.RemoveAll(target)
			return "", fmt.Errorf("invalid bundle %s: missing %s", source, required)
		}
	}
	return target, nil
}

func resolveSource(ctx context.Context, source string) (path, name string, cleanup func(), err error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		path, cleanup, err = download(ctx, source)
		name = filepath.Base(strings.SplitN(source, "?", 2)[0])
		return path, name, cleanup, err
	}
	return source, filepath.Base(source), nil, nil
}

func download(ctx context.Context, url string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := downloadClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, fmt.Errorf("download failed: %s", resp.Status)
	}

	tmpFile, err := os.CreateTemp("", "appkit-bundle-*")
	if err != nil {
		return "", nil, err
	}
	defer tmpFile.Close()

	cleanup := func() { _ = os.Remove(tmpFile.Name()) }
	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmpFile.Name(), cleanup, nil
}

// safeJoin rejects archive entries that would escape dst.
func safeJoin(dst, name string) (string, error) {
	target := filepath.Join(dst, name)
	if target != filepath.Clean(dst) && !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	return writeFile(dst, in, mode)
}

func writeFile(dst string, r io.Reader, mode os.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func unzip(src, dst string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer reader.Close()

	for _, file := range reader.File {
		target, err := safeJoin(dst, file.Name)
		if err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		in, err := file.Open()
		if err != nil {
			return err
		}
		err = writeFile(target, in, file.Mode().Perm())
		in.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func untarGz(src, dst string) error {
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		target, err := safeJoin(dst, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := writeFile(target, tr, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}
		}
	}
	return nil
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

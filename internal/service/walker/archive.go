package walker

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode/v2"
	"github.com/ulikunitz/xz/lzma"
)

type archiveFormat int

const (
	formatUnknown archiveFormat = iota
	formatZip
	formatTar
	formatTarGzip
	formatTarBzip2
	formatGzip
	formatBzip2
	formatSevenZip
	formatRar
	formatLzma
)

var (
	ErrUnknownArchive  = errors.New("unknown archive format")
	ErrArchiveTooLarge = errors.New("archive exceeds the extraction size limit")
)

var mimetypeFormats = map[string]archiveFormat{
	"application/zip":              formatZip,
	"application/x-tar":            formatTar,
	"application/gzip":             formatGzip,
	"application/x-bzip2":          formatBzip2,
	"application/x-7z-compressed":  formatSevenZip,
	"application/x-rar-compressed": formatRar,
	"application/x-lzma":           formatLzma,
}

// detectFormat picks the decoder from the file extension, falling back to the
// media type when the name carries no known extension.
func detectFormat(filename, mimetype string) archiveFormat {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return formatTarGzip
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"), strings.HasSuffix(name, ".tbz"):
		return formatTarBzip2
	case strings.HasSuffix(name, ".zip"):
		return formatZip
	case strings.HasSuffix(name, ".tar"):
		return formatTar
	case strings.HasSuffix(name, ".gz"):
		return formatGzip
	case strings.HasSuffix(name, ".bz2"):
		return formatBzip2
	case strings.HasSuffix(name, ".7z"):
		return formatSevenZip
	case strings.HasSuffix(name, ".rar"):
		return formatRar
	case strings.HasSuffix(name, ".lzma"):
		return formatLzma
	}
	if f, ok := mimetypeFormats[mimetype]; ok {
		return f
	}
	return formatUnknown
}

// extractor unpacks one archive into dest. limit caps the total number of
// bytes written across all entries; zero or less disables the cap.
type extractor struct {
	dest    string
	limit   int64
	written int64
}

// extract unpacks content into dest, which must already exist.
func extract(content []byte, filename, mimetype, dest string, limit int64) error {
	x := &extractor{dest: dest, limit: limit}

	switch detectFormat(filename, mimetype) {
	case formatZip:
		return x.extractZip(content)
	case formatTar:
		return x.extractTar(bytes.NewReader(content))
	case formatTarGzip:
		zr, err := gzip.NewReader(bytes.NewReader(content))
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		return x.extractTar(zr)
	case formatTarBzip2:
		return x.extractTar(bzip2.NewReader(bytes.NewReader(content)))
	case formatGzip:
		zr, err := gzip.NewReader(bytes.NewReader(content))
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		name := zr.Name
		if name == "" {
			name = trimExt(filename)
		}
		return x.writeEntry(name, zr)
	case formatBzip2:
		return x.writeEntry(trimExt(filename), bzip2.NewReader(bytes.NewReader(content)))
	case formatLzma:
		lr, err := lzma.NewReader(bytes.NewReader(content))
		if err != nil {
			return fmt.Errorf("failed to open lzma stream: %w", err)
		}
		return x.writeEntry(trimExt(filename), lr)
	case formatSevenZip:
		return x.extractSevenZip(content)
	case formatRar:
		return x.extractRar(content)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownArchive, filename)
	}
}

func (x *extractor) extractZip(content []byte) error {
	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			if err := makeDir(x.dest, f.Name); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open zip entry %s: %w", f.Name, err)
		}
		err = x.writeEntry(f.Name, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) extractTar(r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := makeDir(x.dest, hdr.Name); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := x.writeEntry(hdr.Name, tr); err != nil {
				return err
			}
		}
	}
}

func (x *extractor) extractSevenZip(content []byte) error {
	r, err := sevenzip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Errorf("failed to open 7z: %w", err)
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			if err := makeDir(x.dest, f.Name); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open 7z entry %s: %w", f.Name, err)
		}
		err = x.writeEntry(f.Name, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) extractRar(content []byte) error {
	rr, err := rardecode.NewReader(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to open rar: %w", err)
	}
	for {
		hdr, err := rr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read rar entry: %w", err)
		}
		if hdr.IsDir {
			if err := makeDir(x.dest, hdr.Name); err != nil {
				return err
			}
			continue
		}
		if err := x.writeEntry(hdr.Name, rr); err != nil {
			return err
		}
	}
}

func (x *extractor) writeEntry(name string, r io.Reader) error {
	target, err := safePath(x.dest, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	if x.limit <= 0 {
		if _, err := io.Copy(f, r); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		return nil
	}

	remaining := x.limit - x.written
	n, err := io.Copy(f, io.LimitReader(r, remaining+1))
	x.written += n
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if n > remaining {
		return fmt.Errorf("%w: %s", ErrArchiveTooLarge, name)
	}
	return nil
}

// safePath resolves name under dest and refuses entries escaping it.
func safePath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal archive entry path: %s", name)
	}
	return target, nil
}

func makeDir(dest, name string) error {
	target, err := safePath(dest, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", name, err)
	}
	return nil
}

func trimExt(filename string) string {
	base := filepath.Base(filename)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base + ".out"
}

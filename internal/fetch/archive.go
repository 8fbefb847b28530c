package fetch

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// writeArchive packages the given files into a single zip at dst,
// storing each entry under its base name. A partially written archive
// is removed on failure.
func writeArchive(dst string, files []string) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	defer func() {
		if cerr := zw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close archive: %w", cerr)
		}
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close archive file: %w", cerr)
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	for _, file := range files {
		if aerr := addArchiveEntry(zw, file); aerr != nil {
			err = aerr
			return err
		}
	}
	return nil
}

func addArchiveEntry(zw *zip.Writer, file string) error {
	src, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer src.Close()

	entry, err := zw.Create(filepath.Base(file))
	if err != nil {
		return fmt.Errorf("add archive entry %s: %w", file, err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("write archive entry %s: %w", file, err)
	}
	return nil
}

// sanitizeTitle turns a resolved collection title into a safe file name
// component. Anything outside a conservative character set becomes an
// underscore.
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.TrimSpace(b.String())
}

// Package extract unpacks release tarballs (.tar.gz and .tar.xz) into the
// compatibility tools directory.
package extract

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/errors"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/logging"
	"github.com/ulikunitz/xz"
)

// Extract unpacks archive into destDir. The archive's own top-level
// directory is preserved, so a GE-Proton10-20.tar.gz yields
// destDir/GE-Proton10-20/. File modes and in-archive symlinks survive;
// entries escaping destDir are rejected.
func Extract(archive, destDir string) error {
	log := logging.GetLogger("extract")

	f, err := os.Open(archive)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to open archive %s", archive)
	}
	defer f.Close()

	var decompressed io.Reader
	switch {
	case strings.HasSuffix(archive, ".tar.gz"), strings.HasSuffix(archive, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, errors.ErrExtract, "failed to read gzip stream of %s", archive)
		}
		defer gz.Close()
		decompressed = gz
	case strings.HasSuffix(archive, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, errors.ErrExtract, "failed to read xz stream of %s", archive)
		}
		decompressed = xzr
	default:
		return errors.Newf(errors.ErrExtract, "unsupported archive format: %s", filepath.Base(archive))
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", destDir)
	}

	tr := tar.NewReader(decompressed)
	var files int
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, errors.ErrExtract, "failed to read archive %s", archive)
		}
		if err := writeEntry(tr, hdr, destDir); err != nil {
			return err
		}
		files++
	}

	log.Info().Str("archive", filepath.Base(archive)).Int("files", files).Msg("Extracted archive")
	return nil
}

func writeEntry(tr *tar.Reader, hdr *tar.Header, destDir string) error {
	target, err := securePath(destDir, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, os.FileMode(hdr.Mode).Perm()); err != nil {
			return errors.Wrapf(err, errors.ErrExtract, "failed to create directory %s", hdr.Name)
		}

	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrExtract, "failed to create parent of %s", hdr.Name)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode).Perm())
		if err != nil {
			return errors.Wrapf(err, errors.ErrExtract, "failed to create %s", hdr.Name)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return errors.Wrapf(err, errors.ErrExtract, "failed to write %s", hdr.Name)
		}
		if err := out.Close(); err != nil {
			return errors.Wrapf(err, errors.ErrExtract, "failed to close %s", hdr.Name)
		}

	case tar.TypeSymlink:
		// links stay relative within the archive; absolute targets are
		// rejected like escaping paths
		if filepath.IsAbs(hdr.Linkname) {
			return errors.Newf(errors.ErrExtract, "archive entry %s links outside the archive", hdr.Name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrExtract, "failed to create parent of %s", hdr.Name)
		}
		os.Remove(target)
		if err := os.Symlink(hdr.Linkname, target); err != nil {
			return errors.Wrapf(err, errors.ErrExtract, "failed to link %s", hdr.Name)
		}

	case tar.TypeLink:
		src, err := securePath(destDir, hdr.Linkname)
		if err != nil {
			return err
		}
		if err := os.Link(src, target); err != nil {
			return errors.Wrapf(err, errors.ErrExtract, "failed to hard-link %s", hdr.Name)
		}

	default:
		// device nodes and the like never appear in Proton tarballs
	}
	return nil
}

// securePath joins name under destDir and guards against path traversal.
func securePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", errors.Newf(errors.ErrExtract, "archive entry %s escapes the target directory", name)
	}
	return target, nil
}

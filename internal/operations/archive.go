package operations

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/youcefh/backsnap/internal/snapshot"
)

// ArchiveSnapshot packs the snapshot directory at srcDir into
// <archiveDir>/<date>.tar.zst and returns the archive path. The source
// directory is left in place; the caller deletes it only once archiving
// succeeded. A partial archive is removed on failure.
func ArchiveSnapshot(srcDir, archiveDir string, date snapshot.Date) (string, error) {
	if err := EnsureDirectoryExist(archiveDir); err != nil {
		return "", err
	}
	outputPath := filepath.Join(archiveDir, date.String()+".tar.zst")

	outFile, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	if err := tarZstd(srcDir, outFile); err != nil {
		outFile.Close()
		os.Remove(outputPath)
		return "", err
	}
	if err := outFile.Close(); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("close archive file: %w", err)
	}
	return outputPath, nil
}

// tarZstd streams srcDir as a zstd-compressed tarball into w. Entry names
// are relative to srcDir.
func tarZstd(srcDir string, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if walkErr != nil {
		tw.Close()
		zw.Close()
		return fmt.Errorf("archive %q: %w", srcDir, walkErr)
	}

	if err := tw.Close(); err != nil {
		zw.Close()
		return fmt.Errorf("close tar writer: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zstd writer: %w", err)
	}
	return nil
}

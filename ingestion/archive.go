// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ingestion

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/sync/parallel"

	"testreliability/results"
)

// parseWorkers bounds concurrent per-file parses within one archive.
const parseWorkers = 8

// IsArchive reports whether the content looks like a compressed bundle
// rather than a bare report file.
func IsArchive(raw []byte) bool {
	return isZip(raw) || isGzip(raw)
}

func isZip(raw []byte) bool {
	return len(raw) >= 4 && bytes.Equal(raw[:4], []byte("PK\x03\x04"))
}

func isGzip(raw []byte) bool {
	return len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b
}

// ParseArchive extracts a compressed CI artifact bundle (zip or tar.gz)
// into an ephemeral working directory, parses every file matching
// test-report name heuristics, and concatenates the results.
//
// The working directory is uniquely named per invocation, so concurrent
// analyses never collide, and is always removed before returning,
// including on failure. Per-file parse failures are logged and skipped;
// the call fails with an UnsupportedFormatTag error only when no file
// yields any record, and with an untagged error when the archive itself
// cannot be opened.
func ParseArchive(ctx context.Context, hint string, raw []byte) (*results.ParsedArtifact, error) {
	dir, err := ioutil.TempDir("", "test-artifact-"+uuid.New().String())
	if err != nil {
		return nil, errors.Annotate(err, "failed to create extraction dir").Err()
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logging.Warningf(ctx, "failed to remove extraction dir %q: %s", dir, rmErr)
		}
	}()

	switch {
	case isZip(raw):
		err = extractZip(raw, dir)
	case isGzip(raw):
		err = extractTarGz(raw, dir)
	default:
		return nil, errors.Reason("content is not a recognized archive").Err()
	}
	if err != nil {
		return nil, errors.Annotate(err, "failed to extract archive").Err()
	}

	files, err := findReportFiles(dir)
	if err != nil {
		return nil, errors.Annotate(err, "failed to scan extraction dir").Err()
	}

	// Parse independent files concurrently; keep outputs indexed by file
	// so the merged result is deterministic for identical input bytes.
	parsed := make([]*results.ParsedArtifact, len(files))
	_ = parallel.WorkPool(parseWorkers, func(work chan<- func() error) {
		for i, f := range files {
			i, f := i, f
			work <- func() error {
				content, err := ioutil.ReadFile(f)
				if err != nil {
					logging.Warningf(ctx, "skipping unreadable report file %q: %s", f, err)
					return nil
				}
				art, err := Parse(ctx, hint, content)
				if err != nil {
					logging.Warningf(ctx, "skipping unparseable report file %q: %s", f, err)
					return nil
				}
				parsed[i] = art
				return nil
			}
		}
	})

	merged := &results.ParsedArtifact{Format: results.FormatUnknown}
	for _, art := range parsed {
		if art == nil {
			continue
		}
		if merged.Format == results.FormatUnknown {
			merged.Format = art.Format
		}
		merged.Tests = append(merged.Tests, art.Tests...)
		if merged.Coverage == nil {
			merged.Coverage = art.Coverage
		}
	}
	if len(merged.Tests) == 0 {
		return nil, errors.Reason("no test report recognized in archive (%d candidate files)", len(files)).
			Tag(UnsupportedFormatTag).Err()
	}
	merged.Tally()
	return merged, nil
}

// findReportFiles locates files under dir whose names look like test
// reports, in lexical order.
func findReportFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if isReportFile(filepath.Base(path)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// isReportFile applies the report name/extension heuristics: any XML or
// TAP file, and JSON files whose names mention tests.
func isReportFile(name string) bool {
	lower := strings.ToLower(name)
	switch filepath.Ext(lower) {
	case ".xml", ".tap":
		return true
	case ".json":
		return strings.Contains(lower, "test") || strings.Contains(lower, "result")
	}
	return false
}

func extractZip(raw []byte, destDir string) error {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return errors.Annotate(err, "failed to read the zip directory").Err()
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return errors.Annotate(err, "when opening %q", f.Name).Err()
		}
		err = writeEntry(destDir, f.Name, rc)
		rc.Close()
		if err != nil {
			return errors.Annotate(err, "when extracting %q", f.Name).Err()
		}
	}
	return nil
}

func extractTarGz(raw []byte, destDir string) error {
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return errors.Annotate(err, "failed to read the gzip header").Err()
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Annotate(err, "error when reading the tar file").Err()
		}
		switch header.Typeflag {
		case tar.TypeDir:
			// Directories are created on demand by writeEntry.
		case tar.TypeReg:
			if err := writeEntry(destDir, header.Name, tr); err != nil {
				return errors.Annotate(err, "when extracting %q", header.Name).Err()
			}
		default:
			// Symlinks and specials have no business in a test report
			// bundle; skip them.
		}
	}
	return nil
}

// writeEntry writes one archive entry under destDir, refusing names
// that escape it.
func writeEntry(destDir, name string, r io.Reader) error {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return errors.Reason("fishy entry name %q", name).Err()
	}

	path := filepath.Join(destDir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	dest, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close() // fallback on errors
	if _, err := io.Copy(dest, r); err != nil {
		return err
	}
	return dest.Close()
}

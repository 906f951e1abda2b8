// Package archive packages rendered certificates into a zip and hands it to a
// Saver.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/youruser/certapp/internal/batch"
	"github.com/youruser/certapp/internal/names"
)

const (
	ArchiveName  = "certificates.zip"
	ManifestName = "manifest.json"
)

// Entries carry a fixed timestamp so equal input gives byte-identical archives.
var entryTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ArchiveError reports that certificates were rendered but could not be
// packaged or saved.
type ArchiveError struct {
	Op  string
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Op, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// Manifest is written into the archive when some names failed to render.
type Manifest struct {
	Files  []ManifestFile    `json:"files"`
	Failed []ManifestFailure `json:"failed"`
}

type ManifestFile struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
}

type ManifestFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// UniqueFilenames returns filenames with later duplicates disambiguated in
// order of occurrence: "A_certificate.png", "A_2_certificate.png", ...
func UniqueFilenames(filenames []string) []string {
	out := make([]string, len(filenames))
	taken := make(map[string]bool, len(filenames))
	next := make(map[string]int)
	for i, fn := range filenames {
		if !taken[fn] {
			taken[fn] = true
			out[i] = fn
			continue
		}
		n := next[fn]
		if n == 0 {
			n = 1
		}
		candidate := fn
		for taken[candidate] {
			n++
			candidate = numbered(fn, n)
		}
		next[fn] = n
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

func numbered(filename string, n int) string {
	suffix := names.FileSuffix
	if !strings.HasSuffix(filename, suffix) {
		suffix = path.Ext(filename)
	}
	return strings.TrimSuffix(filename, suffix) + "_" + strconv.Itoa(n) + suffix
}

// Build zips results in order. When failures is non-empty a manifest listing
// produced files and failed names is appended.
func Build(results []batch.Result, failures []*batch.RenderError) ([]byte, error) {
	filenames := make([]string, len(results))
	for i, r := range results {
		filenames[i] = r.Filename
	}
	filenames = UniqueFilenames(filenames)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, r := range results {
		if err := addFile(zw, filenames[i], r.Data); err != nil {
			return nil, err
		}
	}

	if len(failures) > 0 {
		m := Manifest{
			Files:  make([]ManifestFile, len(results)),
			Failed: make([]ManifestFailure, len(failures)),
		}
		for i, r := range results {
			m.Files[i] = ManifestFile{Name: r.Name, Filename: filenames[i]}
		}
		for i, f := range failures {
			m.Failed[i] = ManifestFailure{Name: f.Name, Error: f.Err.Error()}
		}
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode manifest: %w", err)
		}
		if err := addFile(zw, ManifestName, data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: entryTime,
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Export builds the archive for report and saves it as ArchiveName.
func Export(ctx context.Context, report *batch.Report, saver Saver) error {
	data, err := Build(report.Results, report.Failures)
	if err != nil {
		return &ArchiveError{Op: "build", Err: err}
	}
	if err := saver.Save(ctx, ArchiveName, data); err != nil {
		return &ArchiveError{Op: "save", Err: err}
	}
	return nil
}

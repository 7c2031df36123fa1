package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/rpattn/placement-timeline/internal/domain"
)

// JSONOptions controls how the merged dataset is serialised.
type JSONOptions struct {
	// Indent is the number of spaces per level. Zero writes compact JSON.
	Indent int
	// EscapeASCII writes every non-ASCII character as a \uXXXX escape.
	EscapeASCII bool
}

// DefaultJSONOptions matches the fresh merge output: four-space indent, UTF-8 kept as is.
func DefaultJSONOptions() JSONOptions {
	return JSONOptions{Indent: 4}
}

// EncodeCompanies serialises the profile list. HTML characters are never escaped and no
// trailing newline is written.
func EncodeCompanies(companies []domain.Company, opts JSONOptions) ([]byte, error) {
	if companies == nil {
		companies = []domain.Company{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if opts.Indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", opts.Indent))
	}
	if err := enc.Encode(companies); err != nil {
		return nil, fmt.Errorf("failed to encode companies: %w", err)
	}

	out := bytes.TrimRight(buf.Bytes(), "\n")
	if opts.EscapeASCII {
		out = escapeNonASCII(out)
	}
	return out, nil
}

// WriteCompanies encodes companies to w.
func WriteCompanies(w io.Writer, companies []domain.Company, opts JSONOptions) error {
	payload, err := EncodeCompanies(companies, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write companies: %w", err)
	}
	return nil
}

// WriteCompaniesFile replaces path with the encoded dataset. The file is written to a
// temporary sibling first, so a failed run leaves any previous output untouched.
func WriteCompaniesFile(path string, companies []domain.Company, opts JSONOptions) error {
	payload, err := EncodeCompanies(companies, opts)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, payload)
}

func writeFileAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// escapeNonASCII rewrites runes above 0x7F as \uXXXX, using surrogate pairs above the BMP.
// JSON output only carries such runes inside strings, so no string tracking is needed.
func escapeNonASCII(in []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(in))
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		in = in[size:]
		if r < utf8.RuneSelf {
			out.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&out, `\u%04x\u%04x`, hi, lo)
			continue
		}
		fmt.Fprintf(&out, `\u%04x`, r)
	}
	return out.Bytes()
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

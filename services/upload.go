package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"cyber_case_app_go/config"
)

// UploadPolicy bounds what may be ingested
type UploadPolicy struct {
	AllowedExtensions []string // lowercase, with leading dot
	MaxBytes          int64
}

// UploadPolicyFromConfig builds the policy from ALLOWED_EXTENSIONS and MAX_FILE_SIZE_MB
func UploadPolicyFromConfig(cfg *config.Config) UploadPolicy {
	return UploadPolicy{AllowedExtensions: cfg.AllowedExtensions, MaxBytes: cfg.MaxUploadBytes()}
}

// ValidateName checks the extension of an original filename against the allow-list
func (p UploadPolicy) ValidateName(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return fmt.Errorf("%w: missing file extension", ErrFileTypeNotAllowed)
	}
	for _, allowed := range p.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (allowed: %s)", ErrFileTypeNotAllowed, ext, strings.Join(p.AllowedExtensions, ", "))
}

// ValidateDeclaredSize rejects a declared size above the ceiling before reading
func (p UploadPolicy) ValidateDeclaredSize(size int64) error {
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return fmt.Errorf("%w: maximum is %d MB", ErrFileTooLarge, p.MaxBytes/(1024*1024))
	}
	return nil
}

// ReadAll reads at most MaxBytes from r. Anything longer fails with
// ErrFileTooLarge without returning partial content.
func (p UploadPolicy) ReadAll(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	reader := r
	if p.MaxBytes > 0 {
		reader = io.LimitReader(r, p.MaxBytes+1)
	}
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if p.MaxBytes > 0 && int64(buf.Len()) > p.MaxBytes {
		return nil, fmt.Errorf("%w: maximum is %d MB", ErrFileTooLarge, p.MaxBytes/(1024*1024))
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyFile
	}
	return buf.Bytes(), nil
}

// HashContent returns the hex SHA-256 digest of data
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EvidenceStorageKey derives the storage name {sha256hex}_{sanitized name}
func EvidenceStorageKey(hash, originalName string) string {
	return fmt.Sprintf("%s_%s", hash, SanitizeFilename(originalName))
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s.-]`)
	reservedNames       = map[string]bool{
		"CON": true, "PRN": true, "AUX": true, "NUL": true,
		"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
		"COM6": true, "COM7": true, "COM8": true, "COM9": true,
		"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
		"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	}
)

const maxFilenameLength = 255

// SanitizeFilename strips directories and unsafe characters so the name can
// be used as part of a storage key. Letters and digits of any script are
// kept, and the extension survives even when the stem does not.
func SanitizeFilename(filename string) string {
	// Normalise separators so Windows-style paths lose their directories too
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	ext := unsafeFilenameChars.ReplaceAllString(filepath.Ext(filename), "")

	filename = unsafeFilenameChars.ReplaceAllString(filename, "")
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.Trim(filename, ". ")

	if len(ext) > 1 && !strings.HasSuffix(filename, ext) {
		stem := strings.Trim(strings.TrimSuffix(filename, ext[1:]), ". ")
		if stem == "" {
			stem = "unnamed_file"
		}
		filename = stem + ext
	}

	if len(filename) > maxFilenameLength {
		ext := filepath.Ext(filename)
		stem := filename[:maxFilenameLength-len(ext)]
		for !utf8.ValidString(stem) {
			stem = stem[:len(stem)-1]
		}
		filename = stem + ext
	}

	if filename == "" {
		return "unnamed_file"
	}

	name := strings.ToUpper(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if reservedNames[name] {
		filename = "file_" + filename
	}

	return filename
}

package services

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"cyber_case_app_go/models"

	"github.com/hashicorp/go-set/v2"
)

// Extraction outcomes
const (
	ExtractionOK          = "ok"
	ExtractionUnsupported = "unsupported"
)

var looseMobilePattern = regexp.MustCompile(`^\+?\(?[0-9]{3}\)?[-\s.]?[0-9]{3}[-\s.]?[0-9]{4,6}$`)

// ExtractedIdentifiers are the searchable values found in a file
type ExtractedIdentifiers struct {
	MobileNumbers  []string `json:"mobile_numbers"`
	UPIIDs         []string `json:"upi_ids"`
	AccountNumbers []string `json:"account_numbers"`
}

// FileSearchSummary counts identifiers and matches
type FileSearchSummary struct {
	TotalIdentifiers    int `json:"total_identifiers"`
	MobileNumbersFound  int `json:"mobile_numbers_found"`
	UPIIDsFound         int `json:"upi_ids_found"`
	AccountNumbersFound int `json:"account_numbers_found"`
	TotalMatches        int `json:"total_matches"`
}

// FileSearchResult is the batch search of every identifier in a file
type FileSearchResult struct {
	Filename      string               `json:"filename"`
	FileType      string               `json:"file_type"`
	Extraction    string               `json:"extraction"`
	Message       string               `json:"message,omitempty"`
	ExtractedData ExtractedIdentifiers `json:"extracted_data"`
	Summary       FileSearchSummary    `json:"summary"`
	Matches       []SearchMatch        `json:"matches"`
	Count         int                  `json:"count"`
}

// ClassifyIdentifiers sorts cell values into mobiles, UPI IDs and account
// numbers. A value is placed in the first class it fits. An address whose
// domain has a dot is an email, not a UPI ID.
func ClassifyIdentifiers(values []string) (mobiles, upis, accounts *set.Set[string], others int) {
	mobiles, upis, accounts = set.New[string](0), set.New[string](0), set.New[string](0)
	for _, v := range values {
		switch {
		case looseMobilePattern.MatchString(v):
			mobiles.Insert(v)
		case strings.Count(v, "@") == 1 && !strings.Contains(v, " ") && !strings.Contains(v[strings.Index(v, "@"):], "."):
			upis.Insert(strings.ToLower(v))
		case accountLiteral.MatchString(v):
			accounts.Insert(v)
		case len(v) > 3:
			others++
		}
	}
	return mobiles, upis, accounts, others
}

// FileSearch extracts identifiers from an uploaded CSV or Excel file and
// runs a universal search for each. PDF text extraction is not available,
// so PDFs produce an empty result marked unsupported.
func (s *SearchService) FileSearch(ctx context.Context, actor *Actor, filename string, content []byte) (*FileSearchResult, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	result := &FileSearchResult{
		Filename:      filename,
		FileType:      ext,
		Extraction:    ExtractionOK,
		ExtractedData: ExtractedIdentifiers{MobileNumbers: []string{}, UPIIDs: []string{}, AccountNumbers: []string{}},
		Matches:       []SearchMatch{},
	}

	if ext == "pdf" {
		result.Extraction = ExtractionUnsupported
		result.Message = "PDF text extraction is not supported; export the document to CSV or Excel"
		return result, nil
	}
	if !IsTabularFile(filename) {
		return nil, fmt.Errorf("%w: use Excel, CSV or PDF", ErrFileTypeNotAllowed)
	}

	table, err := ReadTable(filename, content)
	if err != nil {
		return nil, err
	}
	var values []string
	table.Values(func(v string) { values = append(values, v) })
	mobiles, upis, accounts, others := ClassifyIdentifiers(values)

	result.ExtractedData.MobileNumbers = sortedSlice(mobiles)
	result.ExtractedData.UPIIDs = sortedSlice(upis)
	result.ExtractedData.AccountNumbers = sortedSlice(accounts)
	result.Summary = FileSearchSummary{
		TotalIdentifiers:    mobiles.Size() + upis.Size() + accounts.Size() + others,
		MobileNumbersFound:  mobiles.Size(),
		UPIIDsFound:         upis.Size(),
		AccountNumbersFound: accounts.Size(),
	}

	var all []SearchMatch
	batches := []struct {
		searchType string
		values     []string
	}{
		{SearchTypeMobile, result.ExtractedData.MobileNumbers},
		{SearchTypeUPI, result.ExtractedData.UPIIDs},
		{SearchTypeAccount, result.ExtractedData.AccountNumbers},
	}
	for _, b := range batches {
		for _, v := range b.values {
			matches, err := s.collectMatches(ctx, actor, v, b.searchType)
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				m.SearchedIdentifier = v
				all = append(all, m)
			}
		}
	}

	result.Matches = dedupeMatches(all, func(m SearchMatch) string { return m.SearchedIdentifier })
	result.Count = len(result.Matches)
	result.Summary.TotalMatches = result.Count

	err = RecordAuditEvent(s.db.WithContext(ctx), actor.Audit, AuditEvent{
		Action:       models.AuditActionSearch,
		ResourceType: "search",
		Details: fmt.Sprintf("File search on %s: %d identifiers, %d matches",
			SanitizeFilename(filename), result.Summary.TotalIdentifiers, result.Count),
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"cyber_case_app_go/models"

	"github.com/hashicorp/go-set/v2"
	"github.com/xuri/excelize/v2"
)

// Table is the first sheet of a CSV or Excel file
type Table struct {
	Header []string
	Rows   [][]string
}

// IsTabularFile reports whether ReadTable can parse filename
func IsTabularFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx", ".xls":
		return true
	}
	return false
}

// ReadTable parses CSV or Excel content. The first row is the header.
func ReadTable(filename string, data []byte) (*Table, error) {
	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		r.TrimLeadingSpace = true
		records, err := r.ReadAll()
		if err != nil {
			return nil, NewValidationError("file", "could not parse CSV: %v", err)
		}
		rows = records
	case ".xlsx", ".xls":
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, NewValidationError("file", "could not open spreadsheet: %v", err)
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, NewValidationError("file", "spreadsheet has no sheets")
		}
		rows, err = f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a CSV or Excel file", ErrFileTypeNotAllowed, filename)
	}

	if len(rows) == 0 {
		return nil, NewValidationError("file", "file has no rows")
	}
	t := &Table{Header: make([]string, len(rows[0]))}
	for i, h := range rows[0] {
		t.Header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, row := range rows[1:] {
		if slices.ContainsFunc(row, func(v string) bool { return strings.TrimSpace(v) != "" }) {
			t.Rows = append(t.Rows, row)
		}
	}
	return t, nil
}

// Cell returns the trimmed value at col, or "" for short rows
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Values calls fn for every non-empty data cell
func (t *Table) Values(fn func(string)) {
	for _, row := range t.Rows {
		for _, v := range row {
			if v = strings.TrimSpace(v); v != "" {
				fn(v)
			}
		}
	}
}

// CDR column roles, matched by keyword in header order
var cdrColumnKeywords = []struct {
	role     string
	keywords []string
}{
	{"datetime", []string{"date", "time"}},
	{"source", []string{"source", "caller", "origin", "from", "a_party"}},
	{"destination", []string{"dest", "callee", "term", "to", "b_party"}},
	{"duration", []string{"dur", "sec"}},
	{"imei", []string{"imei"}},
}

// MapCDRColumns assigns each header to the first role whose keyword it contains.
// The first column wins a role.
func MapCDRColumns(header []string) map[string]int {
	mapping := map[string]int{}
	for i, h := range header {
		for _, r := range cdrColumnKeywords {
			if !slices.ContainsFunc(r.keywords, func(k string) bool { return strings.Contains(h, k) }) {
				continue
			}
			if _, taken := mapping[r.role]; !taken {
				mapping[r.role] = i
			}
			break
		}
	}
	return mapping
}

// ContactCount is how often a number appears on one side of the calls
type ContactCount struct {
	Number string `json:"number"`
	Count  int    `json:"count"`
}

// CDRAnalysis summarises a call detail record
type CDRAnalysis struct {
	EvidenceID    string            `json:"evidence_id,omitempty"`
	Filename      string            `json:"filename,omitempty"`
	TotalCalls    int               `json:"total_calls"`
	TotalDuration int64             `json:"total_duration"`
	TopOutgoing   []ContactCount    `json:"top_contacts_outgoing"`
	TopIncoming   []ContactCount    `json:"top_contacts_incoming"`
	HourlyStats   map[int]int       `json:"hourly_stats"`
	ColumnMapping map[string]string `json:"column_mapping_used"`
}

const topContactLimit = 10

var cdrTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"15:04:05",
	"15:04",
}

func parseCDRTime(v string) (time.Time, bool) {
	for _, layout := range cdrTimeLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func topContacts(counts map[string]int) []ContactCount {
	out := make([]ContactCount, 0, len(counts))
	for n, c := range counts {
		out = append(out, ContactCount{Number: n, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Number < out[j].Number
	})
	if len(out) > topContactLimit {
		out = out[:topContactLimit]
	}
	return out
}

// AnalyzeCDR counts calls, contacts, talk time and the hour of day of each call.
// Unparseable timestamps and durations are skipped.
func AnalyzeCDR(t *Table) (*CDRAnalysis, error) {
	cols := MapCDRColumns(t.Header)
	src, hasSrc := cols["source"]
	dst, hasDst := cols["destination"]
	if !hasSrc || !hasDst {
		return nil, NewValidationError("file", "could not identify Source/Destination columns; use headers like 'Source Number' and 'Destination Number'")
	}

	result := &CDRAnalysis{
		TotalCalls:    len(t.Rows),
		HourlyStats:   map[int]int{},
		ColumnMapping: map[string]string{},
	}
	for role, i := range cols {
		result.ColumnMapping[role] = t.Header[i]
	}

	outgoing, incoming := map[string]int{}, map[string]int{}
	durCol, hasDur := cols["duration"]
	timeCol, hasTime := cols["datetime"]
	for _, row := range t.Rows {
		if v := t.Cell(row, dst); v != "" {
			outgoing[v]++
		}
		if v := t.Cell(row, src); v != "" {
			incoming[v]++
		}
		if hasDur {
			if d, err := strconv.ParseFloat(t.Cell(row, durCol), 64); err == nil {
				result.TotalDuration += int64(d)
			}
		}
		if hasTime {
			if ts, ok := parseCDRTime(t.Cell(row, timeCol)); ok {
				result.HourlyStats[ts.Hour()]++
			}
		}
	}
	result.TopOutgoing = topContacts(outgoing)
	result.TopIncoming = topContacts(incoming)
	return result, nil
}

// AnalyzeCDREvidence runs AnalyzeCDR on a stored evidence file. The file
// goes through the same integrity checks and audit as a view.
func (v *EvidenceVault) AnalyzeCDREvidence(ctx context.Context, actor *Actor, evidenceID string) (*CDRAnalysis, error) {
	rec, err := v.Retrieve(ctx, actor, evidenceID, models.AuditActionViewEvidence)
	if err != nil {
		return nil, err
	}
	table, err := ReadTable(rec.Evidence.OriginalFilename, rec.Content)
	if err != nil {
		return nil, err
	}
	analysis, err := AnalyzeCDR(table)
	if err != nil {
		return nil, err
	}
	analysis.EvidenceID = rec.Evidence.ID
	analysis.Filename = rec.Evidence.OriginalFilename
	return analysis, nil
}

var (
	nonDigits      = regexp.MustCompile(`\D`)
	accountLiteral = regexp.MustCompile(`^\d{9,18}$`)
)

// identifierSets are the identifiers found in one file
type identifierSets struct {
	mobiles  *set.Set[string]
	accounts *set.Set[string]
	upis     *set.Set[string]
}

// extractTowerIdentifiers collects mobiles (last 10 digits starting 6-9),
// UPI IDs and 9-18 digit account numbers from every cell
func extractTowerIdentifiers(t *Table) identifierSets {
	ids := identifierSets{mobiles: set.New[string](0), accounts: set.New[string](0), upis: set.New[string](0)}
	t.Values(func(v string) {
		if digits := nonDigits.ReplaceAllString(v, ""); len(digits) >= 10 {
			m := digits[len(digits)-10:]
			if strings.ContainsAny(m[:1], "6789") {
				ids.mobiles.Insert(m)
			}
		}
		if strings.Contains(v, "@") && !strings.Contains(v, " ") && len(v) > 5 {
			ids.upis.Insert(strings.ToLower(v))
		}
		if accountLiteral.MatchString(v) {
			ids.accounts.Insert(v)
		}
	})
	return ids
}

func intersect(a, b *set.Set[string]) *set.Set[string] {
	out := set.New[string](0)
	for _, v := range a.Slice() {
		if b.Contains(v) {
			out.Insert(v)
		}
	}
	return out
}

func sortedSlice(s *set.Set[string]) []string {
	out := s.Slice()
	slices.Sort(out)
	return out
}

// TabularFile is an uploaded CSV or Excel file
type TabularFile struct {
	Filename string
	Content  []byte
}

// TowerDumpFileStat counts what one file contributed
type TowerDumpFileStat struct {
	Filename string `json:"filename"`
	Mobiles  int    `json:"mobiles"`
	Accounts int    `json:"accounts"`
	UPIs     int    `json:"upis"`
}

// TowerDumpResult lists identifiers present in every file
type TowerDumpResult struct {
	CommonNumbers  []string            `json:"common_numbers"`
	CommonAccounts []string            `json:"common_accounts"`
	CommonUPIs     []string            `json:"common_upis"`
	Counts         map[string]int      `json:"counts"`
	FileStats      []TowerDumpFileStat `json:"file_stats"`
}

// AnalyzeTowerDump intersects the identifiers of two or more tower dumps or
// statements. Files that are not CSV or Excel are skipped.
func AnalyzeTowerDump(files []TabularFile) (*TowerDumpResult, error) {
	if len(files) < 2 {
		return nil, NewValidationError("files", "upload at least 2 files to compare")
	}

	var common *identifierSets
	result := &TowerDumpResult{FileStats: []TowerDumpFileStat{}}
	for _, f := range files {
		if !IsTabularFile(f.Filename) {
			continue
		}
		table, err := ReadTable(f.Filename, f.Content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Filename, err)
		}
		ids := extractTowerIdentifiers(table)
		result.FileStats = append(result.FileStats, TowerDumpFileStat{
			Filename: f.Filename,
			Mobiles:  ids.mobiles.Size(),
			Accounts: ids.accounts.Size(),
			UPIs:     ids.upis.Size(),
		})
		if common == nil {
			common = &ids
			continue
		}
		common.mobiles = intersect(common.mobiles, ids.mobiles)
		common.accounts = intersect(common.accounts, ids.accounts)
		common.upis = intersect(common.upis, ids.upis)
	}
	if len(result.FileStats) < 2 {
		return nil, NewValidationError("files", "at least 2 CSV or Excel files are required")
	}

	result.CommonNumbers = sortedSlice(common.mobiles)
	result.CommonAccounts = sortedSlice(common.accounts)
	result.CommonUPIs = sortedSlice(common.upis)
	result.Counts = map[string]int{
		"mobile":  len(result.CommonNumbers),
		"account": len(result.CommonAccounts),
		"upi":     len(result.CommonUPIs),
	}
	return result, nil
}

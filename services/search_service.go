package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"cyber_case_app_go/models"

	"github.com/hashicorp/go-set/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Search types
const (
	SearchTypeAuto    = "auto"
	SearchTypeMobile  = "mobile"
	SearchTypeEmail   = "email"
	SearchTypeUPI     = "upi"
	SearchTypeFIR     = "fir"
	SearchTypeAccount = "account"
	SearchTypeName    = "name"
)

// Match sources
const (
	SourceTelecom   = "Telecom Request"
	SourceFinancial = "Financial Entity"
	SourceCase      = "Case Record"
	SourceTimeline  = "Transaction Timeline"
	SourceEvidence  = "Evidence File"
)

const narrativeSnippetLength = 100

// SearchMatch is one hit of a universal search
type SearchMatch struct {
	Source             string `json:"source"`
	CaseID             string `json:"case_id"`
	FIRNumber          string `json:"fir_number"`
	MatchType          string `json:"match_type"`
	MatchedValue       string `json:"matched_value"`
	CaseType           string `json:"case_type"`
	Status             string `json:"status"`
	ResourceID         string `json:"resource_id,omitempty"`
	Detail             string `json:"detail,omitempty"`
	SearchedIdentifier string `json:"searched_identifier,omitempty"`
}

// SearchResponse groups the deduplicated matches of one query
type SearchResponse struct {
	Query      string         `json:"query"`
	SearchType string         `json:"search_type"`
	Matches    []SearchMatch  `json:"matches"`
	Count      int            `json:"count"`
	Summary    map[string]int `json:"summary"`
}

// SearchService runs the investigative lookups across cases, requests and
// financial records. Every query is restricted to the actor's visible cases.
type SearchService struct {
	db *gorm.DB
}

// NewSearchService creates a new search service instance
func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{db: db}
}

// DetectSearchType guesses what kind of identifier a query is
func DetectSearchType(query string) string {
	q := strings.TrimSpace(query)
	digits := strings.NewReplacer("+", "", "-", "", " ", "").Replace(q)
	switch {
	case isDigits(digits) && len(digits) >= 10:
		return SearchTypeMobile
	case strings.Count(q, "@") == 1:
		if strings.Contains(q[strings.Index(q, "@")+1:], ".") {
			return SearchTypeEmail
		}
		return SearchTypeUPI
	case strings.Contains(q, "/") || strings.HasPrefix(strings.ToUpper(q), "FIR"):
		return SearchTypeFIR
	case isDigits(q) && len(q) >= 9:
		return SearchTypeAccount
	default:
		return SearchTypeName
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive LIKE pattern for a substring
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// ilike matches column against a containsPattern
func ilike(column string) string {
	return fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, column)
}

func caseFields(c *models.Case) (fir, caseType, status string) {
	if c == nil {
		return "N/A", "N/A", "N/A"
	}
	return c.FIRNumber, c.CaseType, c.Status
}

// Search looks for the query across every record type that can carry it.
// Results are deduplicated on (case, source, match type) and the search
// itself is written to the audit trail.
func (s *SearchService) Search(ctx context.Context, actor *Actor, query, searchType string) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewValidationError("query", "search query is required")
	}
	if searchType == "" || searchType == SearchTypeAuto {
		searchType = DetectSearchType(query)
	}

	matches, err := s.collectMatches(ctx, actor, query, searchType)
	if err != nil {
		return nil, err
	}

	resp := &SearchResponse{
		Query:      query,
		SearchType: searchType,
		Matches:    dedupeMatches(matches, func(m SearchMatch) string { return m.MatchType }),
		Summary: map[string]int{
			"telecom_requests":     0,
			"financial_entities":   0,
			"case_records":         0,
			"transaction_timeline": 0,
			"evidence_files":       0,
		},
	}
	resp.Count = len(resp.Matches)
	for _, m := range resp.Matches {
		resp.Summary[summaryKey(m.Source)]++
	}

	err = RecordAuditEvent(s.db.WithContext(ctx), actor.Audit, AuditEvent{
		Action:       models.AuditActionSearch,
		ResourceType: "search",
		Details:      fmt.Sprintf("Universal search (%s) for %q: %d matches", searchType, query, resp.Count),
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func summaryKey(source string) string {
	switch source {
	case SourceTelecom:
		return "telecom_requests"
	case SourceFinancial:
		return "financial_entities"
	case SourceCase:
		return "case_records"
	case SourceTimeline:
		return "transaction_timeline"
	default:
		return "evidence_files"
	}
}

// dedupeMatches keeps the first match per case, source and discriminator
func dedupeMatches(matches []SearchMatch, discriminator func(SearchMatch) string) []SearchMatch {
	seen := set.New[string](len(matches))
	unique := make([]SearchMatch, 0, len(matches))
	for _, m := range matches {
		if seen.Insert(m.CaseID + "|" + m.Source + "|" + discriminator(m)) {
			unique = append(unique, m)
		}
	}
	return unique
}

func (s *SearchService) collectMatches(ctx context.Context, actor *Actor, query, searchType string) ([]SearchMatch, error) {
	db := s.db.WithContext(ctx)
	var matches []SearchMatch
	lower := strings.ToLower(query)

	if searchType == SearchTypeMobile {
		var requests []models.TelecomRequest
		err := actor.Scope.ApplyViaCase(db.Model(&models.TelecomRequest{}), "telecom_requests").
			Preload("Case").
			Where(ilike("telecom_requests.mobile_number"), containsPattern(LocalMobile(query))).
			Find(&requests).Error
		if err != nil {
			return nil, fmt.Errorf("failed to search telecom requests: %w", err)
		}
		for _, r := range requests {
			fir, caseType, status := caseFields(r.Case)
			matches = append(matches, SearchMatch{
				Source: SourceTelecom, CaseID: r.CaseID, FIRNumber: fir,
				MatchType: "Mobile Number", MatchedValue: r.MobileNumber,
				CaseType: caseType, Status: status, ResourceID: r.ID, Detail: r.RequestType,
			})
		}
	}

	if searchType == SearchTypeUPI || searchType == SearchTypeAccount || searchType == SearchTypeName {
		pattern := containsPattern(query)
		var entities []models.FinancialEntity
		err := scopedEntities(db, actor).
			Preload("Case").
			Where(db.Where(ilike("financial_entities.upi_id"), pattern).
				Or(ilike("financial_entities.account_number"), pattern).
				Or(ilike("financial_entities.account_holder_name"), pattern).
				Or(ilike("financial_entities.bank_name"), pattern)).
			Find(&entities).Error
		if err != nil {
			return nil, fmt.Errorf("failed to search financial entities: %w", err)
		}
		for _, e := range entities {
			fir, caseType, status := caseFields(e.Case)
			matchType, value := "Bank Name", derefOr(e.BankName, query)
			switch {
			case e.UPIID != nil && strings.Contains(strings.ToLower(*e.UPIID), lower):
				matchType, value = "UPI ID", *e.UPIID
			case e.AccountNumber != nil && strings.Contains(*e.AccountNumber, lower):
				matchType, value = "Bank Account", fmt.Sprintf("%s - %s", derefOr(e.BankName, "Unknown bank"), *e.AccountNumber)
			case e.AccountHolderName != nil && strings.Contains(strings.ToLower(*e.AccountHolderName), lower):
				matchType, value = "Account Holder Name", *e.AccountHolderName
			}
			matches = append(matches, SearchMatch{
				Source: SourceFinancial, CaseID: e.CaseID, FIRNumber: fir,
				MatchType: matchType, MatchedValue: value,
				CaseType: caseType, Status: status, ResourceID: e.ID, Detail: e.EntityType,
			})
		}
	}

	if searchType == SearchTypeFIR || searchType == SearchTypeName || searchType == SearchTypeEmail {
		pattern := containsPattern(query)
		var cases []models.Case
		err := actor.Scope.ApplyToCases(db.Model(&models.Case{})).
			Where(db.Where(ilike("cases.fir_number"), pattern).Or(ilike("cases.description"), pattern)).
			Find(&cases).Error
		if err != nil {
			return nil, fmt.Errorf("failed to search cases: %w", err)
		}
		for _, c := range cases {
			matchType := "Case Description"
			if strings.Contains(strings.ToLower(c.FIRNumber), lower) {
				matchType = "FIR Number"
			}
			matches = append(matches, SearchMatch{
				Source: SourceCase, CaseID: c.ID, FIRNumber: c.FIRNumber,
				MatchType: matchType, MatchedValue: c.FIRNumber,
				CaseType: c.CaseType, Status: c.Status, ResourceID: c.ID, Detail: c.PoliceStation,
			})
		}
	}

	if searchType == SearchTypeName || searchType == SearchTypeEmail {
		var events []models.TransactionEvent
		err := actor.Scope.ApplyViaCase(db.Model(&models.TransactionEvent{}), "transaction_timeline").
			Preload("Case").
			Where(ilike("transaction_timeline.narrative"), containsPattern(query)).
			Find(&events).Error
		if err != nil {
			return nil, fmt.Errorf("failed to search timeline: %w", err)
		}
		for _, e := range events {
			fir, caseType, status := caseFields(e.Case)
			narrative := e.Narrative
			if len(narrative) > narrativeSnippetLength {
				narrative = narrative[:narrativeSnippetLength] + "..."
			}
			matches = append(matches, SearchMatch{
				Source: SourceTimeline, CaseID: e.CaseID, FIRNumber: fir,
				MatchType: "Mentioned in Timeline", MatchedValue: narrative,
				CaseType: caseType, Status: status, ResourceID: e.ID, Detail: e.EventType,
			})
		}
	}

	pattern := containsPattern(query)
	var evidence []models.Evidence
	err := actor.Scope.ApplyViaCase(db.Model(&models.Evidence{}), "evidence").
		Preload("Case").
		Where(db.Where(ilike("evidence.original_filename"), pattern).Or(ilike("evidence.file_type"), pattern)).
		Find(&evidence).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search evidence: %w", err)
	}
	for _, e := range evidence {
		fir, caseType, status := caseFields(e.Case)
		matches = append(matches, SearchMatch{
			Source: SourceEvidence, CaseID: e.CaseID, FIRNumber: fir,
			MatchType: "Evidence Document", MatchedValue: e.OriginalFilename,
			CaseType: caseType, Status: status, ResourceID: e.ID, Detail: e.FileType,
		})
	}

	return matches, nil
}

// RiskBreakdown holds the component scores of a risk profile, each 0-100
type RiskBreakdown struct {
	RepeatOffense int `json:"repeat_offense_score"`
	MoneyFlow     int `json:"money_flow_score"`
	Network       int `json:"network_score"`
}

// RiskProfile is the weighted assessment of an investigated identifier
type RiskProfile struct {
	Score     int           `json:"score"`
	Level     string        `json:"level"`
	Priority  string        `json:"priority"`
	Breakdown RiskBreakdown `json:"breakdown"`
	Tags      []string      `json:"tags"`
}

var (
	moneyTier1      = decimal.NewFromInt(1000000)
	moneyTier2      = decimal.NewFromInt(100000)
	moneyTier3      = decimal.NewFromInt(10000)
	highValueTarget = decimal.NewFromInt(500000)
)

// ScoreRisk weighs repeat offending 0.4, money flow 0.3 and network size 0.3.
// The score is capped at 99.
func ScoreRisk(caseCount int, totalAmount decimal.Decimal, connections int, lastActivity *time.Time, now time.Time) RiskProfile {
	var b RiskBreakdown
	if caseCount > 1 {
		b.RepeatOffense = min(caseCount*20, 100)
	}
	switch {
	case totalAmount.GreaterThan(moneyTier1):
		b.MoneyFlow = 100
	case totalAmount.GreaterThan(moneyTier2):
		b.MoneyFlow = 60
	case totalAmount.GreaterThan(moneyTier3):
		b.MoneyFlow = 30
	}
	switch {
	case connections > 10:
		b.Network = 100
	case connections > 5:
		b.Network = 60
	default:
		b.Network = 20
	}

	profile := RiskProfile{
		Score:     min((b.RepeatOffense*4+b.MoneyFlow*3+b.Network*3)/10, 99),
		Breakdown: b,
		Tags:      []string{},
	}
	switch {
	case profile.Score >= 80:
		profile.Level, profile.Priority = "CRITICAL", "IMMEDIATE ACTION"
	case profile.Score >= 50:
		profile.Level, profile.Priority = "HIGH", "PRIORITY INVESTIGATION"
	default:
		profile.Level, profile.Priority = "LOW", "ROUTINE MONITORING"
	}

	if caseCount > 1 {
		profile.Tags = append(profile.Tags, "REPEAT OFFENDER")
	}
	if totalAmount.GreaterThan(highValueTarget) {
		profile.Tags = append(profile.Tags, "HIGH VALUE TARGET")
	}
	if lastActivity != nil && now.Sub(*lastActivity) < 7*24*time.Hour {
		profile.Tags = append(profile.Tags, "ACTIVE RECENTLY")
	}
	return profile
}

// InvestigationSummary totals what an investigation found
type InvestigationSummary struct {
	TotalCases             int             `json:"total_cases"`
	TotalTelecomRequests   int             `json:"total_telecom_requests"`
	TotalFinancialEntities int             `json:"total_financial_entities"`
	TotalEvidenceFiles     int             `json:"total_evidence_files"`
	TotalTimelineEvents    int             `json:"total_timeline_events"`
	TotalAmount            decimal.Decimal `json:"total_transaction_amount"`
	CaseIDs                []string        `json:"case_ids"`
	FIRNumbers             []string        `json:"fir_numbers"`
}

// Investigation is everything linked to one identifier
type Investigation struct {
	Identifier        string                    `json:"identifier"`
	Cases             []models.Case             `json:"cases"`
	TelecomRequests   []models.TelecomRequest   `json:"telecom_requests"`
	FinancialEntities []models.FinancialEntity  `json:"financial_entities"`
	EvidenceFiles     []models.Evidence         `json:"evidence_files"`
	Timeline          []models.TransactionEvent `json:"transaction_timeline"`
	Summary           InvestigationSummary      `json:"summary_stats"`
	RiskProfile       RiskProfile               `json:"risk_profile"`
}

// Investigate gathers the cases linked to an identifier through FIR text,
// telecom requests or financial entities, then everything filed on them.
func (s *SearchService) Investigate(ctx context.Context, actor *Actor, identifier string) (*Investigation, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, NewValidationError("identifier", "identifier is required")
	}
	db := s.db.WithContext(ctx)
	pattern := containsPattern(identifier)

	inv := &Investigation{
		Identifier:        identifier,
		Cases:             []models.Case{},
		TelecomRequests:   []models.TelecomRequest{},
		FinancialEntities: []models.FinancialEntity{},
		EvidenceFiles:     []models.Evidence{},
		Timeline:          []models.TransactionEvent{},
	}
	caseIDs := set.New[string](0)

	var textMatches []string
	if err := actor.Scope.ApplyToCases(db.Model(&models.Case{})).
		Where(db.Where(ilike("cases.fir_number"), pattern).Or(ilike("cases.description"), pattern)).
		Pluck("cases.id", &textMatches).Error; err != nil {
		return nil, fmt.Errorf("failed to search cases: %w", err)
	}
	caseIDs.InsertSlice(textMatches)

	if err := actor.Scope.ApplyViaCase(db.Model(&models.TelecomRequest{}), "telecom_requests").
		Where(ilike("telecom_requests.mobile_number"), pattern).
		Order("telecom_requests.created_at DESC").
		Find(&inv.TelecomRequests).Error; err != nil {
		return nil, fmt.Errorf("failed to search telecom requests: %w", err)
	}
	for _, r := range inv.TelecomRequests {
		caseIDs.Insert(r.CaseID)
	}

	if err := scopedEntities(db, actor).
		Where(db.Where(ilike("financial_entities.upi_id"), pattern).
			Or(ilike("financial_entities.account_number"), pattern).
			Or(ilike("financial_entities.account_holder_name"), pattern)).
		Order("financial_entities.created_at DESC").
		Find(&inv.FinancialEntities).Error; err != nil {
		return nil, fmt.Errorf("failed to search financial entities: %w", err)
	}
	for _, e := range inv.FinancialEntities {
		caseIDs.Insert(e.CaseID)
	}

	ids := caseIDs.Slice()
	slices.Sort(ids)
	inv.Summary.CaseIDs = ids
	inv.Summary.FIRNumbers = []string{}
	inv.Summary.TotalAmount = decimal.Zero

	if len(ids) > 0 {
		if err := db.Where("id IN ?", ids).Order("created_at DESC").Find(&inv.Cases).Error; err != nil {
			return nil, fmt.Errorf("failed to load cases: %w", err)
		}
		if err := db.Where("case_id IN ?", ids).Order("uploaded_at DESC").Find(&inv.EvidenceFiles).Error; err != nil {
			return nil, fmt.Errorf("failed to load evidence: %w", err)
		}
		if err := db.Where("case_id IN ?", ids).Order("event_timestamp DESC").Find(&inv.Timeline).Error; err != nil {
			return nil, fmt.Errorf("failed to load timeline: %w", err)
		}
	}

	for _, c := range inv.Cases {
		inv.Summary.TotalAmount = inv.Summary.TotalAmount.Add(c.AmountInvolved)
		inv.Summary.FIRNumbers = append(inv.Summary.FIRNumbers, c.FIRNumber)
	}
	inv.Summary.TotalCases = len(ids)
	inv.Summary.TotalTelecomRequests = len(inv.TelecomRequests)
	inv.Summary.TotalFinancialEntities = len(inv.FinancialEntities)
	inv.Summary.TotalEvidenceFiles = len(inv.EvidenceFiles)
	inv.Summary.TotalTimelineEvents = len(inv.Timeline)

	var lastActivity *time.Time
	if len(inv.Timeline) > 0 {
		lastActivity = &inv.Timeline[0].EventTimestamp
	}
	inv.RiskProfile = ScoreRisk(len(ids), inv.Summary.TotalAmount,
		len(inv.TelecomRequests)+len(inv.FinancialEntities), lastActivity, time.Now())

	return inv, nil
}

// Node groups
const (
	NodeCase      = "case"
	NodeMobile    = "mobile"
	NodeFinancial = "financial"
	NodeSearch    = "search"
)

// GraphNode is a case, mobile number or financial identifier
type GraphNode struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Group     string `json:"group"`
	Size      int    `json:"size"`
	Highlight bool   `json:"highlight"`
}

// GraphEdge links a case to a mobile or financial node
type GraphEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// NetworkGraph is the link chart around an identifier
type NetworkGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

type graphBuilder struct {
	graph NetworkGraph
	nodes *set.Set[string]
	edges *set.Set[string]
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{
		graph: NetworkGraph{Nodes: []GraphNode{}, Edges: []GraphEdge{}},
		nodes: set.New[string](0),
		edges: set.New[string](0),
	}
}

func (g *graphBuilder) node(n GraphNode) {
	if g.nodes.Insert(n.ID) {
		g.graph.Nodes = append(g.graph.Nodes, n)
	}
}

// edge adds an undirected edge once
func (g *graphBuilder) edge(from, to, label string) {
	if from == to {
		return
	}
	a, b := from, to
	if b < a {
		a, b = b, a
	}
	if g.edges.Insert(a + "\x00" + b) {
		g.graph.Edges = append(g.graph.Edges, GraphEdge{From: from, To: to, Label: label})
	}
}

// BuildNetworkGraph links the cases matching identifier to every mobile and
// financial identifier filed on them. Nodes matching the identifier are
// highlighted. With no match the graph holds only the search node.
func (s *SearchService) BuildNetworkGraph(ctx context.Context, actor *Actor, identifier string) (*NetworkGraph, error) {
	g := newGraphBuilder()
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return &g.graph, nil
	}
	db := s.db.WithContext(ctx)
	pattern := containsPattern(identifier)
	caseIDs := set.New[string](0)

	var fromRequests, fromEntities, fromCases []string
	if err := actor.Scope.ApplyViaCase(db.Model(&models.TelecomRequest{}), "telecom_requests").
		Where(ilike("telecom_requests.mobile_number"), pattern).
		Pluck("telecom_requests.case_id", &fromRequests).Error; err != nil {
		return nil, fmt.Errorf("failed to search telecom requests: %w", err)
	}
	if err := scopedEntities(db, actor).
		Where(db.Where(ilike("financial_entities.upi_id"), pattern).Or(ilike("financial_entities.account_number"), pattern)).
		Pluck("financial_entities.case_id", &fromEntities).Error; err != nil {
		return nil, fmt.Errorf("failed to search financial entities: %w", err)
	}
	if err := actor.Scope.ApplyToCases(db.Model(&models.Case{})).
		Where(ilike("cases.fir_number"), pattern).
		Pluck("cases.id", &fromCases).Error; err != nil {
		return nil, fmt.Errorf("failed to search cases: %w", err)
	}
	caseIDs.InsertSlice(fromRequests)
	caseIDs.InsertSlice(fromEntities)
	caseIDs.InsertSlice(fromCases)

	if caseIDs.Empty() {
		g.node(GraphNode{ID: "SEARCH_" + identifier, Label: identifier, Group: NodeSearch, Size: 30})
		return &g.graph, nil
	}

	var cases []models.Case
	if err := db.Where("id IN ?", caseIDs.Slice()).Order("fir_number").Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to load cases: %w", err)
	}
	lower := strings.ToLower(identifier)

	for _, c := range cases {
		caseNode := "CASE_" + c.ID
		g.node(GraphNode{ID: caseNode, Label: "FIR: " + c.FIRNumber, Group: NodeCase, Size: 40})

		var requests []models.TelecomRequest
		if err := db.Where("case_id = ?", c.ID).Order("created_at").Find(&requests).Error; err != nil {
			return nil, fmt.Errorf("failed to load telecom requests: %w", err)
		}
		for _, r := range requests {
			id := "MOB_" + r.MobileNumber
			g.node(GraphNode{ID: id, Label: r.MobileNumber, Group: NodeMobile, Size: 20,
				Highlight: strings.Contains(r.MobileNumber, lower)})
			g.edge(caseNode, id, "suspect")
		}

		var entities []models.FinancialEntity
		if err := db.Where("case_id = ?", c.ID).Order("created_at").Find(&entities).Error; err != nil {
			return nil, fmt.Errorf("failed to load financial entities: %w", err)
		}
		for _, e := range entities {
			value := e.Identifier()
			if value == "" {
				continue
			}
			id := "FIN_" + value
			g.node(GraphNode{ID: id, Label: value, Group: NodeFinancial, Size: 20,
				Highlight: strings.Contains(strings.ToLower(value), lower)})
			g.edge(caseNode, id, "money_trail")
		}
	}
	return &g.graph, nil
}

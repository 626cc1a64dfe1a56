package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Construvia/obras/internal/pricing"
)

// Document variants sharing the same milestone/scope editing flow.
const (
	docTypeContract    = "contract"
	docTypeProposal    = "proposal"
	docTypeChangeOrder = "change_order"
)

func validDocType(docType string) bool {
	return docType == docTypeContract || docType == docTypeProposal || docType == docTypeChangeOrder
}

// looseFloat decodes a JSON number or numeric string, degrading malformed
// input to 0. Engine numeric fields must never fail a request.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	if v, ok := parseLooseNumber(b); ok {
		*f = looseFloat(v)
	} else {
		*f = 0
	}
	return nil
}

// optionalFloat keeps the null/absent vs present distinction of nullable
// numeric fields while coercing malformed present values to 0.
type optionalFloat struct {
	Value *float64
}

func (f *optionalFloat) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == `""` {
		f.Value = nil
		return nil
	}
	value := 0.0
	if v, ok := parseLooseNumber(trimmed); ok {
		value = v
	}
	f.Value = &value
	return nil
}

func (f optionalFloat) MarshalJSON() ([]byte, error) {
	if f.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*f.Value)
}

func parseLooseNumber(b []byte) (float64, bool) {
	raw := strings.TrimSpace(string(b))
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

type milestonePayload struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	MilestoneType       string        `json:"milestone_type"`
	Cost                looseFloat    `json:"cost"`
	MarkupPercent       optionalFloat `json:"markup_percent"`
	FlatPrice           optionalFloat `json:"flat_price"`
	CustomerPrice       float64       `json:"customer_price"`
	SubcontractorFeeID  *int64        `json:"subcontractor_fee_id,omitempty"`
	AdditionalExpenseID *int64        `json:"additional_expense_id,omitempty"`
	Sequence            int           `json:"sequence"`
}

type scopeItemPayload struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	AutoGenerated bool   `json:"auto_generated"`
	Sequence      int    `json:"sequence"`
}

type totalsView struct {
	TotalCost              float64 `json:"total_cost"`
	FeeBase                float64 `json:"fee_base"`
	CustomerTotal          float64 `json:"customer_total"`
	Profit                 float64 `json:"profit"`
	ProfitMarginPercent    float64 `json:"profit_margin_percent"`
	EffectiveMarkupPercent float64 `json:"effective_markup_percent"`
}

type documentView struct {
	ProjectID  int64              `json:"project_id"`
	DocType    string             `json:"doc_type"`
	Saved      bool               `json:"saved"`
	Milestones []milestonePayload `json:"milestones"`
	ScopeItems []scopeItemPayload `json:"scope_items"`
	Totals     totalsView         `json:"totals"`
}

type documentsPageViewData struct {
	baseViewData
	ProjectID int64
	DocTypes  []string
}

func (p milestonePayload) toMilestone() pricing.Milestone {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	return pricing.Milestone{
		ID:                  id,
		Name:                strings.TrimSpace(p.Name),
		Type:                pricing.MilestoneType(p.MilestoneType),
		Cost:                float64(p.Cost),
		MarkupPercent:       p.MarkupPercent.Value,
		FlatPriceOverride:   p.FlatPrice.Value,
		Sequence:            p.Sequence,
		SubcontractorFeeID:  p.SubcontractorFeeID,
		AdditionalExpenseID: p.AdditionalExpenseID,
	}
}

func milestonePayloadFrom(m pricing.Milestone, price float64) milestonePayload {
	return milestonePayload{
		ID:                  m.ID,
		Name:                m.Name,
		MilestoneType:       string(m.Type),
		Cost:                looseFloat(m.Cost),
		MarkupPercent:       optionalFloat{Value: m.MarkupPercent},
		FlatPrice:           optionalFloat{Value: m.FlatPriceOverride},
		CustomerPrice:       price,
		SubcontractorFeeID:  m.SubcontractorFeeID,
		AdditionalExpenseID: m.AdditionalExpenseID,
		Sequence:            m.Sequence,
	}
}

func (p scopeItemPayload) toScopeItem() pricing.ScopeItem {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	return pricing.ScopeItem{
		ID:            id,
		Title:         strings.TrimSpace(p.Title),
		Description:   p.Description,
		AutoGenerated: p.AutoGenerated,
		Sequence:      p.Sequence,
	}
}

func scopeItemPayloadFrom(it pricing.ScopeItem) scopeItemPayload {
	return scopeItemPayload{
		ID:            it.ID,
		Title:         it.Title,
		Description:   it.Description,
		AutoGenerated: it.AutoGenerated,
		Sequence:      it.Sequence,
	}
}

func milestonesFromPayloads(payloads []milestonePayload) ([]pricing.Milestone, error) {
	milestones := make([]pricing.Milestone, 0, len(payloads))
	for i, p := range payloads {
		m := p.toMilestone()
		if !m.Type.Valid() {
			return nil, fmt.Errorf("milestone_type %q no es válido", p.MilestoneType)
		}
		m.Sequence = i
		milestones = append(milestones, m)
	}
	return milestones, nil
}

func scopeItemsFromPayloads(payloads []scopeItemPayload) []pricing.ScopeItem {
	items := make([]pricing.ScopeItem, 0, len(payloads))
	for i, p := range payloads {
		it := p.toScopeItem()
		it.Sequence = i
		items = append(items, it)
	}
	return items
}

func (s *server) buildDocumentView(projectID int64, docType string, saved bool, milestones []pricing.Milestone, scopeItems []pricing.ScopeItem, settings pricing.Config, totalCost float64) documentView {
	feeBase := pricing.FeeBase(milestones)
	totals := pricing.ComputeTotals(milestones, settings, totalCost)

	view := documentView{
		ProjectID:  projectID,
		DocType:    docType,
		Saved:      saved,
		Milestones: make([]milestonePayload, 0, len(milestones)),
		ScopeItems: make([]scopeItemPayload, 0, len(scopeItems)),
		Totals: totalsView{
			TotalCost:              totalCost,
			FeeBase:                feeBase,
			CustomerTotal:          totals.CustomerTotal,
			Profit:                 totals.Profit,
			ProfitMarginPercent:    totals.ProfitMarginPercent,
			EffectiveMarkupPercent: totals.EffectiveMarkupPercent,
		},
	}
	for _, m := range milestones {
		view.Milestones = append(view.Milestones, milestonePayloadFrom(m, pricing.ResolvePrice(m, feeBase, settings)))
	}
	for _, it := range scopeItems {
		view.ScopeItems = append(view.ScopeItems, scopeItemPayloadFrom(it))
	}
	return view
}

func (s *server) handleDocumentsPage(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamInt64(r, "projectID")
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	s.renderTemplate(w, "documents.html", documentsPageViewData{
		ProjectID: projectID,
		DocTypes:  []string{docTypeContract, docTypeProposal, docTypeChangeOrder},
	})
}

// handleDocumentShow loads the saved document when one exists, otherwise
// synthesizes defaults from the project's current expenses. The two paths are
// mutually exclusive: a saved document is returned exactly as saved.
func (s *server) handleDocumentShow(w http.ResponseWriter, r *http.Request) {
	projectID, docType, ok := s.documentParams(w, r)
	if !ok {
		return
	}

	settings, err := s.getCompanySettings()
	if err != nil {
		s.logger.Error("failed to load company settings", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load company settings")
		return
	}

	expenses, err := s.getProjectExpenses(projectID)
	if err != nil {
		s.logger.Error("failed to load project expenses", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load project expenses")
		return
	}

	record, found, err := s.loadDocument(projectID, docType)
	if err != nil {
		s.logger.Error("failed to load document", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load document")
		return
	}

	milestones := record.Milestones
	scopeItems := record.ScopeItems
	if !found {
		milestones = pricing.DefaultMilestones(expenses, settings)
		scopeItems = pricing.DefaultScope(expenses, settings)
	}

	totalCost := pricing.AggregateCosts(expenses).Total
	s.writeJSON(w, http.StatusOK, s.buildDocumentView(projectID, docType, found, milestones, scopeItems, settings, totalCost))
}

type saveDocumentRequest struct {
	Milestones []milestonePayload `json:"milestones"`
	ScopeItems []scopeItemPayload `json:"scope_items"`
}

func (s *server) handleDocumentSave(w http.ResponseWriter, r *http.Request) {
	projectID, docType, ok := s.documentParams(w, r)
	if !ok {
		return
	}

	var req saveDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	milestones, err := milestonesFromPayloads(req.Milestones)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	scopeItems := scopeItemsFromPayloads(req.ScopeItems)

	settings, err := s.getCompanySettings()
	if err != nil {
		s.logger.Error("failed to load company settings", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load company settings")
		return
	}

	expenses, err := s.getProjectExpenses(projectID)
	if err != nil {
		s.logger.Error("failed to load project expenses", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load project expenses")
		return
	}

	totalCost := pricing.AggregateCosts(expenses).Total
	if err := s.saveDocument(projectID, docType, milestones, scopeItems, settings); err != nil {
		s.logger.Error("failed to save document", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to save document")
		return
	}

	s.logger.Info("document saved",
		zap.Int64("project_id", projectID),
		zap.String("doc_type", docType),
		zap.Int("milestones", len(milestones)),
		zap.Int("scope_items", len(scopeItems)),
	)
	s.writeJSON(w, http.StatusOK, s.buildDocumentView(projectID, docType, true, milestones, scopeItems, settings, totalCost))
}

type importDocumentRequest struct {
	SourceProjectID int64              `json:"source_project_id"`
	SourceDocType   string             `json:"source_doc_type"`
	MilestoneIDs    []string           `json:"milestone_ids"`
	ScopeItemIDs    []string           `json:"scope_item_ids"`
	Milestones      []milestonePayload `json:"milestones"`
	ScopeItems      []scopeItemPayload `json:"scope_items"`
}

// handleDocumentImport appends selected items from another project's saved
// document to the caller's current in-memory lists. Imported items get fresh
// ids and this document's default markup; nothing is de-duplicated.
func (s *server) handleDocumentImport(w http.ResponseWriter, r *http.Request) {
	projectID, docType, ok := s.documentParams(w, r)
	if !ok {
		return
	}

	var req importDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SourceProjectID <= 0 || !validDocType(req.SourceDocType) {
		s.writeJSONError(w, http.StatusBadRequest, "source_project_id y source_doc_type son requeridos")
		return
	}

	current, err := milestonesFromPayloads(req.Milestones)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	currentScope := scopeItemsFromPayloads(req.ScopeItems)

	source, found, err := s.loadDocument(req.SourceProjectID, req.SourceDocType)
	if err != nil {
		s.logger.Error("failed to load source document", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load source document")
		return
	}
	if !found {
		s.writeJSONError(w, http.StatusNotFound, "El proyecto de origen no tiene ese documento guardado.")
		return
	}

	settings, err := s.getCompanySettings()
	if err != nil {
		s.logger.Error("failed to load company settings", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load company settings")
		return
	}

	imported := make([]pricing.Milestone, 0, len(req.MilestoneIDs))
	for _, m := range source.Milestones {
		if containsID(req.MilestoneIDs, m.ID) {
			imported = append(imported, pricing.ImportMilestone(m, settings.DefaultMarkupPercent))
		}
	}
	importedScope := make([]pricing.ScopeItem, 0, len(req.ScopeItemIDs))
	for _, it := range source.ScopeItems {
		if containsID(req.ScopeItemIDs, it.ID) {
			importedScope = append(importedScope, pricing.ImportScopeItem(it))
		}
	}

	merged := pricing.AppendMilestones(current, imported)
	mergedScope := pricing.AppendScopeItems(currentScope, importedScope)

	expenses, err := s.getProjectExpenses(projectID)
	if err != nil {
		s.logger.Error("failed to load project expenses", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load project expenses")
		return
	}

	s.logger.Info("document items imported",
		zap.Int64("project_id", projectID),
		zap.Int64("source_project_id", req.SourceProjectID),
		zap.Int("milestones", len(imported)),
		zap.Int("scope_items", len(importedScope)),
	)
	totalCost := pricing.AggregateCosts(expenses).Total
	s.writeJSON(w, http.StatusOK, s.buildDocumentView(projectID, docType, false, merged, mergedScope, settings, totalCost))
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

type generatedPayload struct {
	DocType  string                `json:"doc_type"`
	Schedule []pricing.ScheduleRow `json:"schedule"`
	Scope    []pricing.ScopeRow    `json:"scope"`
	Totals   totalsView            `json:"totals"`
}

// handleDocumentGenerate recomputes the saved document's totals and, when the
// customer total is positive, stores the payment-schedule/scope payload that
// the external PDF and e-signature collaborators consume.
func (s *server) handleDocumentGenerate(w http.ResponseWriter, r *http.Request) {
	projectID, docType, ok := s.documentParams(w, r)
	if !ok {
		return
	}

	record, found, err := s.loadDocument(projectID, docType)
	if err != nil {
		s.logger.Error("failed to load document", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load document")
		return
	}
	if !found {
		s.writeJSONError(w, http.StatusNotFound, "Guarda el documento antes de generarlo.")
		return
	}

	settings, err := s.getCompanySettings()
	if err != nil {
		s.logger.Error("failed to load company settings", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load company settings")
		return
	}

	expenses, err := s.getProjectExpenses(projectID)
	if err != nil {
		s.logger.Error("failed to load project expenses", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load project expenses")
		return
	}

	totalCost := pricing.AggregateCosts(expenses).Total
	totals := pricing.ComputeTotals(record.Milestones, settings, totalCost)
	if err := pricing.CanGenerate(totals); err != nil {
		if errors.Is(err, pricing.ErrNothingToBill) {
			s.writeJSONError(w, http.StatusUnprocessableEntity, "El total para el cliente debe ser mayor a 0.")
			return
		}
		s.logger.Error("generation authorization failed", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to generate document")
		return
	}

	payload := generatedPayload{
		DocType:  docType,
		Schedule: pricing.BuildPaymentSchedule(record.Milestones, settings),
		Scope:    pricing.BuildScopeRows(record.ScopeItems),
		Totals: totalsView{
			TotalCost:              totalCost,
			FeeBase:                pricing.FeeBase(record.Milestones),
			CustomerTotal:          totals.CustomerTotal,
			Profit:                 totals.Profit,
			ProfitMarginPercent:    totals.ProfitMarginPercent,
			EffectiveMarkupPercent: totals.EffectiveMarkupPercent,
		},
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal generated payload", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to generate document")
		return
	}

	if _, err := s.db.Exec(`
		INSERT INTO generated_documents (document_id, payload_json)
		VALUES (?, ?)
	`, record.ID, string(payloadJSON)); err != nil {
		s.logger.Error("failed to store generated document", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to generate document")
		return
	}

	s.logger.Info("document generated",
		zap.Int64("project_id", projectID),
		zap.String("doc_type", docType),
		zap.Float64("customer_total", totals.CustomerTotal),
	)
	s.writeJSON(w, http.StatusCreated, payload)
}

func (s *server) documentParams(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	projectID, err := urlParamInt64(r, "projectID")
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return 0, "", false
	}

	docType := chi.URLParam(r, "docType")
	if !validDocType(docType) {
		s.writeJSONError(w, http.StatusBadRequest, "invalid doc type")
		return 0, "", false
	}

	exists, err := s.projectExists(projectID)
	if err != nil {
		s.logger.Error("failed to check project", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load project")
		return 0, "", false
	}
	if !exists {
		s.writeJSONError(w, http.StatusNotFound, "project not found")
		return 0, "", false
	}

	return projectID, docType, true
}

type documentRecord struct {
	ID         int64
	Milestones []pricing.Milestone
	ScopeItems []pricing.ScopeItem
}

func (s *server) loadDocument(projectID int64, docType string) (documentRecord, bool, error) {
	var record documentRecord
	err := s.db.QueryRow(`
		SELECT id FROM documents WHERE project_id = ? AND doc_type = ?
	`, projectID, docType).Scan(&record.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return documentRecord{}, false, nil
	}
	if err != nil {
		return documentRecord{}, false, fmt.Errorf("query document: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT local_id, name, milestone_type, cost, markup_percent, flat_price, subcontractor_fee_id, additional_expense_id, sequence
		FROM document_milestones
		WHERE document_id = ?
		ORDER BY sequence ASC
	`, record.ID)
	if err != nil {
		return documentRecord{}, false, fmt.Errorf("query document milestones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m pricing.Milestone
		var milestoneType string
		if err := rows.Scan(&m.ID, &m.Name, &milestoneType, &m.Cost, &m.MarkupPercent, &m.FlatPriceOverride, &m.SubcontractorFeeID, &m.AdditionalExpenseID, &m.Sequence); err != nil {
			return documentRecord{}, false, fmt.Errorf("scan document milestone: %w", err)
		}
		m.Type = pricing.MilestoneType(milestoneType)
		record.Milestones = append(record.Milestones, m)
	}
	if err := rows.Err(); err != nil {
		return documentRecord{}, false, fmt.Errorf("iterate document milestones: %w", err)
	}

	scopeRows, err := s.db.Query(`
		SELECT local_id, title, description, auto_generated, sequence
		FROM document_scope_items
		WHERE document_id = ?
		ORDER BY sequence ASC
	`, record.ID)
	if err != nil {
		return documentRecord{}, false, fmt.Errorf("query document scope items: %w", err)
	}
	defer scopeRows.Close()

	for scopeRows.Next() {
		var it pricing.ScopeItem
		if err := scopeRows.Scan(&it.ID, &it.Title, &it.Description, &it.AutoGenerated, &it.Sequence); err != nil {
			return documentRecord{}, false, fmt.Errorf("scan document scope item: %w", err)
		}
		record.ScopeItems = append(record.ScopeItems, it)
	}
	if err := scopeRows.Err(); err != nil {
		return documentRecord{}, false, fmt.Errorf("iterate document scope items: %w", err)
	}

	return record, true, nil
}

func (s *server) saveDocument(projectID int64, docType string, milestones []pricing.Milestone, scopeItems []pricing.ScopeItem, settings pricing.Config) error {
	feeBase := pricing.FeeBase(milestones)
	customerTotal := 0.0
	for _, m := range milestones {
		customerTotal += pricing.ResolvePrice(m, feeBase, settings)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}

	var documentID int64
	err = tx.QueryRow(`
		INSERT INTO documents (project_id, doc_type, customer_price, saved_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(project_id, doc_type) DO UPDATE SET
			customer_price = excluded.customer_price,
			saved_at = CURRENT_TIMESTAMP
		RETURNING id
	`, projectID, docType, customerTotal).Scan(&documentID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert document: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM document_milestones WHERE document_id = ?`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear document milestones: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM document_scope_items WHERE document_id = ?`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear document scope items: %w", err)
	}

	for _, m := range milestones {
		if _, err := tx.Exec(`
			INSERT INTO document_milestones (
				document_id, local_id, name, milestone_type, cost,
				markup_percent, flat_price, customer_price,
				subcontractor_fee_id, additional_expense_id, sequence
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			documentID, m.ID, m.Name, string(m.Type), m.Cost,
			m.MarkupPercent, m.FlatPriceOverride, pricing.ResolvePrice(m, feeBase, settings),
			m.SubcontractorFeeID, m.AdditionalExpenseID, m.Sequence,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert document milestone: %w", err)
		}
	}

	for _, it := range scopeItems {
		if _, err := tx.Exec(`
			INSERT INTO document_scope_items (document_id, local_id, title, description, auto_generated, sequence)
			VALUES (?, ?, ?, ?, ?, ?)
		`, documentID, it.ID, it.Title, it.Description, it.AutoGenerated, it.Sequence); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert document scope item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}

	return nil
}

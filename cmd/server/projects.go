package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Construvia/obras/internal/pricing"
)

type projectListItem struct {
	ID        int64
	Name      string
	Client    string
	CreatedAt string
}

type projectsViewData struct {
	baseViewData
	Query    string
	Projects []projectListItem
}

type expenseRow struct {
	ID       int64
	Category string
	Name     string
	Quantity float64
	Unit     string
	Expected *float64
	Actual   *float64
}

type expensesViewData struct {
	baseViewData
	ProjectID int64
	Expenses  []expenseRow
	TotalCost float64
}

func (s *server) handleProjectsList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	projects, err := s.listProjects(query)
	if err != nil {
		http.Error(w, "failed to load projects", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, "projects.html", projectsViewData{
		baseViewData: baseViewData{
			ErrorMessage:   r.URL.Query().Get("error"),
			SuccessMessage: r.URL.Query().Get("success"),
		},
		Query:    query,
		Projects: projects,
	})
}

func (s *server) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	client := strings.TrimSpace(r.FormValue("client"))
	notes := strings.TrimSpace(r.FormValue("notes"))
	if name == "" {
		http.Redirect(w, r, "/projects?error=name+es+requerido", http.StatusSeeOther)
		return
	}

	_, err := s.db.Exec(`
		INSERT INTO projects (name, client, notes)
		VALUES (?, ?, ?)
	`, name, client, notes)
	if err != nil {
		http.Error(w, "failed to create project", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/projects?success=Proyecto+creado+correctamente", http.StatusSeeOther)
}

func (s *server) handleExpensesForm(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamInt64(r, "projectID")
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	rows, err := s.listProjectExpenses(projectID)
	if err != nil {
		http.Error(w, "failed to load expenses", http.StatusInternalServerError)
		return
	}

	expenses := expensesFromRows(rows)
	summary := pricing.AggregateCosts(expenses)

	s.renderTemplate(w, "expenses.html", expensesViewData{
		baseViewData: baseViewData{
			ErrorMessage:   r.URL.Query().Get("error"),
			SuccessMessage: r.URL.Query().Get("success"),
		},
		ProjectID: projectID,
		Expenses:  rows,
		TotalCost: summary.Total,
	})
}

func (s *server) handleExpenseCreate(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamInt64(r, "projectID")
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	row, validationErr := parseExpenseForm(r)
	if validationErr != nil {
		http.Redirect(w, r, expensesPath(projectID)+"?error="+url.QueryEscape(validationErr.Error()), http.StatusSeeOther)
		return
	}

	_, err = s.db.Exec(`
		INSERT INTO project_expenses (project_id, category, name, quantity, unit, expected_value, actual_value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, projectID, row.Category, row.Name, row.Quantity, row.Unit, row.Expected, row.Actual)
	if err != nil {
		http.Error(w, "failed to create expense", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, expensesPath(projectID)+"?success=Gasto+creado+correctamente", http.StatusSeeOther)
}

func (s *server) handleExpenseUpdate(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamInt64(r, "projectID")
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}
	expenseID, err := urlParamInt64(r, "expenseID")
	if err != nil {
		http.Error(w, "invalid expense id", http.StatusBadRequest)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	row, validationErr := parseExpenseForm(r)
	if validationErr != nil {
		http.Redirect(w, r, expensesPath(projectID)+"?error="+url.QueryEscape(validationErr.Error()), http.StatusSeeOther)
		return
	}

	result, err := s.db.Exec(`
		UPDATE project_expenses
		SET
			category = ?,
			name = ?,
			quantity = ?,
			unit = ?,
			expected_value = ?,
			actual_value = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND project_id = ?
	`, row.Category, row.Name, row.Quantity, row.Unit, row.Expected, row.Actual, expenseID, projectID)
	if err != nil {
		http.Error(w, "failed to update expense", http.StatusInternalServerError)
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		http.Error(w, "failed to update expense", http.StatusInternalServerError)
		return
	}
	if affected == 0 {
		http.NotFound(w, r)
		return
	}

	http.Redirect(w, r, expensesPath(projectID)+"?success=Gasto+actualizado+correctamente", http.StatusSeeOther)
}

func expensesPath(projectID int64) string {
	return "/projects/" + strconv.FormatInt(projectID, 10) + "/expenses"
}

func parseExpenseForm(r *http.Request) (expenseRow, error) {
	row := expenseRow{
		Category: strings.TrimSpace(r.FormValue("category")),
		Name:     strings.TrimSpace(r.FormValue("name")),
		Unit:     strings.TrimSpace(r.FormValue("unit")),
	}

	switch pricing.Category(row.Category) {
	case pricing.CategorySubcontractorFee, pricing.CategoryEquipment, pricing.CategoryMaterial, pricing.CategoryAdditional:
	default:
		return row, fmt.Errorf("category no es válida")
	}
	if row.Name == "" {
		return row, fmt.Errorf("name es requerido")
	}

	// Numeric expense fields are engine input: malformed values degrade to 0
	// instead of failing the request.
	row.Quantity = coerceFloat(r.FormValue("quantity"))
	row.Expected = coerceOptionalFloat(r.FormValue("expected_value"))
	row.Actual = coerceOptionalFloat(r.FormValue("actual_value"))

	return row, nil
}

// coerceFloat parses a numeric form value, degrading malformed input to 0.
func coerceFloat(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return value
}

// coerceOptionalFloat keeps the absent/present distinction: an empty field is
// nil, a malformed one degrades to 0.
func coerceOptionalFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value := coerceFloat(raw)
	return &value
}

func (s *server) listProjects(query string) ([]projectListItem, error) {
	search := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT id, name, COALESCE(client, ''), created_at
		FROM projects
		WHERE (? = '' OR name LIKE ? OR COALESCE(client, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]projectListItem, 0)
	for rows.Next() {
		var item projectListItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Client, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

func (s *server) listProjectExpenses(projectID int64) ([]expenseRow, error) {
	rows, err := s.db.Query(`
		SELECT id, category, name, quantity, COALESCE(unit, ''), expected_value, actual_value
		FROM project_expenses
		WHERE project_id = ?
		ORDER BY id ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query project expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]expenseRow, 0)
	for rows.Next() {
		var row expenseRow
		if err := rows.Scan(&row.ID, &row.Category, &row.Name, &row.Quantity, &row.Unit, &row.Expected, &row.Actual); err != nil {
			return nil, fmt.Errorf("scan project expense: %w", err)
		}
		expenses = append(expenses, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project expenses: %w", err)
	}

	return expenses, nil
}

// expensesFromRows regroups flat expense rows into the engine's categorized
// input collections.
func expensesFromRows(rows []expenseRow) pricing.Expenses {
	var expenses pricing.Expenses
	for _, row := range rows {
		item := pricing.ExpenseLineItem{
			ID:       row.ID,
			Name:     row.Name,
			Quantity: row.Quantity,
			Unit:     row.Unit,
			Expected: row.Expected,
			Actual:   row.Actual,
		}
		switch pricing.Category(row.Category) {
		case pricing.CategorySubcontractorFee:
			expenses.SubcontractorFees = append(expenses.SubcontractorFees, item)
		case pricing.CategoryEquipment:
			expenses.Equipment = append(expenses.Equipment, item)
		case pricing.CategoryMaterial:
			expenses.Materials = append(expenses.Materials, item)
		case pricing.CategoryAdditional:
			expenses.Additional = append(expenses.Additional, item)
		}
	}
	return expenses
}

func (s *server) getProjectExpenses(projectID int64) (pricing.Expenses, error) {
	rows, err := s.listProjectExpenses(projectID)
	if err != nil {
		return pricing.Expenses{}, err
	}
	return expensesFromRows(rows), nil
}

func (s *server) projectExists(projectID int64) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)`, projectID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check project existence: %w", err)
	}
	return exists, nil
}

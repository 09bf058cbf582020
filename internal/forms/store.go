package forms

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/formmaster/pro/internal/database"
	"github.com/formmaster/pro/internal/errs"
)

// templatesTable is where layouts live. The cards structure is stored as a
// JSON document in the layout column; everything else is flat.
const templatesTable = "form_templates"

var templateColumns = []string{"id", "name", "description", "layout", "created_at", "updated_at"}

// Store persists form templates in the relational database.
type Store struct {
	db database.DB
}

// NewStore creates a template store over db.
func NewStore(db database.DB) *Store {
	return &Store{db: db}
}

// Get fetches one template by ID.
func (s *Store) Get(ctx context.Context, id string) (*Template, error) {
	if id == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "template id is required")
	}

	sql, args, err := database.Select(templatesTable, s.db.Dialect()).
		Columns(templateColumns...).
		Where("id", "=", id).
		Build()
	if err != nil {
		return nil, err
	}

	row, err := s.db.QueryRow(ctx, sql, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Kind(err), "fetching form template "+id, err)
	}

	rec, err := database.ScanRow(row, templateColumns)
	if err != nil {
		if errs.IsNotFound(err) || errs.IsQueryFailed(err) {
			// pgx surfaces "no rows" at Scan time.
			return nil, errs.Wrap(errs.ErrKindNotFound, "form template "+id+" not found", err)
		}
		return nil, err
	}

	return templateFromRow(rec)
}

// List returns all templates, newest first.
func (s *Store) List(ctx context.Context) ([]Template, error) {
	sql, args, err := database.Select(templatesTable, s.db.Dialect()).
		Columns(templateColumns...).
		OrderBy("created_at", database.Desc).
		Build()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Kind(err), "listing form templates", err)
	}

	recs, err := database.ScanRows(rows)
	if err != nil {
		return nil, err
	}

	templates := make([]Template, 0, len(recs))
	for _, rec := range recs {
		tpl, err := templateFromRow(rec)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tpl)
	}
	return templates, nil
}

// Create inserts a new template and returns it with its generated ID.
func (s *Store) Create(ctx context.Context, tpl Template) (*Template, error) {
	if tpl.Name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "template name is required")
	}

	layout, err := json.Marshal(tpl.Cards)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "template layout is not serialisable", err)
	}

	now := time.Now().UTC()
	tpl.ID = uuid.NewString()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	sql, args, err := database.Insert(templatesTable, s.db.Dialect()).
		Set("id", tpl.ID).
		Set("name", tpl.Name).
		Set("description", tpl.Description).
		Set("layout", string(layout)).
		Set("created_at", tpl.CreatedAt).
		Set("updated_at", tpl.UpdatedAt).
		Build()
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return nil, errs.Wrap(errs.Kind(err), "creating form template", err)
	}
	return &tpl, nil
}

// Update replaces a template's name, description, and layout.
func (s *Store) Update(ctx context.Context, tpl Template) (*Template, error) {
	if tpl.ID == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "template id is required")
	}

	layout, err := json.Marshal(tpl.Cards)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "template layout is not serialisable", err)
	}

	tpl.UpdatedAt = time.Now().UTC()

	sql, args, err := database.Update(templatesTable, s.db.Dialect()).
		Set("name", tpl.Name).
		Set("description", tpl.Description).
		Set("layout", string(layout)).
		Set("updated_at", tpl.UpdatedAt).
		Where("id", "=", tpl.ID).
		Build()
	if err != nil {
		return nil, err
	}

	n, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Kind(err), "updating form template "+tpl.ID, err)
	}
	if n == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "form template %s not found", tpl.ID)
	}
	return &tpl, nil
}

// templateFromRow rebuilds a Template from a scanned row map.
func templateFromRow(rec map[string]any) (*Template, error) {
	tpl := &Template{
		ID:          asString(rec["id"]),
		Name:        asString(rec["name"]),
		Description: asString(rec["description"]),
	}

	if t, ok := rec["created_at"].(time.Time); ok {
		tpl.CreatedAt = t
	}
	if t, ok := rec["updated_at"].(time.Time); ok {
		tpl.UpdatedAt = t
	}

	layout := asString(rec["layout"])
	if layout != "" {
		if err := json.Unmarshal([]byte(layout), &tpl.Cards); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "template "+tpl.ID+" has a corrupt layout", err)
		}
	}
	return tpl, nil
}

// asString renders scanned values that may arrive as string or []byte
// depending on the driver.
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

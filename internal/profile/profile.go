// Package profile loads and saves client profile data as an explicit flat
// map keyed by "table.column". Which keys exist is declared by the field
// catalog — values are never probed out of loosely shaped objects.
package profile

import (
	"context"
	"strings"

	"github.com/formmaster/pro/internal/database"
	"github.com/formmaster/pro/internal/errs"
	"github.com/formmaster/pro/internal/fields"
	"github.com/formmaster/pro/internal/logger"
)

// clientKeyColumn links every profile-bearing table to its client.
const clientKeyColumn = "client_id"

// Catalog is the slice of the field catalog the profile service needs.
type Catalog interface {
	ListAllFields(ctx context.Context) ([]fields.Field, error)
	GroupByTable(ctx context.Context) ([]fields.TableGroup, error)
}

// Service reads and writes client profile data across all catalogued tables.
type Service struct {
	db      database.DB
	catalog Catalog
	log     *logger.Logger
}

// NewService creates a profile service.
func NewService(db database.DB, catalog Catalog, log *logger.Logger) *Service {
	if log == nil {
		log = logger.New(nil)
	}
	return &Service{db: db, catalog: catalog, log: log}
}

// Load returns the client's data as a flat "table.column" map. Only columns
// declared by the field catalog are read; a table whose row cannot be
// fetched contributes nothing (logged, not fatal), matching the catalog's
// partial-failure posture.
func (s *Service) Load(ctx context.Context, clientID string) (map[string]any, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "client id is required")
	}

	groups, err := s.catalog.GroupByTable(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.Kind(err), "loading profile for client "+clientID, err)
	}

	data := make(map[string]any)
	for _, group := range groups {
		if len(group.Fields) == 0 {
			continue
		}

		columns := make([]string, len(group.Fields))
		for i, f := range group.Fields {
			columns[i] = f.ColumnName
		}

		row, err := s.fetchRow(ctx, group.Table, columns, clientID)
		if err != nil {
			if !errs.IsNotFound(err) {
				s.log.ErrorWith("skipping table while loading profile", err, map[string]any{
					"table":  group.Table,
					"client": clientID,
				})
			}
			continue
		}

		for col, val := range row {
			if val != nil {
				data[group.Table+"."+col] = val
			}
		}
	}
	return data, nil
}

// Save validates data against the declared catalog and writes each table's
// values in one UPDATE keyed by client_id. Unknown keys fail the whole call
// before any write happens.
func (s *Service) Save(ctx context.Context, clientID string, data map[string]any) error {
	if strings.TrimSpace(clientID) == "" {
		return errs.New(errs.ErrKindInvalidInput, "client id is required")
	}
	if len(data) == 0 {
		return nil
	}

	declared, err := s.declaredKeys(ctx)
	if err != nil {
		return errs.Wrap(errs.Kind(err), "validating profile data for client "+clientID, err)
	}

	byTable := make(map[string]map[string]any)
	for key, val := range data {
		if !declared[key] {
			return errs.Newf(errs.ErrKindInvalidInput, "unknown field %q in profile data", key)
		}
		table, column, _ := strings.Cut(key, ".")
		if byTable[table] == nil {
			byTable[table] = make(map[string]any)
		}
		byTable[table][column] = val
	}

	for table, values := range byTable {
		builder := database.Update(table, s.db.Dialect())
		for column, val := range values {
			builder.Set(column, val)
		}
		sql, args, err := builder.Where(clientKeyColumn, "=", clientID).Build()
		if err != nil {
			return err
		}

		if _, err := s.db.Exec(ctx, sql, args...); err != nil {
			return errs.Wrap(errs.Kind(err), "saving profile data to "+table, err)
		}
	}
	return nil
}

// declaredKeys returns the set of valid "table.column" keys per the catalog.
func (s *Service) declaredKeys(ctx context.Context) (map[string]bool, error) {
	all, err := s.catalog.ListAllFields(ctx)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(all))
	for _, f := range all {
		keys[f.ID] = true
	}
	return keys, nil
}

// fetchRow reads the client's row from one table.
func (s *Service) fetchRow(ctx context.Context, table string, columns []string, clientID string) (map[string]any, error) {
	sql, args, err := database.Select(table, s.db.Dialect()).
		Columns(columns...).
		Where(clientKeyColumn, "=", clientID).
		Limit(1).
		Build()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	recs, err := database.ScanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "no %s row for client %s", table, clientID)
	}
	return recs[0], nil
}

package fields

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/formmaster/pro/internal/errs"
	"github.com/formmaster/pro/internal/logger"
	"github.com/formmaster/pro/internal/schema"
)

// Catalog is the user-facing service over the full set of available fields.
// It orchestrates discovery, normalization, and caching. Besides the cache
// it is stateless between calls and safe for concurrent use.
type Catalog struct {
	discovery schema.Discovery
	cache     *cache
	log       *logger.Logger
	collator  *collate.Collator
	now       func() time.Time
}

// NewCatalog creates a Catalog over the given discovery service with the
// default cache TTL.
func NewCatalog(d schema.Discovery, log *logger.Logger) *Catalog {
	return newCatalog(d, log, DefaultCacheTTL, time.Now)
}

// NewCatalogWithTTL is NewCatalog with an explicit cache validity window.
func NewCatalogWithTTL(d schema.Discovery, log *logger.Logger, ttl time.Duration) *Catalog {
	return newCatalog(d, log, ttl, time.Now)
}

func newCatalog(d schema.Discovery, log *logger.Logger, ttl time.Duration, now func() time.Time) *Catalog {
	if log == nil {
		log = logger.New(nil)
	}
	return &Catalog{
		discovery: d,
		cache:     newCache(ttl, now),
		log:       log,
		collator:  collate.New(language.English, collate.IgnoreCase),
		now:       now,
	}
}

// ListAllFields returns every eligible field across all discoverable
// tables, in table discovery order then column order. A table that fails to
// normalize contributes zero fields; the failure is logged, never fatal to
// the batch.
func (c *Catalog) ListAllFields(ctx context.Context) ([]Field, error) {
	if cached, ok := c.cache.get(allFieldsKey); ok {
		return cached, nil
	}

	tables, err := c.discovery.ListTables(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "listing tables for field discovery", err)
	}

	all := make([]Field, 0)
	for _, table := range tables {
		fields, err := c.normalizeTable(ctx, table)
		if err != nil {
			c.log.ErrorWith("skipping table during field discovery", err, map[string]any{
				"table": table,
			})
			continue
		}
		c.cache.set(table, fields)
		all = append(all, fields...)
	}

	c.cache.set(allFieldsKey, all)
	return all, nil
}

// ListFieldsForTable returns the eligible fields of one table. A missing or
// unreadable table yields an empty list, not an error — the caller asked
// "what is available", and the answer may be "nothing".
func (c *Catalog) ListFieldsForTable(ctx context.Context, table string) ([]Field, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "table name is required")
	}

	if cached, ok := c.cache.get(table); ok {
		return cached, nil
	}

	fields, err := c.normalizeTable(ctx, table)
	if err != nil {
		if !errs.IsNotFound(err) {
			c.log.ErrorWith("field listing failed, returning empty set", err, map[string]any{
				"table": table,
			})
		}
		return []Field{}, nil
	}

	c.cache.set(table, fields)
	return fields, nil
}

// FieldMetadata returns the metadata of one specific field. Unlike the
// listing paths this is strict: the caller asserted the field exists, so a
// missing table or column is an explicit error.
func (c *Catalog) FieldMetadata(ctx context.Context, table, column string) (*Metadata, error) {
	table = strings.TrimSpace(table)
	column = strings.TrimSpace(column)
	if table == "" || column == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "table and column names are required")
	}

	fields, err := c.normalizeTable(ctx, table)
	if err != nil {
		return nil, errs.Wrap(errs.Kind(err), "looking up metadata for "+table+"."+column, err)
	}

	for i := range fields {
		if fields[i].ColumnName == column {
			meta := fields[i].Metadata
			return &meta, nil
		}
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "column %q not found in table %q", column, table)
}

// GroupByTable returns all fields grouped per table, in discovery order.
// A table whose fields cannot be read contributes an empty group rather
// than being dropped, so callers always see every table key.
func (c *Catalog) GroupByTable(ctx context.Context) ([]TableGroup, error) {
	tables, err := c.discovery.ListTables(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "listing tables for grouping", err)
	}

	groups := make([]TableGroup, 0, len(tables))
	for _, table := range tables {
		fields, ok := c.cache.get(table)
		if !ok {
			fields, err = c.normalizeTable(ctx, table)
			if err != nil {
				c.log.ErrorWith("substituting empty field list for table", err, map[string]any{
					"table": table,
				})
				fields = []Field{}
			} else {
				c.cache.set(table, fields)
			}
		}
		groups = append(groups, TableGroup{Table: table, Fields: fields})
	}
	return groups, nil
}

// GroupByCategory buckets all fields by category. Output order is the
// fixed sequence Personal, Contact, Identity, Educational, System, Other
// (for categories present), then any extra categories in first-seen order.
// Fields inside a bucket are sorted by display name with locale-aware
// comparison.
func (c *Catalog) GroupByCategory(ctx context.Context) ([]CategoryGroup, error) {
	all, err := c.ListAllFields(ctx)
	if err != nil {
		return nil, err
	}

	buckets := make(map[Category][]Field)
	var extras []Category
	known := make(map[Category]bool, len(categoryOrder))
	for _, cat := range categoryOrder {
		known[cat] = true
	}

	for _, f := range all {
		cat := f.Metadata.Category
		if _, seen := buckets[cat]; !seen && !known[cat] {
			extras = append(extras, cat)
		}
		buckets[cat] = append(buckets[cat], f)
	}

	order := append(append([]Category{}, categoryOrder...), extras...)

	groups := make([]CategoryGroup, 0, len(buckets))
	for _, cat := range order {
		fields, ok := buckets[cat]
		if !ok {
			continue
		}
		sort.SliceStable(fields, func(i, j int) bool {
			return c.collator.CompareString(fields[i].DisplayName, fields[j].DisplayName) < 0
		})
		groups = append(groups, CategoryGroup{Category: cat, Fields: fields})
	}
	return groups, nil
}

// Search returns fields matching query with a case-insensitive substring
// test against column name, display name, table name, category, and
// description. An empty or whitespace query returns an empty result —
// blank input must not act as "select all". When tableFilter is non-blank,
// only that table's fields are searched; a blank filter searches every
// table.
func (c *Catalog) Search(ctx context.Context, query, tableFilter string) ([]Field, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Field{}, nil
	}
	tableFilter = strings.TrimSpace(tableFilter)

	var scope []Field
	var err error
	if tableFilter != "" {
		scope, err = c.ListFieldsForTable(ctx, tableFilter)
	} else {
		scope, err = c.ListAllFields(ctx)
	}
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	matches := make([]Field, 0)
	for _, f := range scope {
		if strings.Contains(strings.ToLower(f.ColumnName), q) ||
			strings.Contains(strings.ToLower(f.DisplayName), q) ||
			strings.Contains(strings.ToLower(f.TableName), q) ||
			strings.Contains(strings.ToLower(string(f.Metadata.Category)), q) ||
			strings.Contains(strings.ToLower(f.Metadata.Description), q) {
			matches = append(matches, f)
		}
	}
	return matches, nil
}

// InvalidateCache drops every cached entry. The next call of any listing
// operation re-queries the discovery service.
func (c *Catalog) InvalidateCache() {
	c.cache.invalidate()
}

// normalizeTable reads one table's schema and normalizes its eligible
// columns. A column that fails to normalize is logged and skipped; the rest
// of the table still goes through.
func (c *Catalog) normalizeTable(ctx context.Context, table string) ([]Field, error) {
	ts, err := c.discovery.GetTableSchema(ctx, table)
	if err != nil {
		return nil, err
	}

	now := c.now()
	fields := make([]Field, 0, len(ts.Columns))
	for _, col := range ts.Columns {
		if !IsEligibleForFormBuilder(col.Name) {
			continue
		}
		f, err := Normalize(col, ts, now)
		if err != nil {
			c.log.WarnWith("skipping column that failed to normalize", map[string]any{
				"table":  table,
				"column": col.Name,
				"error":  err.Error(),
			})
			continue
		}
		fields = append(fields, f)
	}
	return fields, nil
}

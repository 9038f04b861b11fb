package gdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// DomainType distinguishes coded value domains from range domains.
type DomainType string

const (
	CodedDomain DomainType = "CODED"
	RangeDomain DomainType = "RANGE"
)

// CodedValue is one entry of a coded value domain.
type CodedValue struct {
	Code        string `db:"code"`
	Description string `db:"description"`
}

// Domain is a named constraint on field values, scoped to one container.
type Domain struct {
	Name        string
	Description string
	FieldType   FieldType
	Type        DomainType
	Codes       []CodedValue    // coded domains, in creation order
	Min, Max    decimal.Decimal // range domains
}

const (
	domainsTable     = "domains"
	codedValuesTable = "coded_values"
)

type domainRow struct {
	Name        string              `db:"name"`
	Description string              `db:"description"`
	FieldType   string              `db:"field_type"`
	DomainType  string              `db:"domain_type"`
	RangeMin    decimal.NullDecimal `db:"range_min"`
	RangeMax    decimal.NullDecimal `db:"range_max"`
}

// catalog stores domains in a SQLite database inside the container.
type catalog struct {
	conn *sql.DB
}

func openCatalog(path string) (*catalog, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open catalog: %v", ErrProvider, err)
	}
	// One writer; the container is owned by a single process.
	conn.SetMaxOpenConns(1)

	c := &catalog{conn: conn}
	if err := c.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: migrate catalog: %v", ErrProvider, err)
	}
	return c, nil
}

func (c *catalog) close() error {
	return c.conn.Close()
}

func (c *catalog) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS domains (
			name TEXT PRIMARY KEY COLLATE NOCASE,
			description TEXT NOT NULL DEFAULT '',
			field_type TEXT NOT NULL,
			domain_type TEXT NOT NULL,
			range_min TEXT,
			range_max TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS coded_values (
			domain_name TEXT NOT NULL REFERENCES domains(name) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			code TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (domain_name, code)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_coded_values_seq ON coded_values(domain_name, seq)`,
	}

	for _, m := range migrations {
		if _, err := c.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *catalog) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

func (c *catalog) insertDomain(ctx context.Context, tx *sql.Tx, d Domain) error {
	q := c.builder().
		Insert(domainsTable).
		Columns("name", "description", "field_type", "domain_type", "range_min", "range_max", "created_at")

	if d.Type == RangeDomain {
		q = q.Values(d.Name, d.Description, d.FieldType.String(), string(d.Type), d.Min, d.Max, time.Now().UTC())
	} else {
		q = q.Values(d.Name, d.Description, d.FieldType.String(), string(d.Type), nil, nil, time.Now().UTC())
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	if len(d.Codes) == 0 {
		return nil
	}
	values := c.builder().Insert(codedValuesTable).Columns("domain_name", "seq", "code", "description")
	for i, cv := range d.Codes {
		values = values.Values(d.Name, i, cv.Code, cv.Description)
	}
	query, args, err = values.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (c *catalog) create(ctx context.Context, d Domain) error {
	if _, err := c.get(ctx, d.Name); err == nil {
		return fmt.Errorf("%w: domain %q", ErrExists, d.Name)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrProvider, err)
	}
	if err := c.insertDomain(ctx, tx, d); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: create domain %q: %v", ErrProvider, d.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrProvider, err)
	}
	return nil
}

func (c *catalog) get(ctx context.Context, name string) (Domain, error) {
	query, args, err := c.builder().
		Select("name", "description", "field_type", "domain_type", "range_min", "range_max").
		From(domainsTable).
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return Domain{}, fmt.Errorf("build query: %w", err)
	}

	var row domainRow
	if err := sqlscan.Get(ctx, c.conn, &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return Domain{}, fmt.Errorf("%w: domain %q", ErrNotFound, name)
		}
		return Domain{}, fmt.Errorf("%w: get domain %q: %v", ErrProvider, name, err)
	}

	d, err := row.domain()
	if err != nil {
		return Domain{}, err
	}
	if d.Type == CodedDomain {
		if d.Codes, err = c.codes(ctx, row.Name); err != nil {
			return Domain{}, err
		}
	}
	return d, nil
}

func (c *catalog) codes(ctx context.Context, domain string) ([]CodedValue, error) {
	query, args, err := c.builder().
		Select("code", "description").
		From(codedValuesTable).
		Where(squirrel.Eq{"domain_name": domain}).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var codes []CodedValue
	if err := sqlscan.Select(ctx, c.conn, &codes, query, args...); err != nil {
		return nil, fmt.Errorf("%w: coded values of %q: %v", ErrProvider, domain, err)
	}
	return codes, nil
}

func (c *catalog) list(ctx context.Context) ([]Domain, error) {
	query, args, err := c.builder().
		Select("name", "description", "field_type", "domain_type", "range_min", "range_max").
		From(domainsTable).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []domainRow
	if err := sqlscan.Select(ctx, c.conn, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: list domains: %v", ErrProvider, err)
	}

	domains := make([]Domain, 0, len(rows))
	for _, row := range rows {
		d, err := row.domain()
		if err != nil {
			return nil, err
		}
		if d.Type == CodedDomain {
			if d.Codes, err = c.codes(ctx, row.Name); err != nil {
				return nil, err
			}
		}
		domains = append(domains, d)
	}
	return domains, nil
}

func (r domainRow) domain() (Domain, error) {
	ft, err := ParseFieldType(r.FieldType)
	if err != nil {
		return Domain{}, fmt.Errorf("%w: domain %q: %v", ErrProvider, r.Name, err)
	}
	d := Domain{
		Name:        r.Name,
		Description: r.Description,
		FieldType:   ft,
		Type:        DomainType(r.DomainType),
	}
	if r.RangeMin.Valid {
		d.Min = r.RangeMin.Decimal
	}
	if r.RangeMax.Valid {
		d.Max = r.RangeMax.Decimal
	}
	return d, nil
}

// domainFieldTypes are the field types a domain can constrain.
var domainFieldTypes = map[FieldType]bool{
	FieldTypeText:   true,
	FieldTypeFloat:  true,
	FieldTypeDouble: true,
	FieldTypeShort:  true,
	FieldTypeLong:   true,
	FieldTypeDate:   true,
}

// CreateCodedDomain adds a coded value domain to the container catalog.
func (w *Workspace) CreateCodedDomain(ctx context.Context, name, description string, ft FieldType, codes []CodedValue) error {
	if !validName(name) {
		return fmt.Errorf("%w: domain %q", ErrInvalidName, name)
	}
	if !domainFieldTypes[ft] {
		return fmt.Errorf("%w: %s domain %q", ErrDomainMismatch, ft, name)
	}
	if len(codes) == 0 {
		return fmt.Errorf("%w: coded domain %q has no values", ErrInvalidName, name)
	}

	c, err := w.domains()
	if err != nil {
		return err
	}
	return c.create(ctx, Domain{
		Name:        name,
		Description: description,
		FieldType:   ft,
		Type:        CodedDomain,
		Codes:       codes,
	})
}

// CreateRangeDomain adds a range domain to the container catalog. DATE
// range bounds are Unix seconds, see DateBound.
func (w *Workspace) CreateRangeDomain(ctx context.Context, name, description string, ft FieldType, min, max decimal.Decimal) error {
	if !validName(name) {
		return fmt.Errorf("%w: domain %q", ErrInvalidName, name)
	}
	if !domainFieldTypes[ft] || ft == FieldTypeText {
		return fmt.Errorf("%w: %s range domain %q", ErrDomainMismatch, ft, name)
	}
	if min.GreaterThan(max) {
		return fmt.Errorf("%w: range domain %q has min %s > max %s", ErrInvalidName, name, min, max)
	}

	c, err := w.domains()
	if err != nil {
		return err
	}
	return c.create(ctx, Domain{
		Name:        name,
		Description: description,
		FieldType:   ft,
		Type:        RangeDomain,
		Min:         min,
		Max:         max,
	})
}

// Domain returns the named domain.
func (w *Workspace) Domain(ctx context.Context, name string) (Domain, error) {
	c, err := w.domains()
	if err != nil {
		return Domain{}, err
	}
	return c.get(ctx, name)
}

// Domains returns every domain in the container, sorted by name.
func (w *Workspace) Domains(ctx context.Context) ([]Domain, error) {
	c, err := w.domains()
	if err != nil {
		return nil, err
	}
	return c.list(ctx)
}

// DateBound converts a date to a range domain bound.
func DateBound(t time.Time) decimal.Decimal {
	return decimal.NewFromInt(t.Unix())
}

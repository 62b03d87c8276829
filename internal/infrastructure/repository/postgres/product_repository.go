package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/harborline/catalog-assistant/internal/core/domain"
)

// ProductRepository reads the product catalog. The catalog tables and the
// match_products similarity function are owned by the ingestion pipeline;
// this service never writes to them.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const recordColumns = `id, product_code, name, category, specifications, description, applications, datasheet_filename`

func (r *ProductRepository) MatchCodes(ctx context.Context, codes []string, limit int) ([]domain.ProductRecord, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var clauses []string
	var args []any
	for _, code := range codes {
		args = append(args, "%"+code+"%")
		p := "$" + strconv.Itoa(len(args))
		clauses = append(clauses, fmt.Sprintf("(product_code ILIKE %s OR name ILIKE %s)", p, p))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT %s
FROM products
WHERE %s
ORDER BY product_code
LIMIT $%d
`, recordColumns, strings.Join(clauses, " OR "), len(args))

	return r.queryRecords(ctx, "match codes", query, args...)
}

func (r *ProductRepository) MatchTerms(ctx context.Context, terms []string, limit int) ([]domain.ProductRecord, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	var clauses []string
	var args []any
	for _, term := range terms {
		args = append(args, "%"+term+"%")
		p := "$" + strconv.Itoa(len(args))
		clauses = append(clauses, fmt.Sprintf("(name ILIKE %s OR category ILIKE %s OR description ILIKE %s OR applications ILIKE %s)", p, p, p, p))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT %s
FROM products
WHERE %s
ORDER BY product_code
LIMIT $%d
`, recordColumns, strings.Join(clauses, " OR "), len(args))

	return r.queryRecords(ctx, "match terms", query, args...)
}

func (r *ProductRepository) MatchVector(ctx context.Context, embedding []float32, limit int) ([]domain.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
SELECT %s, similarity
FROM match_products($1::vector, $2)
`, recordColumns)

	rows, err := r.db.QueryContext(ctx, query, vectorLiteral(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("match vector: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var res domain.SearchResult
		var specsRaw []byte
		var description, applications, datasheet sql.NullString
		err := rows.Scan(
			&res.ID, &res.ProductCode, &res.Name, &res.Category,
			&specsRaw, &description, &applications, &datasheet,
			&res.Similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan vector match: %w", err)
		}
		res.Description = description.String
		res.Applications = applications.String
		res.DatasheetFilename = datasheet.String
		if len(specsRaw) > 0 {
			if err := json.Unmarshal(specsRaw, &res.Specifications); err != nil {
				return nil, fmt.Errorf("unmarshal specifications: %w", err)
			}
		}
		res.MatchType = domain.MatchVector
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector matches: %w", err)
	}
	return results, nil
}

func (r *ProductRepository) FetchByCodes(ctx context.Context, codes []string) ([]domain.ProductRecord, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(codes))
	args := make([]any, len(codes))
	for i, code := range codes {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = strings.ToUpper(code)
	}

	query := fmt.Sprintf(`
SELECT %s
FROM products
WHERE UPPER(product_code) IN (%s)
`, recordColumns, strings.Join(placeholders, ","))

	return r.queryRecords(ctx, "fetch by codes", query, args...)
}

func (r *ProductRepository) ListRecords(ctx context.Context, limit int) ([]domain.ProductRecord, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM products
ORDER BY product_code
LIMIT $1
`, recordColumns)

	return r.queryRecords(ctx, "list records", query, limit)
}

const sampleCodeCount = 8

func (r *ProductRepository) CatalogStats(ctx context.Context, category string) (domain.CatalogStats, error) {
	var stats domain.CatalogStats

	countQuery := `SELECT COUNT(*) FROM products`
	var countArgs []any
	if category != "" {
		countQuery += ` WHERE category ILIKE $1`
		countArgs = append(countArgs, "%"+category+"%")
	}
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&stats.TotalProducts); err != nil {
		return domain.CatalogStats{}, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return domain.CatalogStats{}, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return domain.CatalogStats{}, fmt.Errorf("scan category: %w", err)
		}
		stats.Categories = append(stats.Categories, c)
	}
	if err := rows.Err(); err != nil {
		return domain.CatalogStats{}, fmt.Errorf("iterate categories: %w", err)
	}

	sampleQuery := `SELECT product_code FROM products`
	var sampleArgs []any
	if category != "" {
		sampleQuery += ` WHERE category ILIKE $1`
		sampleArgs = append(sampleArgs, "%"+category+"%")
	}
	sampleQuery += ` ORDER BY product_code LIMIT ` + strconv.Itoa(sampleCodeCount)
	sampleRows, err := r.db.QueryContext(ctx, sampleQuery, sampleArgs...)
	if err != nil {
		return domain.CatalogStats{}, fmt.Errorf("sample codes: %w", err)
	}
	defer sampleRows.Close()
	for sampleRows.Next() {
		var code string
		if err := sampleRows.Scan(&code); err != nil {
			return domain.CatalogStats{}, fmt.Errorf("scan sample code: %w", err)
		}
		stats.SampleCodes = append(stats.SampleCodes, code)
	}
	if err := sampleRows.Err(); err != nil {
		return domain.CatalogStats{}, fmt.Errorf("iterate sample codes: %w", err)
	}

	return stats, nil
}

func (r *ProductRepository) queryRecords(ctx context.Context, op, query string, args ...any) ([]domain.ProductRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var records []domain.ProductRecord
	for rows.Next() {
		var rec domain.ProductRecord
		var specsRaw []byte
		var description, applications, datasheet sql.NullString
		err := rows.Scan(
			&rec.ID, &rec.ProductCode, &rec.Name, &rec.Category,
			&specsRaw, &description, &applications, &datasheet,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan record: %w", op, err)
		}
		rec.Description = description.String
		rec.Applications = applications.String
		rec.DatasheetFilename = datasheet.String
		if len(specsRaw) > 0 {
			if err := json.Unmarshal(specsRaw, &rec.Specifications); err != nil {
				return nil, fmt.Errorf("%s: unmarshal specifications: %w", op, err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate records: %w", op, err)
	}
	return records, nil
}

// vectorLiteral renders an embedding in the pgvector input format.
func vectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

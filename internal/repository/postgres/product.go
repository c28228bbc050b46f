package postgres

import (
	"context"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/repository"
)

type productRepository struct {
	db querier
}

func NewProductRepository(db querier) repository.ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, size, price_per_unit, weight, available_count, created_on, updated_on`

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (name, size, price_per_unit, weight, available_count, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now().UTC()
	if err := r.db.QueryRowContext(ctx, query, p.Name, p.Size, p.PricePerUnit, p.Weight, p.AvailableCount, now, now).Scan(&p.ID); err != nil {
		return err
	}
	p.CreatedOn, p.UpdatedOn = now, now
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id int32) (*domain.Product, error) {
	p := &domain.Product{}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Size, &p.PricePerUnit, &p.Weight, &p.AvailableCount, &p.CreatedOn, &p.UpdatedOn)
	if err != nil {
		return nil, notFound(err, domain.ErrProductNotFound, id)
	}
	return p, nil
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Size, &p.PricePerUnit, &p.Weight, &p.AvailableCount, &p.CreatedOn, &p.UpdatedOn); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

package service

import (
	"context"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/repository"
)

type inventoryService struct {
	productRepo repository.ProductRepository
}

func NewInventoryService(productRepo repository.ProductRepository) InventoryService {
	return &inventoryService{productRepo: productRepo}
}

func (s *inventoryService) GetProduct(ctx context.Context, id int32) (*domain.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

func (s *inventoryService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.productRepo.List(ctx)
}

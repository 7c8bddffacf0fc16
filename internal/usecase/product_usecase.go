package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shop/internal/apperr"
	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// カタログの薄いCRUD。カート/チェックアウトはここを読み取り専用の
// 協力者として使う（価格の権威は常に呼び出し時点のカタログ）。
type ProductUsecase struct {
	productRepo repo.ProductRepository
}

func NewProductUsecase(productRepo repo.ProductRepository) *ProductUsecase {
	return &ProductUsecase{productRepo: productRepo}
}

type ProductResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	IsActive    bool   `json:"is_active"`
}

type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Total int64             `json:"total"`
}

type ListProductsInput struct {
	Page  int
	Limit int
}

type SaveProductInput struct {
	Name        string
	Description string
	Price       int64
	IsActive    bool
}

func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListResponse, error) {
	if in.Page < 1 {
		return ProductListResponse{}, apperr.Validation("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListResponse{}, apperr.Validation("invalid limit")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{Page: in.Page, Limit: in.Limit})
	if err != nil {
		return ProductListResponse{}, fmt.Errorf("list products: %w", err)
	}

	respItems := make([]ProductResponse, 0, len(items))
	for _, p := range items {
		respItems = append(respItems, toProductResponse(p))
	}
	return ProductListResponse{Items: respItems, Total: total}, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, id int64) (ProductResponse, error) {
	if id <= 0 {
		return ProductResponse{}, apperr.Validation("invalid id")
	}

	p, err := u.productRepo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductResponse{}, apperr.NotFound("product not found")
	}
	if err != nil {
		return ProductResponse{}, fmt.Errorf("find product: %w", err)
	}
	if !p.IsActive {
		return ProductResponse{}, apperr.NotFound("product not found")
	}

	return toProductResponse(p), nil
}

func (u *ProductUsecase) CreateProduct(ctx context.Context, userID int64, in SaveProductInput) (ProductResponse, error) {
	if userID <= 0 {
		return ProductResponse{}, apperr.Authorization("unauthorized")
	}
	if err := validateSaveProduct(in); err != nil {
		return ProductResponse{}, err
	}

	created, err := u.productRepo.Create(ctx, model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		IsActive:    in.IsActive,
	})
	if err != nil {
		return ProductResponse{}, fmt.Errorf("create product: %w", err)
	}

	return toProductResponse(created), nil
}

func (u *ProductUsecase) UpdateProduct(ctx context.Context, userID int64, id int64, in SaveProductInput) (ProductResponse, error) {
	if userID <= 0 {
		return ProductResponse{}, apperr.Authorization("unauthorized")
	}
	if id <= 0 {
		return ProductResponse{}, apperr.Validation("invalid id")
	}
	if err := validateSaveProduct(in); err != nil {
		return ProductResponse{}, err
	}

	err := u.productRepo.Update(ctx, model.Product{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		IsActive:    in.IsActive,
	})
	if errors.Is(err, repo.ErrNotFound) {
		return ProductResponse{}, apperr.NotFound("product not found")
	}
	if err != nil {
		return ProductResponse{}, fmt.Errorf("update product: %w", err)
	}

	p, err := u.productRepo.FindByID(ctx, id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("find product: %w", err)
	}
	return toProductResponse(p), nil
}

func (u *ProductUsecase) DeleteProduct(ctx context.Context, userID int64, id int64) error {
	if userID <= 0 {
		return apperr.Authorization("unauthorized")
	}
	if id <= 0 {
		return apperr.Validation("invalid id")
	}

	err := u.productRepo.SoftDelete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound("product not found")
	}
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func validateSaveProduct(in SaveProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("name is required")
	}
	if in.Price <= 0 {
		return apperr.Validation("invalid price")
	}
	return nil
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		IsActive:    p.IsActive,
	}
}

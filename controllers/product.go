package controllers

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"masivo-tech/logger"
	"masivo-tech/models"
	"masivo-tech/store"
	"masivo-tech/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	relatedLimit      = 4
	autocompleteLimit = 5
	autocompleteMin   = 2
)

// ProductController handles catalog requests
type ProductController struct {
	Products store.ProductRepository
	Audit    store.AuditLog
}

// NewProductController creates a new ProductController
func NewProductController(products store.ProductRepository, audit store.AuditLog) *ProductController {
	return &ProductController{Products: products, Audit: audit}
}

type productListResponse struct {
	Products         []models.ProductView    `json:"products"`
	Count            int                     `json:"count"`
	Categories       []models.CategoryChoice `json:"categories"`
	SelectedCategory string                  `json:"selected_category"`
	SearchQuery      string                  `json:"search_query"`
	SortBy           string                  `json:"sort_by"`
}

// GetProducts lists available products filtered by category and text and
// sorted by the sort parameter
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ProductFilter{
		Category: models.Category(q.Get("category")),
		Query:    strings.TrimSpace(q.Get("q")),
		Sort:     store.SortOrDefault(q.Get("sort")),
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	products, err := pc.Products.List(ctx, filter)
	if err != nil {
		logger.FromContext(ctx).Error("product list failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error fetching products")
		return
	}

	respondJSON(w, http.StatusOK, productListResponse{
		Products:         models.Views(products),
		Count:            len(products),
		Categories:       models.Categories,
		SelectedCategory: string(filter.Category),
		SearchQuery:      filter.Query,
		SortBy:           filter.Sort,
	})
}

// GetProductByID returns an available product with related products of
// the same category
func (pc *ProductController) GetProductByID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()

	product, err := pc.Products.Get(ctx, mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) || (err == nil && !product.Available) {
		respondError(w, http.StatusNotFound, "Producto no encontrado")
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("product lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error fetching product")
		return
	}

	related := []models.Product{}
	sameCategory, err := pc.Products.List(ctx, store.ProductFilter{Category: product.Category, Sort: store.SortNewest})
	if err != nil {
		logger.FromContext(ctx).Warn("related products failed", zap.Error(err))
	}
	for _, p := range sameCategory {
		if p.ID != product.ID && len(related) < relatedLimit {
			related = append(related, p)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product": product.View(),
		"related": models.Views(related),
	})
}

type autocompleteResult struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
	URL      string `json:"url"`
	Image    string `json:"image,omitempty"`
}

// Autocomplete suggests up to five available products whose name or
// category contains q. Queries shorter than two characters match nothing.
func (pc *ProductController) Autocomplete(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	results := []autocompleteResult{}
	if utf8.RuneCountInString(query) < autocompleteMin {
		respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	products, err := pc.Products.Search(ctx, query, autocompleteLimit)
	if err != nil {
		logger.FromContext(ctx).Error("autocomplete failed", zap.Error(err))
		respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
		return
	}
	for _, p := range products {
		v := p.View()
		results = append(results, autocompleteResult{
			Name:     p.Name,
			Category: v.CategoryLabel,
			Price:    p.Price.StringFixed(2),
			URL:      v.URL,
			Image:    p.Image,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// productFields validates admin input
func productFields(p *models.Product) map[string]string {
	p.Name = strings.TrimSpace(p.Name)
	fields, err := utils.FieldErrors(p)
	if err != nil || fields == nil {
		fields = map[string]string{}
	}
	if p.Price.IsNegative() {
		fields["price"] = "El precio no puede ser negativo."
	}
	if p.Category != "" && !p.Category.Valid() {
		fields["category"] = "Categoría desconocida."
	}
	return fields
}

// CreateProduct handles adding a new product (Admin only)
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := decodeJSON(w, r, &product); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if fields := productFields(&product); len(fields) > 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fields})
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	if err := pc.Products.Create(ctx, &product); err != nil {
		logger.FromContext(ctx).Error("product create failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error creating product")
		return
	}
	pc.record(r, "product.created", product.ID.Hex(), map[string]interface{}{"name": product.Name})
	respondJSON(w, http.StatusCreated, product.View())
}

// UpdateProduct replaces a product (Admin only)
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var product models.Product
	if err := decodeJSON(w, r, &product); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if fields := productFields(&product); len(fields) > 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fields})
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	err := pc.Products.Update(ctx, id, &product)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Producto no encontrado")
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("product update failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error updating product")
		return
	}
	pc.record(r, "product.updated", id, map[string]interface{}{
		"price": product.Price.String(),
		"stock": product.Stock,
	})
	respondJSON(w, http.StatusOK, product.View())
}

// DeleteProduct removes a product (Admin only)
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := dbContext(r)
	defer cancel()
	err := pc.Products.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Producto no encontrado")
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("product delete failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error deleting product")
		return
	}
	pc.record(r, "product.deleted", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (pc *ProductController) record(r *http.Request, action, id string, data map[string]interface{}) {
	if pc.Audit == nil {
		return
	}
	if err := pc.Audit.Record(r.Context(), action, id, data); err != nil {
		logger.FromContext(r.Context()).Warn("audit record failed", zap.Error(err))
	}
}

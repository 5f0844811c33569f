package handlers

import (
	"net/http"

	"github.com/ruralpay/wallet/internal/services"
)

type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Catalog lists bill types, funding methods, quick actions and budget categories
// @Summary Catalog
// @Description Fixed choices with their glyphs inlined as data URIs
// @Tags Catalog
// @Produce json
// @Success 200 {object} services.Catalog
// @Router /catalog [get]
func (h *CatalogHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Catalog())
}

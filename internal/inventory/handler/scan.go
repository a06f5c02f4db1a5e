package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maestranza/maestranza-backend/pkg/httputil"
)

// LookupByCode looks up a product by scanned barcode or SKU
func (h *CatalogHandler) LookupByCode(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.LookupProduct(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, product)
}

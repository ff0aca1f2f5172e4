package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tryonserver/internal/domain"
	"tryonserver/internal/qrlink"
	"tryonserver/internal/storage"
)

// maxImageBytes caps product and person photo uploads.
const maxImageBytes = 10 << 20

// ProductsCreate ingests a product photo: blob upload, vision metadata, then
// the record. Vision never fails the request; it degrades to defaults.
func (a *App) ProductsCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "invalid multipart form")
		return
	}
	sellerID := r.FormValue("sellerId")
	name := r.FormValue("name")
	category := r.FormValue("category")
	if sellerID == "" || name == "" || category == "" {
		a.error(w, http.StatusBadRequest, "invalid_request", "sellerId, name and category are required")
		return
	}

	data, contentType, err := readFormImage(r, "image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "image file is required")
		return
	}

	obj, err := a.Blobs.Upload(r.Context(), data, storage.UploadOptions{
		Folder:      "products",
		ContentType: contentType,
		Tags:        []string{"product", sellerID},
	})
	if err != nil {
		a.domainError(w, err)
		return
	}

	meta := a.Vision.Analyze(r.Context(), obj.URL, category)
	product := &domain.Product{
		ID:            "prod_" + uuid.NewString(),
		SellerID:      sellerID,
		Name:          name,
		Category:      category,
		ImageURL:      obj.URL,
		ImageHandle:   obj.Handle,
		Color:         meta.Color,
		Style:         meta.Style,
		BestSkinTones: meta.BestSkinTones,
	}
	if err := a.Products.Create(r.Context(), product); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, productJSON(product))
}

// ProductsGet fetches one product.
func (a *App) ProductsGet(w http.ResponseWriter, r *http.Request) {
	product, err := a.Products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, productJSON(product))
}

// ProductsList returns a seller's products, newest first.
func (a *App) ProductsList(w http.ResponseWriter, r *http.Request) {
	sellerID := r.URL.Query().Get("sellerId")
	if sellerID == "" {
		a.error(w, http.StatusBadRequest, "invalid_request", "sellerId query parameter is required")
		return
	}
	products, err := a.Products.ListBySeller(r.Context(), sellerID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(products))
	for i := range products {
		items = append(items, productJSON(&products[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// ProductsDelete removes the product record, its trial tasks (via the FK
// cascade) and, best-effort, its stored image.
func (a *App) ProductsDelete(w http.ResponseWriter, r *http.Request) {
	product, err := a.Products.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	if product.ImageHandle != "" {
		if err := a.Blobs.Delete(r.Context(), product.ImageHandle); err != nil {
			a.Logger.Warn().Err(err).Str("handle", product.ImageHandle).Msg("product image cleanup failed")
		}
	}
	a.json(w, http.StatusOK, map[string]any{"deleted": product.ID})
}

// ProductQRCode renders the product's try-on link as a QR code. format=png
// streams the image; the default JSON body carries a data URL.
func (a *App) ProductQRCode(w http.ResponseWriter, r *http.Request) {
	product, err := a.Products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "png" {
		png, err := qrlink.PNG(a.Config.PublicBaseURL, product.ID)
		if err != nil {
			a.domainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
		return
	}

	dataURL, err := qrlink.DataURL(a.Config.PublicBaseURL, product.ID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"productId": product.ID,
		"tryOnUrl":  qrlink.TryOnURL(a.Config.PublicBaseURL, product.ID),
		"qrCode":    dataURL,
	})
}

// StudioUploadPerson stores a person photo for the studio flow and returns its
// durable URL.
func (a *App) StudioUploadPerson(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "invalid multipart form")
		return
	}
	sellerID := r.FormValue("sellerId")
	if sellerID == "" {
		a.error(w, http.StatusBadRequest, "invalid_request", "sellerId is required")
		return
	}
	data, contentType, err := readFormImage(r, "image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "image file is required")
		return
	}

	obj, err := a.Blobs.Upload(r.Context(), data, storage.UploadOptions{
		Folder:      "studio/persons",
		ContentType: contentType,
		Tags:        []string{"person", sellerID},
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"imageUrl": obj.URL, "handle": obj.Handle})
}

func readFormImage(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil || len(data) == 0 {
		return nil, "", io.ErrUnexpectedEOF
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return data, contentType, nil
}

func productJSON(p *domain.Product) map[string]any {
	return map[string]any{
		"id":            p.ID,
		"sellerId":      p.SellerID,
		"name":          p.Name,
		"category":      p.Category,
		"imageUrl":      p.ImageURL,
		"color":         p.Color,
		"style":         p.Style,
		"bestSkinTones": p.BestSkinTones,
		"uploadedAt":    p.UploadedAt,
	}
}

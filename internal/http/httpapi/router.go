package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tryonserver/internal/http/handlers"
	"tryonserver/internal/middleware"
	"tryonserver/internal/obs"
)

// NewRouter wires the full route table.
func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSAllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/v1/ads", func(r chi.Router) {
		r.Post("/", app.AdsSubmit)
		r.Get("/", app.AdsList)
		r.Get("/status", app.AdsStatus)
		r.Post("/delete", app.AdsDelete)
	})

	r.Route("/v1/trials", func(r chi.Router) {
		r.Post("/", app.TrialsSubmit)
		r.Get("/", app.TrialsList)
		r.Get("/status", app.TrialsStatus)
		r.Post("/delete", app.TrialsDelete)
	})

	r.Route("/v1/tryon", func(r chi.Router) {
		r.Use(middleware.RateLimit(30, time.Minute))
		r.Post("/upload", app.TryOnUpload)
		r.Post("/process", app.TryOnProcess)
		r.Get("/status", app.TryOnStatus)
		r.Post("/skin-tone", app.SkinTone)
	})

	r.Route("/v1/products", func(r chi.Router) {
		r.Post("/", app.ProductsCreate)
		r.Get("/", app.ProductsList)
		r.Get("/{id}", app.ProductsGet)
		r.Delete("/{id}", app.ProductsDelete)
		r.Get("/{id}/qrcode", app.ProductQRCode)
	})

	r.Post("/v1/studio/upload-person", app.StudioUploadPerson)

	// Local filesystem blob store serves its objects directly.
	if app.Config.StorageBackend == "filesystem" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(app.Config.StoragePath)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}

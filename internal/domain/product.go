package domain

import "time"

// Product is a seller's catalog item. Its durable image is the reference input
// for try-on tasks and is read-only from the orchestration path.
type Product struct {
	ID            string
	SellerID      string
	Name          string
	Category      string
	ImageURL      string
	ImageHandle   string
	Color         string
	Style         string
	BestSkinTones []string
	UploadedAt    time.Time
}

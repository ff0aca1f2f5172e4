// Package tryon maps merchandising categories onto provider try-on modes and
// the endpoint pair each mode uses. Everything here is pure; resolution sits on
// the hot path of upload and task creation and must never fail.
package tryon

import "strings"

// Mode is the closed set of try-on operation families the provider exposes.
type Mode string

const (
	ModeCloth Mode = "cloth"
	ModeBag   Mode = "bag"
	ModeScarf Mode = "scarf"
	ModeShoes Mode = "shoes"
	ModeHat   Mode = "hat"
)

// GarmentCategory narrows the cloth mode. GarmentAuto lets the provider detect.
type GarmentCategory string

const (
	GarmentFullBody  GarmentCategory = "full_body"
	GarmentLowerBody GarmentCategory = "lower_body"
	GarmentUpperBody GarmentCategory = "upper_body"
	GarmentShoes     GarmentCategory = "shoes"
	GarmentAuto      GarmentCategory = "auto"
)

// Resolved is the outcome of category resolution. GarmentCategory is empty for
// accessory modes.
type Resolved struct {
	Mode            Mode
	GarmentCategory GarmentCategory
}

var legacyGarmentCategories = map[GarmentCategory]struct{}{
	GarmentFullBody:  {},
	GarmentLowerBody: {},
	GarmentUpperBody: {},
	GarmentShoes:     {},
	GarmentAuto:      {},
}

// ResolveCategory maps a raw product category onto a provider mode. Total over
// all inputs; unrecognized values fall back to cloth with auto detection.
func ResolveCategory(raw string) Resolved {
	category := strings.TrimSpace(raw)
	if category == "" {
		return Resolved{Mode: ModeCloth, GarmentCategory: GarmentAuto}
	}

	if _, ok := legacyGarmentCategories[GarmentCategory(category)]; ok {
		return Resolved{Mode: ModeCloth, GarmentCategory: GarmentCategory(category)}
	}

	if rest, ok := strings.CutPrefix(category, "cloth_"); ok {
		if _, known := legacyGarmentCategories[GarmentCategory(rest)]; known {
			return Resolved{Mode: ModeCloth, GarmentCategory: GarmentCategory(rest)}
		}
		return Resolved{Mode: ModeCloth, GarmentCategory: GarmentAuto}
	}

	switch category {
	case "ai_bag":
		return Resolved{Mode: ModeBag}
	case "ai_scarf":
		return Resolved{Mode: ModeScarf}
	case "ai_shoes":
		return Resolved{Mode: ModeShoes}
	case "ai_hat":
		return Resolved{Mode: ModeHat}
	}

	return Resolved{Mode: ModeCloth, GarmentCategory: GarmentAuto}
}

// FileEndpoint returns the provider upload-intent path for a mode.
func FileEndpoint(mode Mode) string {
	switch mode {
	case ModeBag:
		return "/s2s/v2.0/file/bag"
	case ModeScarf:
		return "/s2s/v2.0/file/scarf"
	case ModeShoes:
		return "/s2s/v2.0/file/shoes"
	case ModeHat:
		return "/s2s/v2.0/file/hat"
	default:
		return "/s2s/v2.0/file/cloth"
	}
}

// TaskEndpoint returns the provider task-creation path for a mode. Status
// polls append "/<taskID>" to the same path.
func TaskEndpoint(mode Mode) string {
	switch mode {
	case ModeBag:
		return "/s2s/v2.0/task/bag"
	case ModeScarf:
		return "/s2s/v2.0/task/scarf"
	case ModeShoes:
		return "/s2s/v2.0/task/shoes"
	case ModeHat:
		return "/s2s/v2.0/task/hat"
	default:
		return "/s2s/v2.0/task/cloth"
	}
}

// Endpoints of provider task families outside the mode table.
const (
	FileEndpointSelfie   = "/s2s/v2.0/file/selfie"
	FileEndpointSkinTone = "/s2s/v2.0/file/skin-tone-analysis"

	TaskEndpointSkinTone    = "/s2s/v2.0/task/skin-tone-analysis"
	TaskEndpointTextToImage = "/s2s/v2.0/task/text-to-image"
	TaskEndpointAIStudio    = "/s2s/v2.0/task/ai_studio"
)

// TaskPayloadParams carries the inputs for a try-on task payload.
type TaskPayloadParams struct {
	Mode            Mode
	UserFileID      string
	ProductImageURL string
	GarmentCategory GarmentCategory
	Gender          string
}

// BuildTaskPayload shapes the provider task body for a mode. Cloth tasks carry
// the garment category; accessory tasks carry gender and a random style.
func BuildTaskPayload(p TaskPayloadParams) map[string]any {
	if p.Mode == ModeCloth || p.Mode == "" {
		garment := p.GarmentCategory
		if garment == "" {
			garment = GarmentAuto
		}
		return map[string]any{
			"src_file_id":      p.UserFileID,
			"ref_file_url":     p.ProductImageURL,
			"garment_category": string(garment),
		}
	}

	gender := p.Gender
	if gender == "" {
		gender = "female"
	}
	return map[string]any{
		"src_file_id":  p.UserFileID,
		"ref_file_url": p.ProductImageURL,
		"gender":       gender,
		"style":        "random",
	}
}

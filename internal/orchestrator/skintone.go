package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tryonserver/internal/domain"
	"tryonserver/internal/providers/youcam"
	"tryonserver/internal/tryon"
)

// Skin tone analysis completes in seconds; polling is done inline instead of
// through the task record lifecycle. The attempt cap bounds a provider that
// never leaves running.
const skinToneMaxAttempts = 40

// SkinToneReport is the outcome of one analysis run.
type SkinToneReport struct {
	SkinColor     string           `json:"skinColor"`
	DetectedTones []string         `json:"detectedTones"`
	Recommended   []domain.Product `json:"recommendedProducts"`
}

// AnalyzeSkinTone submits a skin tone analysis for an already-uploaded selfie,
// polls it to completion and maps the detected color to product
// recommendations.
func (o *Orchestrator) AnalyzeSkinTone(ctx context.Context, fileID string) (*SkinToneReport, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: fileId is required", domain.ErrInvalidRequest)
	}

	handle, err := o.gateway.CreateTask(ctx, tryon.TaskEndpointSkinTone, map[string]any{
		"src_file_id":                 fileID,
		"face_angle_strictness_level": "high",
	})
	if err != nil {
		return nil, err
	}

	interval := handle.PollInterval
	if interval <= 0 {
		interval = youcam.DefaultPollInterval
	}

	for attempt := 0; attempt < skinToneMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		status, err := o.gateway.GetTaskStatus(ctx, tryon.TaskEndpointSkinTone, handle.TaskID)
		if err != nil {
			return nil, err
		}

		switch status.State {
		case youcam.StateFailed:
			detail := status.ErrorDetail
			if detail == "" {
				detail = "skin tone analysis failed"
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrProviderRejected, detail)

		case youcam.StateSuccess:
			color := extractSkinColor(status.RawResults)
			if color == "" {
				return nil, errors.New("missing skin color in analysis result")
			}
			return o.buildSkinToneReport(ctx, color), nil
		}
	}

	return nil, errors.New("skin tone analysis timed out")
}

func (o *Orchestrator) buildSkinToneReport(ctx context.Context, color string) *SkinToneReport {
	tones := DetectTonesFromHex(color)
	report := &SkinToneReport{
		SkinColor:     color,
		DetectedTones: tones,
		Recommended:   []domain.Product{},
	}
	products, err := o.products.ListBySkinTones(ctx, tones, 6)
	if err != nil {
		o.logger.Warn().Err(err).Msg("skin tone product recommendation lookup failed")
		return report
	}
	if products != nil {
		report.Recommended = products
	}
	return report
}

// extractSkinColor pulls the detected hex color out of the provider's results
// payload. The field has been observed both at the top level and nested under
// a result object.
func extractSkinColor(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var payload struct {
		SkinColor string `json:"skin_color"`
		Result    struct {
			SkinColor string `json:"skin_color"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.SkinColor != "" {
		return normalizeHexColor(payload.SkinColor)
	}
	return normalizeHexColor(payload.Result.SkinColor)
}

func normalizeHexColor(color string) string {
	color = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(color), "#"))
	if len(color) != 6 {
		return ""
	}
	if _, err := strconv.ParseUint(color, 16, 32); err != nil {
		return ""
	}
	return "#" + color
}

// DetectTonesFromHex buckets a skin hex color into a depth tone by relative
// luminance and an undertone by the red-blue channel spread. Total: any valid
// hex color maps to exactly one depth tone and one undertone.
func DetectTonesFromHex(color string) []string {
	color = normalizeHexColor(color)
	if color == "" {
		return []string{"medium", "neutral"}
	}

	r, _ := strconv.ParseUint(color[1:3], 16, 8)
	g, _ := strconv.ParseUint(color[3:5], 16, 8)
	b, _ := strconv.ParseUint(color[5:7], 16, 8)

	luminance := (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 255

	var depth string
	switch {
	case luminance >= 0.78:
		depth = "fair"
	case luminance >= 0.68:
		depth = "light"
	case luminance >= 0.56:
		depth = "medium"
	case luminance >= 0.48:
		depth = "olive"
	case luminance >= 0.38:
		depth = "tan"
	case luminance >= 0.28:
		depth = "deep"
	default:
		depth = "dark"
	}

	undertone := "neutral"
	switch spread := int(r) - int(b); {
	case spread >= 14:
		undertone = "warm"
	case spread <= -14:
		undertone = "cool"
	}

	return []string{depth, undertone}
}

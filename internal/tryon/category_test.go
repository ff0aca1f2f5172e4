package tryon

import "testing"

func TestResolveCategoryLegacyGarments(t *testing.T) {
	for _, category := range []string{"full_body", "lower_body", "upper_body", "shoes", "auto"} {
		got := ResolveCategory(category)
		if got.Mode != ModeCloth {
			t.Fatalf("ResolveCategory(%q).Mode = %q, want cloth", category, got.Mode)
		}
		if string(got.GarmentCategory) != category {
			t.Fatalf("ResolveCategory(%q).GarmentCategory = %q", category, got.GarmentCategory)
		}
	}
}

func TestResolveCategoryClothPrefix(t *testing.T) {
	got := ResolveCategory("cloth_upper_body")
	if got.Mode != ModeCloth || got.GarmentCategory != GarmentUpperBody {
		t.Fatalf("unexpected resolution: %+v", got)
	}

	// Prefixed but unknown sub-category falls back to auto detection.
	got = ResolveCategory("cloth_jacket")
	if got.Mode != ModeCloth || got.GarmentCategory != GarmentAuto {
		t.Fatalf("unexpected fallback resolution: %+v", got)
	}
}

func TestResolveCategoryAccessories(t *testing.T) {
	cases := map[string]Mode{
		"ai_bag":   ModeBag,
		"ai_scarf": ModeScarf,
		"ai_shoes": ModeShoes,
		"ai_hat":   ModeHat,
	}
	for category, mode := range cases {
		got := ResolveCategory(category)
		if got.Mode != mode {
			t.Fatalf("ResolveCategory(%q).Mode = %q, want %q", category, got.Mode, mode)
		}
		if got.GarmentCategory != "" {
			t.Fatalf("accessory mode should not carry a garment category, got %q", got.GarmentCategory)
		}
	}
}

func TestResolveCategoryTotality(t *testing.T) {
	inputs := []string{"", "   ", "garbage", "cloth_", "AI_BAG", "ai_bag ", "dress", "éàç", "cloth_cloth_auto"}
	for _, raw := range inputs {
		got := ResolveCategory(raw)
		if got.Mode == "" {
			t.Fatalf("ResolveCategory(%q) returned empty mode", raw)
		}
		if got.Mode == ModeCloth && got.GarmentCategory == "" {
			t.Fatalf("ResolveCategory(%q) cloth mode without garment category", raw)
		}
	}
	// Whitespace trims before matching.
	if got := ResolveCategory(" ai_bag "); got.Mode != ModeBag {
		t.Fatalf("trimmed accessory tag should resolve, got %+v", got)
	}
}

func TestEndpointTables(t *testing.T) {
	modes := []Mode{ModeCloth, ModeBag, ModeScarf, ModeShoes, ModeHat}
	seenFile := map[string]Mode{}
	seenTask := map[string]Mode{}
	for _, mode := range modes {
		file := FileEndpoint(mode)
		task := TaskEndpoint(mode)
		if file == "" || task == "" {
			t.Fatalf("mode %q missing endpoint pair", mode)
		}
		if prev, dup := seenFile[file]; dup {
			t.Fatalf("file endpoint %q shared by %q and %q", file, prev, mode)
		}
		if prev, dup := seenTask[task]; dup {
			t.Fatalf("task endpoint %q shared by %q and %q", task, prev, mode)
		}
		seenFile[file] = mode
		seenTask[task] = mode
	}
	if got := TaskEndpoint("unknown"); got != TaskEndpoint(ModeCloth) {
		t.Fatalf("unknown mode should map to cloth endpoints, got %q", got)
	}
}

func TestBuildTaskPayloadCloth(t *testing.T) {
	payload := BuildTaskPayload(TaskPayloadParams{
		Mode:            ModeCloth,
		UserFileID:      "file-1",
		ProductImageURL: "https://cdn.example.com/p.png",
	})
	if payload["garment_category"] != "auto" {
		t.Fatalf("garment_category = %v, want auto", payload["garment_category"])
	}
	if payload["src_file_id"] != "file-1" || payload["ref_file_url"] != "https://cdn.example.com/p.png" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, ok := payload["gender"]; ok {
		t.Fatalf("cloth payload must not carry gender")
	}
}

func TestBuildTaskPayloadAccessory(t *testing.T) {
	payload := BuildTaskPayload(TaskPayloadParams{
		Mode:            ModeBag,
		UserFileID:      "file-2",
		ProductImageURL: "https://cdn.example.com/bag.png",
	})
	if payload["gender"] != "female" {
		t.Fatalf("gender default = %v, want female", payload["gender"])
	}
	if payload["style"] != "random" {
		t.Fatalf("style = %v, want random", payload["style"])
	}
	if _, ok := payload["garment_category"]; ok {
		t.Fatalf("accessory payload must not carry garment_category")
	}

	payload = BuildTaskPayload(TaskPayloadParams{Mode: ModeHat, UserFileID: "f", ProductImageURL: "u", Gender: "male"})
	if payload["gender"] != "male" {
		t.Fatalf("explicit gender not honored: %v", payload["gender"])
	}
}

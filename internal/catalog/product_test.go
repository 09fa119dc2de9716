package catalog

import "testing"

func TestNormalizeFillsDefaults(t *testing.T) {
	p := Normalize(Product{Name: "  Samsung Galaxy A26 ", Price: 3100000})
	if p.Slug != "samsung-galaxy-a26" {
		t.Fatalf("Slug = %q, want samsung-galaxy-a26", p.Slug)
	}
	if p.Category == nil || p.Tags == nil || p.Features == nil || p.Specs == nil || p.Variants == nil || p.Images == nil {
		t.Fatalf("Normalize left nil slices: %+v", p)
	}
	if p.Status != "active" {
		t.Fatalf("Status = %q, want active", p.Status)
	}
	if p.Discount.PriceAfterDiscount != 3100000 || p.HasDiscount() {
		t.Fatalf("Discount = %+v, want no discount at full price", p.Discount)
	}
}

func TestNormalizeDerivesDiscountedPrice(t *testing.T) {
	p := Normalize(Product{Name: "X", Price: 100, Discount: Discount{Percent: 10}})
	if p.Discount.PriceAfterDiscount != 90 {
		t.Fatalf("PriceAfterDiscount = %v, want 90", p.Discount.PriceAfterDiscount)
	}
	if !p.HasDiscount() || p.EffectivePrice() != 90 {
		t.Fatalf("EffectivePrice() = %v, want 90", p.EffectivePrice())
	}
}

func TestNormalizeStripsMarkup(t *testing.T) {
	p := Normalize(Product{Name: "X", Description: "<p>Baterai <b>5000mAh</b></p>\n<ul><li>NFC</li></ul>"})
	if p.Description != "Baterai 5000mAh NFC" {
		t.Fatalf("Description = %q", p.Description)
	}
}

func TestNormalizeVariantOptions(t *testing.T) {
	p := Normalize(Product{Name: "X", Variants: []Variant{{Name: "Warna", Options: []Option{{Value: "Hitam"}}}}})
	if p.Variants[0].Options[0].Images == nil {
		t.Fatalf("option images left nil")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Infinix Note 50":        "infinix-note-50",
		"  OPPO A5 Pro (5G)!  ":  "oppo-a5-pro-5g",
		"Galaxy -- S25 -- Edge":  "galaxy-s25-edge",
		"":                       "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmbeddingTextAndMetadata(t *testing.T) {
	long := make([]rune, 250)
	for i := range long {
		long[i] = 'a'
	}
	p := Product{Name: "Realme 14", Description: string(long), Category: []string{"Elektronik", "Smartphone"}, Price: 4100000}
	if got := p.EmbeddingText(); got != "Realme 14 "+string(long)+" Elektronik Smartphone" {
		t.Fatalf("EmbeddingText() = %q", got)
	}
	meta := p.IndexMetadata()
	if len([]rune(meta["description"].(string))) != 200 {
		t.Fatalf("metadata description not clipped to 200 runes")
	}
	if meta["category"] != "Elektronik, Smartphone" {
		t.Fatalf("metadata category = %v", meta["category"])
	}
}

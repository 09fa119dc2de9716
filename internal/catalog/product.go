package catalog

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type Discount struct {
	Percent            float64 `json:"percent" yaml:"percent" firestore:"percent"`
	PriceAfterDiscount float64 `json:"priceAfterDiscount" yaml:"priceAfterDiscount" firestore:"priceAfterDiscount"`
}

type Spec struct {
	Key   string `json:"key" yaml:"key" firestore:"key"`
	Value string `json:"value" yaml:"value" firestore:"value"`
}

type Option struct {
	Value  string   `json:"value" yaml:"value" firestore:"value"`
	Images []string `json:"images" yaml:"images" firestore:"images"`
}

type Variant struct {
	Name    string   `json:"name" yaml:"name" firestore:"name"`
	Options []Option `json:"options" yaml:"options" firestore:"options"`
}

type Rating struct {
	Average float64 `json:"average" yaml:"average" firestore:"average"`
	Count   int     `json:"count" yaml:"count" firestore:"count"`
}

// Product is a catalog entry. Values coming from storage or seed files go
// through Normalize before use, so slices are never nil.
type Product struct {
	ID                string    `json:"id" yaml:"id" firestore:"-"`
	Slug              string    `json:"slug" yaml:"slug" firestore:"slug"`
	Name              string    `json:"name" yaml:"name" firestore:"name"`
	Description       string    `json:"description" yaml:"description" firestore:"description"`
	Category          []string  `json:"category" yaml:"category" firestore:"category"`
	Tags              []string  `json:"tags" yaml:"tags" firestore:"tags"`
	Brand             string    `json:"brand" yaml:"brand" firestore:"brand"`
	Price             float64   `json:"price" yaml:"price" firestore:"price"`
	Discount          Discount  `json:"discount" yaml:"discount" firestore:"discount"`
	Stock             int       `json:"stock" yaml:"stock" firestore:"stock"`
	Features          []string  `json:"features" yaml:"features" firestore:"features"`
	Specs             []Spec    `json:"specs" yaml:"specs" firestore:"specs"`
	Variants          []Variant `json:"variants" yaml:"variants" firestore:"variants"`
	Images            []string  `json:"images" yaml:"images" firestore:"images"`
	Rating            Rating    `json:"rating" yaml:"rating" firestore:"rating"`
	Status            string    `json:"status" yaml:"status" firestore:"status"`
	IsFeatured        bool      `json:"isFeatured" yaml:"isFeatured" firestore:"isFeatured"`
	WarehouseLocation string    `json:"warehouseLocation" yaml:"warehouseLocation" firestore:"warehouseLocation"`
	CreatedAt         time.Time `json:"createdAt" yaml:"createdAt" firestore:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" yaml:"updatedAt" firestore:"updatedAt"`
}

// Retrieved is a product joined onto a similarity match.
type Retrieved struct {
	Product
	Similarity float32 `json:"similarity"`
}

// HasDiscount reports whether a positive discount applies.
func (p Product) HasDiscount() bool {
	return p.Discount.Percent > 0 && p.Discount.PriceAfterDiscount > 0 && p.Discount.PriceAfterDiscount < p.Price
}

// EffectivePrice is the discounted price when a discount applies.
func (p Product) EffectivePrice() float64 {
	if p.HasDiscount() {
		return p.Discount.PriceAfterDiscount
	}
	return p.Price
}

// EmbeddingText is the text a product is indexed under.
func (p Product) EmbeddingText() string {
	parts := []string{strings.TrimSpace(p.Name), strings.TrimSpace(p.Description), strings.Join(p.Category, " ")}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// IndexMetadata is the small payload stored next to the vector.
func (p Product) IndexMetadata() map[string]any {
	desc := []rune(p.Description)
	if len(desc) > 200 {
		desc = desc[:200]
	}
	return map[string]any{
		"name":        p.Name,
		"category":    strings.Join(p.Category, ", "),
		"price":       p.Price,
		"description": string(desc),
	}
}

// Normalize fills defaults and derived fields so downstream code never deals
// with missing structure.
func Normalize(p Product) Product {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = stripMarkup(p.Description)
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	p.Category = nonNilStrings(p.Category)
	p.Tags = nonNilStrings(p.Tags)
	p.Features = nonNilStrings(p.Features)
	p.Images = nonNilStrings(p.Images)
	if p.Specs == nil {
		p.Specs = []Spec{}
	}
	if p.Variants == nil {
		p.Variants = []Variant{}
	}
	for i := range p.Variants {
		if p.Variants[i].Options == nil {
			p.Variants[i].Options = []Option{}
		}
		for j := range p.Variants[i].Options {
			p.Variants[i].Options[j].Images = nonNilStrings(p.Variants[i].Options[j].Images)
		}
	}
	switch {
	case p.Discount.Percent <= 0:
		p.Discount = Discount{Percent: 0, PriceAfterDiscount: p.Price}
	case p.Discount.PriceAfterDiscount <= 0:
		p.Discount.PriceAfterDiscount = math.Round(p.Price * (1 - p.Discount.Percent/100))
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if p.Stock < 0 {
		p.Stock = 0
	}
	return p
}

// Merge applies update on top of stored. Zero-valued fields in update keep
// the stored value; CreatedAt and Slug always come from stored when set.
func Merge(stored, update Product) Product {
	out := stored
	if update.Name != "" {
		out.Name = update.Name
	}
	if update.Description != "" {
		out.Description = update.Description
	}
	if update.Slug != "" {
		out.Slug = update.Slug
	}
	if len(update.Category) > 0 {
		out.Category = update.Category
	}
	if len(update.Tags) > 0 {
		out.Tags = update.Tags
	}
	if update.Brand != "" {
		out.Brand = update.Brand
	}
	if update.Price != 0 {
		out.Price = update.Price
		if out.Discount.Percent > 0 {
			out.Discount.PriceAfterDiscount = 0
		}
	}
	if update.Discount.Percent > 0 {
		out.Discount = update.Discount
	}
	if update.Stock != 0 {
		out.Stock = update.Stock
	}
	if len(update.Features) > 0 {
		out.Features = update.Features
	}
	if len(update.Specs) > 0 {
		out.Specs = update.Specs
	}
	if len(update.Variants) > 0 {
		out.Variants = update.Variants
	}
	if len(update.Images) > 0 {
		out.Images = update.Images
	}
	if update.Rating != (Rating{}) {
		out.Rating = update.Rating
	}
	if update.Status != "" {
		out.Status = update.Status
	}
	if update.IsFeatured {
		out.IsFeatured = true
	}
	if update.WarehouseLocation != "" {
		out.WarehouseLocation = update.WarehouseLocation
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = update.CreatedAt
	}
	return out
}

var (
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugInvalid = regexp.MustCompile(`[^\w\-]+`)
	slugDashes  = regexp.MustCompile(`-{2,}`)
)

// Slugify lower-cases text and reduces it to [a-z0-9_-].
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func stripMarkup(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func nonNilStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

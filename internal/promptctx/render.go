// Package promptctx renders retrieved products into the plain-text block the
// response generator embeds in its system prompt.
package promptctx

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zulfachrienst/chatbot-rag/internal/catalog"
)

// NoProductsPlaceholder stands in for the context when nothing was retrieved.
const NoProductsPlaceholder = "[No relevant products found in the database]"

const DefaultCurrency = "Rp"

// Builder renders product context. The zero value uses DefaultCurrency.
type Builder struct {
	Currency string
}

// Render renders with the zero Builder.
func Render(products []catalog.Retrieved) string {
	return Builder{}.Render(products)
}

// Render returns one block per product in input order. Empty fields are left
// out. No products renders as "".
func (b Builder) Render(products []catalog.Retrieved) string {
	if len(products) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(products))
	for i, p := range products {
		blocks = append(blocks, b.renderOne(i+1, p.Product))
	}
	return strings.Join(blocks, "\n\n")
}

func (b Builder) renderOne(n int, p catalog.Product) string {
	var sb strings.Builder
	line := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteByte('\n')
	}

	fmt.Fprintf(&sb, "Product %d: %s\n", n, p.Name)
	line("Brand", p.Brand)
	line("Category", strings.Join(p.Category, ", "))
	line("Description", p.Description)
	line("Price", b.price(p))
	line("Features", strings.Join(p.Features, "; "))
	line("Specs", renderSpecs(p.Specs))
	if v := renderVariants(p.Variants); v != "" {
		sb.WriteString("Variants:\n")
		sb.WriteString(v)
	}
	if len(p.Images) > 0 {
		line("Images", strings.Join(p.Images, ", "))
	}
	if p.Rating.Count > 0 {
		line("Rating", fmt.Sprintf("%s/5 (%d reviews)", strconv.FormatFloat(p.Rating.Average, 'f', -1, 64), p.Rating.Count))
	}
	if p.Stock > 0 {
		line("Stock", strconv.Itoa(p.Stock))
	}
	line("Warehouse", p.WarehouseLocation)
	line("Status", p.Status)
	if p.IsFeatured {
		line("Featured", "yes")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b Builder) price(p catalog.Product) string {
	if p.Price <= 0 {
		return ""
	}
	original := b.money(p.Price)
	if p.Discount.Percent <= 0 {
		return original
	}
	discounted := p.Discount.PriceAfterDiscount
	if discounted <= 0 {
		discounted = math.Round(p.Price * (1 - p.Discount.Percent/100))
	}
	return fmt.Sprintf("%s, discounted %s%% to %s",
		original, strconv.FormatFloat(p.Discount.Percent, 'f', -1, 64), b.money(discounted))
}

func renderSpecs(specs []catalog.Spec) string {
	parts := make([]string, 0, len(specs))
	for _, s := range specs {
		if s.Key == "" || s.Value == "" {
			continue
		}
		parts = append(parts, s.Key+": "+s.Value)
	}
	return strings.Join(parts, ", ")
}

func renderVariants(variants []catalog.Variant) string {
	var sb strings.Builder
	for _, v := range variants {
		opts := make([]string, 0, len(v.Options))
		for _, o := range v.Options {
			if o.Value == "" {
				continue
			}
			if len(o.Images) > 0 {
				opts = append(opts, fmt.Sprintf("%s (images: %s)", o.Value, strings.Join(o.Images, ", ")))
			} else {
				opts = append(opts, o.Value)
			}
		}
		if v.Name == "" || len(opts) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "  - %s: %s\n", v.Name, strings.Join(opts, "; "))
	}
	return sb.String()
}

// money formats with "." thousands and "," decimals, e.g. Rp2.790.000.
func (b Builder) money(v float64) string {
	cur := b.Currency
	if cur == "" {
		cur = DefaultCurrency
	}
	neg := v < 0
	v = math.Abs(v)
	whole := int64(v)
	cents := int64(math.Round((v - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}

	digits := strconv.FormatInt(whole, 10)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(d)
	}
	out := cur + grouped.String()
	if cents > 0 {
		out += fmt.Sprintf(",%02d", cents)
	}
	if neg {
		out = "-" + out
	}
	return out
}

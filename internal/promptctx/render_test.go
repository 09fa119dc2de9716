package promptctx

import (
	"strings"
	"testing"

	"github.com/zulfachrienst/chatbot-rag/internal/catalog"
)

func product(name string, mutate func(*catalog.Product)) catalog.Retrieved {
	p := catalog.Product{ID: strings.ToLower(name), Name: name, Stock: 5}
	if mutate != nil {
		mutate(&p)
	}
	return catalog.Retrieved{Product: catalog.Normalize(p)}
}

func TestRenderEmpty(t *testing.T) {
	if got := Render(nil); got != "" {
		t.Fatalf("Render(nil) = %q, want empty", got)
	}
	if got := Render([]catalog.Retrieved{}); got != "" {
		t.Fatalf("Render([]) = %q, want empty", got)
	}
}

func TestRenderDiscountShowsBothPrices(t *testing.T) {
	out := Render([]catalog.Retrieved{product("Galaxy A26", func(p *catalog.Product) {
		p.Price = 100
		p.Discount = catalog.Discount{Percent: 10, PriceAfterDiscount: 90}
	})})
	if !strings.Contains(out, "Rp100") || !strings.Contains(out, "Rp90") {
		t.Fatalf("Render() = %q, want original and discounted price", out)
	}
	if !strings.Contains(out, "10%") {
		t.Fatalf("Render() = %q, want discount percent", out)
	}
}

func TestRenderWithoutDiscountShowsSinglePrice(t *testing.T) {
	out := Render([]catalog.Retrieved{product("Tas", func(p *catalog.Product) { p.Price = 2625000 })})
	if !strings.Contains(out, "Price: Rp2.625.000\n") {
		t.Fatalf("Render() = %q, want single formatted price", out)
	}
	if strings.Contains(out, "discounted") {
		t.Fatalf("Render() = %q, mentions a discount", out)
	}
}

func TestRenderPreservesOrder(t *testing.T) {
	out := Render([]catalog.Retrieved{product("Zeta", nil), product("Alpha", nil), product("Mid", nil)})
	z, a, m := strings.Index(out, "Zeta"), strings.Index(out, "Alpha"), strings.Index(out, "Mid")
	if !(z < a && a < m) {
		t.Fatalf("Render() order wrong: %q", out)
	}
	if !strings.Contains(out, "Product 1: Zeta") || !strings.Contains(out, "Product 3: Mid") {
		t.Fatalf("Render() numbering wrong: %q", out)
	}
}

func TestRenderOmitsEmptyFieldsAndShowsVariants(t *testing.T) {
	out := Render([]catalog.Retrieved{product("Infinix Note 50", func(p *catalog.Product) {
		p.Specs = []catalog.Spec{{Key: "RAM", Value: "8GB"}}
		p.Variants = []catalog.Variant{{Name: "Warna", Options: []catalog.Option{
			{Value: "Hitam", Images: []string{"https://img.test/hitam.jpg"}},
			{Value: "Biru"},
		}}}
		p.Rating = catalog.Rating{Average: 4.5, Count: 123}
		p.IsFeatured = true
	})})
	for _, want := range []string{"Specs: RAM: 8GB", "Warna: Hitam (images: https://img.test/hitam.jpg); Biru", "Rating: 4.5/5 (123 reviews)", "Featured: yes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Render() missing %q in %q", want, out)
		}
	}
	for _, absent := range []string{"Brand:", "Warehouse:", "Features:", "Description:"} {
		if strings.Contains(out, absent) {
			t.Fatalf("Render() has empty field %q in %q", absent, out)
		}
	}
}

func TestRenderOmitsZeroStock(t *testing.T) {
	out := Render([]catalog.Retrieved{
		product("Realme 14 5G", func(p *catalog.Product) { p.Stock = 0 }),
		product("Oppo A5 Pro", nil),
	})
	first, second, _ := strings.Cut(out, "\n\n")
	if strings.Contains(first, "Stock:") {
		t.Fatalf("Render() has stock line for zero stock: %q", first)
	}
	if !strings.Contains(second, "Stock: 5") {
		t.Fatalf("Render() missing stock in %q", second)
	}
}

func TestMoney(t *testing.T) {
	b := Builder{}
	cases := map[float64]string{
		0:          "Rp0",
		999:        "Rp999",
		1000:       "Rp1.000",
		2231250:    "Rp2.231.250",
		18524050.5: "Rp18.524.050,50",
	}
	for in, want := range cases {
		if got := b.money(in); got != want {
			t.Fatalf("money(%v) = %q, want %q", in, got, want)
		}
	}
	if got := (Builder{Currency: "$"}).money(12.25); got != "$12,25" {
		t.Fatalf("money with $ = %q", got)
	}
}

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingStore struct {
	*InMemoryStore
	gets int
}

func (s *countingStore) Get(ctx context.Context, id string) (Product, error) {
	s.gets++
	return s.InMemoryStore.Get(ctx, id)
}

func TestInMemoryStoreGetMissing(t *testing.T) {
	s := NewInMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCachedStoreServesRepeatsFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{InMemoryStore: NewInMemoryStore()}
	_ = inner.Save(ctx, Product{ID: "p1", Name: "Tas"})
	s := NewCachedStore(inner, 8, time.Minute)

	for i := 0; i < 3; i++ {
		p, err := s.Get(ctx, "p1")
		if err != nil || p.Name != "Tas" {
			t.Fatalf("Get() = %+v, %v", p, err)
		}
	}
	if inner.gets != 1 {
		t.Fatalf("inner gets = %d, want 1", inner.gets)
	}

	_ = s.Save(ctx, Product{ID: "p1", Name: "Tas Kulit"})
	p, _ := s.Get(ctx, "p1")
	if p.Name != "Tas Kulit" {
		t.Fatalf("Get() after Save = %q, want refreshed value", p.Name)
	}

	_ = s.Delete(ctx, "p1")
	if _, err := s.Get(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after Delete err = %v, want ErrNotFound", err)
	}
}

func TestParseSeed(t *testing.T) {
	data := []byte(`
products:
  - name: Xiaomi Redmi A5
    description: HP murah
    category: [Elektronik, Smartphone]
    price: 1140000
    discount: {percent: 18}
    stock: 40
    specs:
      - {key: RAM, value: 4GB}
    variants:
      - name: Warna
        options:
          - value: Hitam
            images: [https://example.test/a5-hitam.jpg]
`)
	products, err := ParseSeed(data)
	if err != nil {
		t.Fatalf("ParseSeed() error = %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("len(products) = %d, want 1", len(products))
	}
	p := products[0]
	if p.Slug != "xiaomi-redmi-a5" || p.Discount.PriceAfterDiscount != 934800 {
		t.Fatalf("product = %+v", p)
	}
	if p.Variants[0].Options[0].Images[0] != "https://example.test/a5-hitam.jpg" {
		t.Fatalf("variant image = %+v", p.Variants)
	}
}

func TestParseSeedRejectsUnknownFields(t *testing.T) {
	if _, err := ParseSeed([]byte("products:\n  - name: X\n    colour: red\n")); err == nil {
		t.Fatalf("ParseSeed() error = nil, want unknown field error")
	}
	if _, err := ParseSeed([]byte("products:\n  - price: 10\n")); err == nil {
		t.Fatalf("ParseSeed() error = nil, want missing name error")
	}
}

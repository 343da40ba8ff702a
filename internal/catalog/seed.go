package catalog

import (
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"golang.org/x/text/currency"
)

// Categories of the handicraft storefront.
var Categories = []string{"anyaman", "batik", "keramik", "ukiran", "tenun", "perhiasan"}

const (
	minSeedPrice = 50_000
	maxSeedPrice = 500_000
)

// Generate builds n synthetic products. Prices are whole thousands of
// rupiah between 50 000 and 500 000 and stock is between 1 and 50.
// A zero seed picks a random one; any other seed is reproducible.
func Generate(n int, seed uint64) []domain.Product {
	faker := gofakeit.New(seed)

	products := make([]domain.Product, 0, n)
	for range n {
		products = append(products, domain.Product{
			ID:       uuid.MustParse(faker.UUID()),
			Name:     faker.ProductName(),
			Category: faker.RandomString(Categories),
			Price:    domain.NewMoney(int64(faker.IntRange(minSeedPrice/1000, maxSeedPrice/1000))*1000, currency.IDR),
			Stock:    faker.IntRange(1, 50),
		})
	}
	return products
}

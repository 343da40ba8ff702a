package receipt

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Indonesian)

// FormatMoney formats m the way the storefront shows prices, e.g. "Rp 250.000".
func FormatMoney(m domain.Money) string {
	symbol := m.Currency.String()
	if symbol == currency.IDR.String() {
		symbol = "Rp"
	}
	return symbol + " " + printer.Sprintf("%d", m.Amount)
}

const (
	ruleWidth  = 40
	labelWidth = 18
)

// Render writes the plain-text confirmation for r. Names maps product IDs
// to display names; unknown products are shown by ID.
func Render(w io.Writer, r domain.Receipt, names map[uuid.UUID]string) error {
	var b strings.Builder
	rule := strings.Repeat("-", ruleWidth)

	b.WriteString("PEMBAYARAN BERHASIL\n")
	b.WriteString(rule + "\n")
	field(&b, "Nomor Pesanan", string(r.ID))
	field(&b, "Tanggal", r.IssuedAt.Format("02/01/2006 15:04 MST"))
	field(&b, "Metode", strings.ToUpper(string(r.PaymentMethod)))
	b.WriteString(rule + "\n")

	for _, item := range r.Items {
		name, ok := names[item.ProductID]
		if !ok {
			name = item.ProductID.String()
		}
		b.WriteString(name + "\n")
		fmt.Fprintf(&b, "  %d x %s = %s\n", item.Quantity, FormatMoney(item.Price), FormatMoney(item.LineTotal()))
	}

	b.WriteString(rule + "\n")
	field(&b, "Subtotal", FormatMoney(r.Breakdown.Subtotal))
	field(&b, "Pajak", FormatMoney(r.Breakdown.Tax))
	field(&b, "Ongkos Kirim", FormatMoney(r.Breakdown.ShippingFee))
	field(&b, "Total Pembayaran", FormatMoney(r.Breakdown.Total))

	_, err := io.WriteString(w, b.String())
	return err
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%-*s%s\n", labelWidth, label+":", value)
}

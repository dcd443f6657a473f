// Package sale holds the sale draft edited at the counter and the rules a
// draft must satisfy before it can be posted to the backend.
package sale

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/and161185/niangadou-pos/internal/model"
)

// IMEIPattern is the shop's 6-digit unit code, not a GSMA IMEI.
var IMEIPattern = regexp.MustCompile(`^\d{6}$`)

// requestedQty is fixed: every IMEI is a single unit.
const requestedQty = 1

// DraftItem is one line of the draft, keyed by IMEI.
type DraftItem struct {
	IMEI string
}

// Draft is the mutable form state of a new sale.
type Draft struct {
	ClientNom       string
	ClientTelephone string
	Items           []DraftItem
	MontantPaye     string
}

// NewDraft returns the initial empty shape: no client, one empty line, nothing paid.
func NewDraft() Draft {
	return Draft{Items: []DraftItem{{}}, MontantPaye: "0"}
}

// ValidIMEI reports whether s is a well-formed unit code.
func ValidIMEI(s string) bool { return IMEIPattern.MatchString(s) }

// Sellable keeps active single-unit products, the only ones a sale may reference.
func Sellable(products []model.Product) []model.Product {
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.Status == model.StatusActive && p.Quantite == 1 {
			out = append(out, p)
		}
	}
	return out
}

// Find returns the first product carrying imei.
func Find(products []model.Product, imei string) (model.Product, bool) {
	for _, p := range products {
		if p.IMEI == imei {
			return p, true
		}
	}
	return model.Product{}, false
}

// Total is the counter-side estimate of the draft amount. Lines without a
// matching product or price count as zero.
func Total(d Draft, products []model.Product) float64 {
	var sum float64
	for _, it := range d.Items {
		p, ok := Find(products, it.IMEI)
		if !ok || p.PrixVente == nil {
			continue
		}
		sum += requestedQty * *p.PrixVente
	}
	return sum
}

// ParseAmount parses the paid amount typed by the operator.
func ParseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatCFA renders an amount without decimals or grouping, e.g. "150000 CFA".
func FormatCFA(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "N/A CFA"
	}
	return strconv.FormatFloat(math.Round(*v), 'f', 0, 64) + " CFA"
}

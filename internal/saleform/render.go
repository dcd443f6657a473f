package saleform

import (
	"fmt"
	"io"

	"github.com/and161185/niangadou-pos/internal/sale"
)

// Render writes the form as text: banner, client, lines with the matched
// product, total and paid amount.
func (f *Form) Render(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("Nouvelle Vente\n")
	if f.state == Loading {
		ew.printf("Chargement...\n")
		return ew.err
	}
	switch f.status.Kind {
	case StatusSuccess:
		ew.printf("[OK] %s\n", f.status.Text)
	case StatusError:
		ew.printf("[ERREUR] %s\n", f.status.Text)
	}

	ew.printf("Client:    %s\n", f.draft.ClientNom)
	ew.printf("Téléphone: %s\n", f.draft.ClientTelephone)
	for i, it := range f.draft.Items {
		p, ok := sale.Find(f.products, it.IMEI)
		if !ok {
			ew.printf("  %d. %-6s  Produit non trouvé\n", i+1, it.IMEI)
			continue
		}
		ew.printf("  %d. %-6s  %s %s %s  %s\n", i+1, it.IMEI, p.Marque, p.Modele, p.Stockage, sale.FormatCFA(p.PrixVente))
	}
	total := f.Total()
	ew.printf("Total:        %s\n", sale.FormatCFA(&total))
	ew.printf("Montant payé: %s\n", f.draft.MontantPaye)
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

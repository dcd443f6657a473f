package sale

import (
	"fmt"

	"github.com/and161185/niangadou-pos/internal/model"
)

// Reason identifies the guard that rejected a draft.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMissingClient
	ReasonNoItems
	ReasonBadIMEI
	ReasonUnknownProduct
	ReasonBadPrice
	ReasonUnavailable
	ReasonBadAmount
)

func (r Reason) String() string {
	switch r {
	case ReasonMissingClient:
		return "missing_client"
	case ReasonNoItems:
		return "no_items"
	case ReasonBadIMEI:
		return "bad_imei"
	case ReasonUnknownProduct:
		return "unknown_product"
	case ReasonBadPrice:
		return "bad_price"
	case ReasonUnavailable:
		return "unavailable"
	case ReasonBadAmount:
		return "bad_amount"
	default:
		return "none"
	}
}

// Result is the outcome of Validate: either Valid or Invalid.
type Result interface {
	isResult()
}

// Valid carries the payload ready to be posted.
type Valid struct {
	Payload model.SaleRequest
}

// Invalid carries the first violated rule and the operator message.
type Invalid struct {
	Reason  Reason
	IMEI    string
	Message string
}

func (Valid) isResult()   {}
func (Invalid) isResult() {}

// Error lets callers treat a rejected draft as an error value.
func (i Invalid) Error() string { return i.Message }

// Validate checks the draft against the loaded products and builds the
// payload. Guards run in a fixed order and the first violation wins.
func Validate(d Draft, products []model.Product) Result {
	if d.ClientNom == "" {
		return Invalid{Reason: ReasonMissingClient, Message: "Veuillez sélectionner ou entrer un nom de client."}
	}
	if len(d.Items) == 0 {
		return Invalid{Reason: ReasonNoItems, Message: "Veuillez ajouter au moins un produit à vendre."}
	}

	lines := make([]model.SaleLine, 0, len(d.Items))
	for _, it := range d.Items {
		if !ValidIMEI(it.IMEI) {
			return Invalid{Reason: ReasonBadIMEI, IMEI: it.IMEI,
				Message: fmt.Sprintf("IMEI invalide ou manquant: %q. Doit contenir 6 chiffres.", it.IMEI)}
		}
		p, ok := Find(products, it.IMEI)
		if !ok {
			return Invalid{Reason: ReasonUnknownProduct, IMEI: it.IMEI,
				Message: fmt.Sprintf("Produit non trouvé pour l'IMEI %q.", it.IMEI)}
		}
		if p.PrixVente == nil || *p.PrixVente <= 0 {
			return Invalid{Reason: ReasonBadPrice, IMEI: it.IMEI,
				Message: fmt.Sprintf("Prix de vente invalide ou manquant pour le produit avec IMEI %q.", it.IMEI)}
		}
		if p.Quantite < requestedQty || p.Quantite != 1 {
			return Invalid{Reason: ReasonUnavailable, IMEI: it.IMEI,
				Message: fmt.Sprintf("Le produit avec IMEI %q n'est pas disponible en quantité suffisante ou n'a pas une quantité de 1 pour la vente.", it.IMEI)}
		}
		lines = append(lines, lineFor(p))
	}

	paid, ok := ParseAmount(d.MontantPaye)
	if !ok || paid < 0 {
		return Invalid{Reason: ReasonBadAmount, Message: "Le montant payé est invalide."}
	}

	return Valid{Payload: model.SaleRequest{
		NomClient:       d.ClientNom,
		ClientTelephone: d.ClientTelephone,
		Items:           lines,
		MontantPaye:     paid,
	}}
}

func lineFor(p model.Product) model.SaleLine {
	var carton *string
	if p.TypeCarton != "" {
		c := p.TypeCarton
		carton = &c
	}
	return model.SaleLine{
		IMEI:              p.IMEI,
		QuantiteVendue:    requestedQty,
		PrixUnitaireVente: *p.PrixVente,
		Marque:            p.Marque,
		Modele:            p.Modele,
		Stockage:          p.Stockage,
		Type:              p.Type,
		TypeCarton:        carton,
	}
}

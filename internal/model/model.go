// Package model defines domain entities shared by the server, the API client and the dashboard.
package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Product statuses as stored by the backend.
const (
	StatusActive = "active"
	StatusSold   = "sold"
)

// Sale payment states derived from paid vs. total.
const (
	SalePaid    = "payee"
	SalePartial = "partielle"
	SaleUnpaid  = "impayee"
)

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an operator account stored on the server.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	FullName  string
	PwdHash   string // encoded Argon2id hash, see internal/crypto
	CreatedAt time.Time
}

// Session is what the dashboard keeps after a successful login.
type Session struct {
	Token    string
	FullName string
	Username string
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the success body of POST /api/login.
type LoginResponse struct {
	Token    string `json:"token"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
}

// ErrorResponse is the failure body of every endpoint. Older backends used "message".
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client is a customer record.
type Client struct {
	ID        int64  `json:"id"`
	Nom       string `json:"nom"`
	Telephone string `json:"telephone"`
}

// Product is one inventory unit identified by its IMEI.
type Product struct {
	ID         int64     `json:"id"`
	IMEI       string    `json:"imei"`
	Marque     string    `json:"marque"`
	Modele     string    `json:"modele"`
	Stockage   string    `json:"stockage"`
	Type       string    `json:"type"`
	TypeCarton string    `json:"type_carton"`
	Quantite   int       `json:"quantite"`
	PrixVente  *float64  `json:"prix_vente"`
	PrixAchat  *float64  `json:"prix_achat,omitempty"`
	Status     string    `json:"status"`
	DateAjout  time.Time `json:"date_ajout,omitempty"`
}

// UnmarshalJSON accepts prices sent as numbers, numeric strings or null.
func (p *Product) UnmarshalJSON(b []byte) error {
	type alias Product
	var raw struct {
		alias
		PrixVente json.RawMessage `json:"prix_vente"`
		PrixAchat json.RawMessage `json:"prix_achat"`
		DateAjout json.RawMessage `json:"date_ajout"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Product(raw.alias)
	p.PrixVente = ParseAmount(raw.PrixVente)
	p.PrixAchat = ParseAmount(raw.PrixAchat)
	if len(raw.DateAjout) > 0 && !bytes.Equal(raw.DateAjout, []byte("null")) {
		var ts time.Time
		if json.Unmarshal(raw.DateAjout, &ts) == nil {
			p.DateAjout = ts
		}
	}
	return nil
}

// ParseAmount normalizes a JSON number or numeric string into a float.
// It returns nil for null, empty or non-numeric input.
func ParseAmount(raw json.RawMessage) *float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// SaleLine is one item of a sale as posted to POST /api/ventes.
type SaleLine struct {
	IMEI              string  `json:"imei"`
	QuantiteVendue    int     `json:"quantite_vendue"`
	PrixUnitaireVente float64 `json:"prix_unitaire_vente"`
	Marque            string  `json:"marque"`
	Modele            string  `json:"modele"`
	Stockage          string  `json:"stockage"`
	Type              string  `json:"type"`
	TypeCarton        *string `json:"type_carton"`
}

// SaleRequest is the body of POST /api/ventes.
type SaleRequest struct {
	NomClient       string     `json:"nom_client"`
	ClientTelephone string     `json:"client_telephone"`
	Items           []SaleLine `json:"items"`
	MontantPaye     float64    `json:"montant_paye"`
}

// SaleItem is a persisted sale line.
type SaleItem struct {
	ID                int64   `json:"id"`
	SaleID            int64   `json:"vente_id"`
	ProductID         int64   `json:"produit_id"`
	IMEI              string  `json:"imei"`
	Marque            string  `json:"marque"`
	Modele            string  `json:"modele"`
	Stockage          string  `json:"stockage"`
	Type              string  `json:"type"`
	TypeCarton        string  `json:"type_carton,omitempty"`
	QuantiteVendue    int     `json:"quantite_vendue"`
	PrixUnitaireVente float64 `json:"prix_unitaire_vente"`
	PrixAchat         float64 `json:"prix_achat"`
}

// Sale is a recorded transaction.
type Sale struct {
	ID              int64      `json:"id"`
	Reference       uuid.UUID  `json:"reference"`
	ClientID        int64      `json:"client_id"`
	NomClient       string     `json:"nom_client"`
	ClientTelephone string     `json:"client_telephone"`
	Total           float64    `json:"montant_total"`
	MontantPaye     float64    `json:"montant_paye"`
	ResteAPayer     float64    `json:"reste_a_payer"`
	Statut          string     `json:"statut_paiement"`
	Vendeur         string     `json:"vendeur,omitempty"`
	DateVente       time.Time  `json:"date_vente"`
	Items           []SaleItem `json:"items,omitempty"`
}

// SaleResult is the success body of POST /api/ventes.
type SaleResult struct {
	Message string `json:"message"`
	Sale    Sale   `json:"vente"`
}

// ReportLine aggregates sales of one day.
type ReportLine struct {
	Jour            string  `json:"jour"`
	NbVentes        int     `json:"nb_ventes"`
	ChiffreAffaires float64 `json:"chiffre_affaires"`
	Benefice        float64 `json:"benefice"`
}

// Report summarizes sales over a date range.
type Report struct {
	From            time.Time    `json:"from"`
	To              time.Time    `json:"to"`
	NbVentes        int          `json:"nb_ventes"`
	NbArticles      int          `json:"nb_articles"`
	ChiffreAffaires float64      `json:"chiffre_affaires"`
	Encaisse        float64      `json:"encaisse"`
	Dettes          float64      `json:"dettes"`
	Benefice        float64      `json:"benefice"`
	Lignes          []ReportLine `json:"lignes"`
}

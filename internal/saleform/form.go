// Package saleform drives the new-sale form: it loads clients and sellable
// products, edits a sale.Draft and posts it.
package saleform

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/niangadou-pos/internal/apiclient"
	"github.com/and161185/niangadou-pos/internal/model"
	"github.com/and161185/niangadou-pos/internal/sale"
)

// State of the form.
type State int

const (
	Loading State = iota
	Ready
	Submitting
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Submitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// StatusKind classifies the banner shown above the form.
type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusSuccess
	StatusError
)

// Status is the banner. The zero value shows nothing.
type Status struct {
	Kind StatusKind
	Text string
}

// Operator messages.
const (
	MsgSaleRecorded   = "Vente enregistrée avec succès."
	MsgSaleUnknown    = "Erreur inconnue lors de la vente."
	MsgSaleTransport  = "Erreur de communication avec le serveur."
	msgLoadPrefix     = "Erreur lors du chargement des données: "
	msgClientsFailed  = "Échec de la récupération des clients."
	msgProductsFailed = "Échec de la récupération des produits."
)

// ErrNotReady is returned by Submit while loading or submitting.
var ErrNotReady = errors.New("form not ready")

// API is the part of the backend client the form uses.
type API interface {
	Clients(ctx context.Context) ([]model.Client, error)
	Products(ctx context.Context) ([]model.Product, error)
	CreateSale(ctx context.Context, req model.SaleRequest) (model.SaleResult, error)
}

// Form holds the draft and the loaded reference data. It is not safe for
// concurrent use.
type Form struct {
	api API
	log *zap.Logger

	state    State
	status   Status
	draft    sale.Draft
	clients  []model.Client
	products []model.Product
	last     *model.SaleResult
}

// New returns a form in the Loading state with an empty draft.
func New(api API, log *zap.Logger) *Form {
	if log == nil {
		log = zap.NewNop()
	}
	return &Form{api: api, log: log, state: Loading, draft: sale.NewDraft()}
}

func (f *Form) State() State                { return f.state }
func (f *Form) Status() Status              { return f.status }
func (f *Form) Clients() []model.Client     { return f.clients }
func (f *Form) Products() []model.Product   { return f.products }
func (f *Form) LastSale() *model.SaleResult { return f.last }

// Draft returns a copy of the current draft.
func (f *Form) Draft() sale.Draft {
	d := f.draft
	d.Items = append([]sale.DraftItem(nil), f.draft.Items...)
	return d
}

// Total is the client-side estimate of the draft amount.
func (f *Form) Total() float64 { return sale.Total(f.draft, f.products) }

// FetchData loads clients then products. On failure the status carries the
// error and data loaded before it is kept.
func (f *Form) FetchData(ctx context.Context) error {
	f.status = Status{}
	return f.fetch(ctx)
}

func (f *Form) fetch(ctx context.Context) error {
	f.state = Loading
	defer func() { f.state = Ready }()

	clients, err := f.api.Clients(ctx)
	if err != nil {
		return f.loadFailed(err, msgClientsFailed)
	}
	f.clients = clients

	products, err := f.api.Products(ctx)
	if err != nil {
		return f.loadFailed(err, msgProductsFailed)
	}
	f.products = sale.Sellable(products)
	return nil
}

func (f *Form) loadFailed(err error, fallback string) error {
	f.log.Debug("load sale form data", zap.Error(err))
	msg := err.Error()
	if se, ok := apiclient.AsServer(err); ok {
		msg = se.Message
		if msg == "" {
			msg = fallback
		}
	}
	f.status = Status{Kind: StatusError, Text: msgLoadPrefix + msg}
	return err
}

// SetClientName edits the client name. An exact match on a known client
// fills the phone, anything else clears it.
func (f *Form) SetClientName(v string) {
	f.draft.ClientNom = v
	f.draft.ClientTelephone = ""
	for _, c := range f.clients {
		if c.Nom == v {
			f.draft.ClientTelephone = c.Telephone
			break
		}
	}
	f.status = Status{}
}

func (f *Form) SetClientPhone(v string) {
	f.draft.ClientTelephone = v
	f.status = Status{}
}

// SetIMEI edits line i.
func (f *Form) SetIMEI(i int, v string) error {
	if i < 0 || i >= len(f.draft.Items) {
		return fmt.Errorf("item %d out of range", i)
	}
	f.draft.Items[i].IMEI = v
	f.status = Status{}
	return nil
}

// AddItem appends an empty line.
func (f *Form) AddItem() { f.draft.Items = append(f.draft.Items, sale.DraftItem{}) }

// RemoveItem drops line i. The draft may end up with no lines.
func (f *Form) RemoveItem(i int) error {
	if i < 0 || i >= len(f.draft.Items) {
		return fmt.Errorf("item %d out of range", i)
	}
	f.draft.Items = append(f.draft.Items[:i:i], f.draft.Items[i+1:]...)
	return nil
}

func (f *Form) SetAmount(v string) {
	f.draft.MontantPaye = v
	f.status = Status{}
}

// Submit validates the draft and posts it. A rejected draft never reaches
// the network. On success the draft is reset and the data reloaded.
func (f *Form) Submit(ctx context.Context) (model.SaleResult, error) {
	if f.state != Ready {
		return model.SaleResult{}, ErrNotReady
	}
	f.status = Status{}
	f.state = Submitting
	defer func() {
		if f.state == Submitting {
			f.state = Ready
		}
	}()

	var payload model.SaleRequest
	switch r := sale.Validate(f.draft, f.products).(type) {
	case sale.Invalid:
		f.status = Status{Kind: StatusError, Text: r.Message}
		return model.SaleResult{}, r
	case sale.Valid:
		payload = r.Payload
	}

	res, err := f.api.CreateSale(ctx, payload)
	if err != nil {
		f.log.Debug("submit sale", zap.Error(err))
		text := MsgSaleTransport
		if se, ok := apiclient.AsServer(err); ok {
			text = se.Message
			if text == "" {
				text = MsgSaleUnknown
			}
		}
		f.status = Status{Kind: StatusError, Text: text}
		return model.SaleResult{}, err
	}

	f.last = &res
	f.status = Status{Kind: StatusSuccess, Text: MsgSaleRecorded}
	f.draft = sale.NewDraft()
	if err := f.fetch(ctx); err != nil {
		f.log.Debug("reload after sale", zap.Error(err))
	}
	return res, nil
}

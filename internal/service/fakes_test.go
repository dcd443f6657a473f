package service

import (
	"context"
	"time"

	"github.com/and161185/niangadou-pos/internal/errs"
	"github.com/and161185/niangadou-pos/internal/model"
	"github.com/and161185/niangadou-pos/internal/repository"
)

func fp(v float64) *float64 { return &v }

type fakeClients struct {
	list  []model.Client
	err   error
	calls int
}

func (f *fakeClients) List(context.Context) ([]model.Client, error) {
	f.calls++
	return f.list, f.err
}

type fakeProducts struct {
	list    []model.Product
	err     error
	calls   int
	created []model.Product
	onList  func()
}

func (f *fakeProducts) List(_ context.Context, imei string) ([]model.Product, error) {
	f.calls++
	if f.onList != nil {
		f.onList()
	}
	if f.err != nil {
		return nil, f.err
	}
	if imei == "" {
		return f.list, nil
	}
	out := []model.Product{}
	for _, p := range f.list {
		if p.IMEI == imei {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Create(_ context.Context, p *model.Product) error {
	if f.err != nil {
		return f.err
	}
	for _, q := range f.list {
		if q.IMEI == p.IMEI {
			return errs.ErrAlreadyExists
		}
	}
	p.ID = int64(len(f.list) + 1)
	f.list = append(f.list, *p)
	f.created = append(f.created, *p)
	return nil
}

// fakeSales keeps units by IMEI and applies the same locking rules as the
// database implementation.
type fakeSales struct {
	units  map[string]model.Product
	stored []model.Sale
	err    error

	gotNom, gotTel string
	gotIMEIs       []string
}

var _ repository.SaleRepository = (*fakeSales)(nil)

func (f *fakeSales) Record(_ context.Context, nom, tel string, imeis []string, settle repository.SaleSettler) (model.Sale, error) {
	f.gotNom, f.gotTel, f.gotIMEIs = nom, tel, imeis
	if f.err != nil {
		return model.Sale{}, f.err
	}
	units := make([]model.Product, 0, len(imeis))
	for _, imei := range imeis {
		u, ok := f.units[imei]
		if !ok {
			return model.Sale{}, errs.ErrNotFound
		}
		if u.Status != model.StatusActive || u.Quantite != 1 {
			return model.Sale{}, errs.ErrOutOfStock
		}
		units = append(units, u)
	}
	client := model.Client{ID: 1, Nom: nom, Telephone: tel}
	s, err := settle(client, units)
	if err != nil {
		return model.Sale{}, err
	}
	for _, u := range units {
		u.Status, u.Quantite = model.StatusSold, 0
		f.units[u.IMEI] = u
	}
	s.ID = int64(len(f.stored) + 1)
	s.ClientID, s.NomClient, s.ClientTelephone = client.ID, client.Nom, client.Telephone
	s.DateVente = time.Now()
	f.stored = append(f.stored, s)
	return s, nil
}

func (f *fakeSales) Get(_ context.Context, id int64) (*model.Sale, error) {
	for _, s := range f.stored {
		if s.ID == id {
			c := s
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeSales) List(_ context.Context, flt repository.SaleFilter) ([]model.Sale, error) {
	out := []model.Sale{}
	for _, s := range f.stored {
		if flt.DebtsOnly && s.ResteAPayer <= 0 {
			continue
		}
		out = append(out, s)
	}
	return out, f.err
}

func (f *fakeSales) ItemsBetween(_ context.Context, from, to time.Time) ([]model.Sale, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Sale{}
	for _, s := range f.stored {
		if !s.DateVente.Before(from) && s.DateVente.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/and161185/niangadou-pos/internal/errs"
	"github.com/and161185/niangadou-pos/internal/model"
	"github.com/and161185/niangadou-pos/internal/repository"
)

// DayLayout is the date format of report bounds and daily lines.
const DayLayout = "2006-01-02"

// ReportService aggregates recorded sales.
type ReportService interface {
	// Summary covers the calendar days from..to inclusive.
	Summary(ctx context.Context, from, to time.Time) (model.Report, error)
	// Export writes the summary and its sale lines as an xlsx workbook.
	Export(ctx context.Context, from, to time.Time, w io.Writer) error
}

type ReportServiceImpl struct {
	sales repository.SaleRepository
}

func NewReportService(sales repository.SaleRepository) *ReportServiceImpl {
	return &ReportServiceImpl{sales: sales}
}

func (s *ReportServiceImpl) Summary(ctx context.Context, from, to time.Time) (model.Report, error) {
	rep, _, err := s.load(ctx, from, to)
	return rep, err
}

func (s *ReportServiceImpl) load(ctx context.Context, from, to time.Time) (model.Report, []model.Sale, error) {
	from = startOfDay(from)
	to = startOfDay(to)
	if to.Before(from) {
		return model.Report{}, nil, fmt.Errorf("La date de fin précède la date de début: %w", errs.ErrValidation)
	}
	sales, err := s.sales.ItemsBetween(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return model.Report{}, nil, err
	}
	return Aggregate(from, to, sales), sales, nil
}

type dayTotals struct {
	count          int
	revenue, gross decimal.Decimal
}

// Aggregate computes report totals. Profit is the sum of sale price minus
// purchase price over every line.
func Aggregate(from, to time.Time, sales []model.Sale) model.Report {
	rep := model.Report{From: from, To: to, Lignes: []model.ReportLine{}}
	var revenue, paid, debts, profit decimal.Decimal
	days := map[string]*dayTotals{}
	var order []string

	for _, s := range sales {
		total := decimal.NewFromFloat(s.Total)
		collected := decimal.NewFromFloat(s.MontantPaye)
		revenue = revenue.Add(total)
		paid = paid.Add(decimal.Min(collected, total))
		debts = debts.Add(decimal.Max(total.Sub(collected), decimal.Zero))

		var margin decimal.Decimal
		for _, it := range s.Items {
			qty := decimal.NewFromInt(int64(it.QuantiteVendue))
			line := decimal.NewFromFloat(it.PrixUnitaireVente).Sub(decimal.NewFromFloat(it.PrixAchat)).Mul(qty)
			margin = margin.Add(line)
			rep.NbArticles += it.QuantiteVendue
		}
		profit = profit.Add(margin)

		key := s.DateVente.In(from.Location()).Format(DayLayout)
		d, ok := days[key]
		if !ok {
			d = &dayTotals{}
			days[key] = d
			order = append(order, key)
		}
		d.count++
		d.revenue = d.revenue.Add(total)
		d.gross = d.gross.Add(margin)
	}

	rep.NbVentes = len(sales)
	rep.ChiffreAffaires = revenue.Round(2).InexactFloat64()
	rep.Encaisse = paid.Round(2).InexactFloat64()
	rep.Dettes = debts.Round(2).InexactFloat64()
	rep.Benefice = profit.Round(2).InexactFloat64()
	for _, key := range order {
		d := days[key]
		rep.Lignes = append(rep.Lignes, model.ReportLine{
			Jour:            key,
			NbVentes:        d.count,
			ChiffreAffaires: d.revenue.Round(2).InexactFloat64(),
			Benefice:        d.gross.Round(2).InexactFloat64(),
		})
	}
	return rep
}

const (
	summarySheet = "Rapport"
	salesSheet   = "Ventes"
)

func (s *ReportServiceImpl) Export(ctx context.Context, from, to time.Time, w io.Writer) error {
	rep, sales, err := s.load(ctx, from, to)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(salesSheet); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	summary := [][]any{
		{"Jour", "Ventes", "Chiffre d'affaires", "Bénéfice"},
	}
	for _, l := range rep.Lignes {
		summary = append(summary, []any{l.Jour, l.NbVentes, l.ChiffreAffaires, l.Benefice})
	}
	summary = append(summary,
		[]any{"Total", rep.NbVentes, rep.ChiffreAffaires, rep.Benefice},
		[]any{"Encaissé", nil, rep.Encaisse},
		[]any{"Dettes", nil, rep.Dettes},
	)
	if err := writeRows(f, summarySheet, summary, headerStyle); err != nil {
		return err
	}

	lines := [][]any{
		{"Date", "Référence", "Client", "IMEI", "Marque", "Modèle", "Prix vente", "Prix achat", "Statut"},
	}
	for _, sl := range sales {
		for _, it := range sl.Items {
			lines = append(lines, []any{
				sl.DateVente.In(rep.From.Location()).Format("2006-01-02 15:04"), sl.Reference.String(), sl.NomClient,
				it.IMEI, it.Marque, it.Modele, it.PrixUnitaireVente, it.PrixAchat, sl.Statut,
			})
		}
	}
	if err := writeRows(f, salesSheet, lines, headerStyle); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

// writeRows fills sheet from A1, styling the first row as a header.
func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

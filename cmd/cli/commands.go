package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/and161185/niangadou-pos/internal/model"
	"github.com/and161185/niangadou-pos/internal/sale"
	"github.com/and161185/niangadou-pos/internal/saleform"
)

const dayLayout = "2006-01-02"

// registerSections wires the sections this client can draw.
func (a *app) registerSections() {
	a.shell.Handle("Produits", a.renderProducts)
	a.shell.Handle("Vente", a.renderSaleForm)
	a.shell.Handle("Sorties", func(ctx context.Context, w io.Writer) error { return a.renderSales(ctx, w, false) })
	a.shell.Handle("Factures", func(ctx context.Context, w io.Writer) error { return a.renderSales(ctx, w, false) })
	a.shell.Handle("Dettes", func(ctx context.Context, w io.Writer) error { return a.renderSales(ctx, w, true) })
	a.shell.Handle("Clients", a.renderClients)
	a.shell.Handle("Rapport", func(ctx context.Context, w io.Writer) error {
		from, to := monthToDate(time.Now())
		return a.renderReport(ctx, w, from, to)
	})
	a.shell.Handle("Bénéfices", func(ctx context.Context, w io.Writer) error {
		today := time.Now().Format(dayLayout)
		return a.renderReport(ctx, w, today, today)
	})
	a.shell.Handle("Recherche", func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintln(w, "Recherche par IMEI: npos products -imei <code>")
		return err
	})
}

func monthToDate(now time.Time) (string, string) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.Format(dayLayout), now.Format(dayLayout)
}

func (a *app) sale(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("sale", flag.ContinueOnError)
	fs.SetOutput(a.errw)
	client := fs.String("client", "", "client name")
	tel := fs.String("tel", "", "client phone (filled from the client list when empty)")
	paid := fs.String("paid", "0", "amount paid")
	var imeis stringList
	fs.Var(&imeis, "imei", "unit code, repeatable")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	form := saleform.New(a.api, a.log)
	if err := form.FetchData(ctx); err != nil {
		fmt.Fprintln(a.errw, form.Status().Text)
		return 1
	}
	form.SetClientName(*client)
	if *tel != "" {
		form.SetClientPhone(*tel)
	}
	if len(imeis) == 0 {
		_ = form.RemoveItem(0)
	}
	for i, code := range imeis {
		if i > 0 {
			form.AddItem()
		}
		_ = form.SetIMEI(i, code)
	}
	form.SetAmount(*paid)

	res, err := form.Submit(ctx)
	if err != nil {
		fmt.Fprintln(a.errw, form.Status().Text)
		return 1
	}
	fmt.Fprintln(a.out, form.Status().Text)
	printSale(a.out, res.Sale)
	return 0
}

func (a *app) products(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	fs.SetOutput(a.errw)
	all := fs.Bool("all", false, "include sold and bulk units")
	imei := fs.String("imei", "", "look one unit up")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *imei != "" {
		found, err := a.api.SearchProduct(ctx, *imei)
		if err != nil {
			return a.fail(err)
		}
		if len(found) == 0 {
			fmt.Fprintf(a.errw, "Aucun produit pour l'IMEI %q.\n", *imei)
			return 1
		}
		return a.check(writeProducts(a.out, found), "")
	}

	ps, err := a.api.Products(ctx)
	if err != nil {
		return a.fail(err)
	}
	if !*all {
		ps = sale.Sellable(ps)
	}
	return a.check(writeProducts(a.out, ps), "")
}

func (a *app) sales(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("sales", flag.ContinueOnError)
	fs.SetOutput(a.errw)
	debts := fs.Bool("dettes", false, "only sales with an outstanding balance")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return a.check(a.renderSales(ctx, a.out, *debts), "")
}

func (a *app) invoice(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("invoice", flag.ContinueOnError)
	fs.SetOutput(a.errw)
	id := fs.Int64("id", 0, "sale id")
	asJSON := fs.Bool("json", false, "print raw JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *id <= 0 {
		fmt.Fprintln(a.errw, "need -id")
		return 2
	}
	s, err := a.api.Sale(ctx, *id)
	if err != nil {
		return a.fail(err)
	}
	if *asJSON {
		printJSON(a.out, s)
		return 0
	}
	printSale(a.out, s)
	return 0
}

func (a *app) report(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(a.errw)
	from := fs.String("from", "", "first day, YYYY-MM-DD (default today)")
	to := fs.String("to", "", "last day, YYYY-MM-DD (default today)")
	xlsx := fs.String("xlsx", "", "write the spreadsheet export to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *xlsx == "" {
		return a.check(a.renderReport(ctx, a.out, *from, *to), "")
	}

	f, err := os.Create(*xlsx)
	if err != nil {
		return a.fail(err)
	}
	n, err := a.api.ExportReport(ctx, *from, *to, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(*xlsx)
		return a.fail(err)
	}
	a.log.Debug("report exported", zap.String("file", *xlsx), zap.Int64("bytes", n))
	fmt.Fprintf(a.out, "%s (%s)\n", *xlsx, humanize.Bytes(uint64(n)))
	return 0
}

func (a *app) renderProducts(ctx context.Context, w io.Writer) error {
	ps, err := a.api.Products(ctx)
	if err != nil {
		return err
	}
	return writeProducts(w, sale.Sellable(ps))
}

func (a *app) renderSaleForm(ctx context.Context, w io.Writer) error {
	form := saleform.New(a.api, a.log)
	_ = form.FetchData(ctx)
	return form.Render(w)
}

func (a *app) renderClients(ctx context.Context, w io.Writer) error {
	cs, err := a.api.Clients(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOM\tTÉLÉPHONE")
	for _, c := range cs {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Nom, c.Telephone)
	}
	return tw.Flush()
}

func (a *app) renderSales(ctx context.Context, w io.Writer, debtsOnly bool) error {
	ss, err := a.api.Sales(ctx, debtsOnly)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCLIENT\tTOTAL\tPAYÉ\tRESTE\tSTATUT")
	for _, s := range ss {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.DateVente.Format("2006-01-02 15:04"), s.NomClient,
			cfa(s.Total), cfa(s.MontantPaye), cfa(s.ResteAPayer), s.Statut)
	}
	return tw.Flush()
}

func (a *app) renderReport(ctx context.Context, w io.Writer, from, to string) error {
	r, err := a.api.Report(ctx, from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Du %s au %s\n", r.From.Format(dayLayout), r.To.Format(dayLayout))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Ventes\t%d\n", r.NbVentes)
	fmt.Fprintf(tw, "Articles\t%d\n", r.NbArticles)
	fmt.Fprintf(tw, "Chiffre d'affaires\t%s\n", cfa(r.ChiffreAffaires))
	fmt.Fprintf(tw, "Encaissé\t%s\n", cfa(r.Encaisse))
	fmt.Fprintf(tw, "Dettes\t%s\n", cfa(r.Dettes))
	fmt.Fprintf(tw, "Bénéfice\t%s\n", cfa(r.Benefice))
	if len(r.Lignes) > 0 {
		fmt.Fprintln(tw, "\nJOUR\tVENTES\tCA\tBÉNÉFICE")
		for _, l := range r.Lignes {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", l.Jour, l.NbVentes, cfa(l.ChiffreAffaires), cfa(l.Benefice))
		}
	}
	return tw.Flush()
}

func writeProducts(w io.Writer, ps []model.Product) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IMEI\tMARQUE\tMODÈLE\tSTOCKAGE\tTYPE\tQTÉ\tPRIX\tSTATUT")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			p.IMEI, p.Marque, p.Modele, p.Stockage, p.Type, p.Quantite, sale.FormatCFA(p.PrixVente), p.Status)
	}
	return tw.Flush()
}

func printSale(w io.Writer, s model.Sale) {
	fmt.Fprintf(w, "Vente #%d  %s\n", s.ID, s.DateVente.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Client: %s %s\n", s.NomClient, s.ClientTelephone)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, it := range s.Items {
		fmt.Fprintf(tw, "  %s\t%s %s %s\t%s\n", it.IMEI, it.Marque, it.Modele, it.Stockage, cfa(it.PrixUnitaireVente))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Total: %s  Payé: %s  Reste: %s  (%s)\n",
		cfa(s.Total), cfa(s.MontantPaye), cfa(s.ResteAPayer), s.Statut)
}

func cfa(v float64) string { return sale.FormatCFA(&v) }

// Command npos is the terminal dashboard of the Niangadou POS.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/and161185/niangadou-pos/internal/apiclient"
	"github.com/and161185/niangadou-pos/internal/dashboard"
)

// Set with -ldflags "-X main.mode=production".
var (
	version   = "dev"
	buildDate = "unknown"
	mode      = "development"
)

const usageText = `npos - Niangadou POS terminal dashboard
Usage:
  npos [-addr URL] [-v] <cmd> [args]

Commands:
  version
  login     -u <username> -p <password>
  logout                                  (forgets session and preferences)
  whoami
  sections                                (sidebar, active marked)
  open      <section>                     (select and render)
  show                                    (render active section)
  theme                                   (toggle light/dark)
  sale      -client <nom> [-tel <tel>] -imei <code> [-imei <code>...] -paid <montant>
  products  [-all] [-imei <code>]
  clients
  sales     [-dettes]
  invoice   -id <vente>
  report    [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-xlsx file]
`

type app struct {
	api   *apiclient.Client
	store *dashboard.Store
	shell *dashboard.Shell
	log   *zap.Logger
	out   io.Writer
	errw  io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches subcommands and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("npos", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", apiclient.BaseURL(mode), "backend base URL")
	verbose := fs.Bool("v", false, "trace failures on stderr")
	fs.Usage = func() { fmt.Fprint(stderr, usageText) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}

	a, err := newApp(*addr, *verbose, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = a.log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "npos %s (%s, %s)\n", version, buildDate, mode)
		return 0
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.check(a.shell.Logout(), "ok")
	case "whoami":
		if !a.shell.LoggedIn() {
			return a.needLogin()
		}
		fmt.Fprintln(stdout, a.shell.DisplayName())
		return 0
	case "sections":
		for _, name := range dashboard.Sections {
			mark := "  "
			if name == a.shell.Active() {
				mark = "> "
			}
			fmt.Fprintln(stdout, mark+name)
		}
		return 0
	case "theme":
		if err := a.shell.ToggleTheme(); err != nil {
			return a.fail(err)
		}
		if a.shell.Dark() {
			fmt.Fprintln(stdout, dashboard.ThemeDark)
		} else {
			fmt.Fprintln(stdout, dashboard.ThemeLight)
		}
		return 0
	case "open":
		if len(rest) < 1 {
			fmt.Fprintln(stderr, "need a section name")
			return 2
		}
		if !a.shell.LoggedIn() {
			return a.needLogin()
		}
		if err := a.shell.Select(strings.Join(rest, " ")); err != nil {
			return a.fail(err)
		}
		return a.check(a.shell.Render(ctx, stdout), "")
	case "show":
		if !a.shell.LoggedIn() {
			return a.needLogin()
		}
		return a.check(a.shell.Render(ctx, stdout), "")
	case "sale", "products", "clients", "sales", "invoice", "report":
		// section data, same gate as show
		if !a.shell.LoggedIn() {
			return a.needLogin()
		}
	}

	switch cmd {
	case "sale":
		return a.sale(ctx, rest)
	case "products":
		return a.products(ctx, rest)
	case "clients":
		return a.check(a.renderClients(ctx, stdout), "")
	case "sales":
		return a.sales(ctx, rest)
	case "invoice":
		return a.invoice(ctx, rest)
	case "report":
		return a.report(ctx, rest)
	default:
		fs.Usage()
		return 2
	}
}

func newApp(addr string, verbose bool, stdout, stderr io.Writer) (*app, error) {
	log := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			log = l
		}
	}

	store, err := dashboard.OpenStore(dashboard.DefaultStorePath())
	if err != nil {
		return nil, err
	}
	shell := dashboard.Open(store)
	if f, ok := stdout.(*os.File); ok {
		shell.SetColor(isatty.IsTerminal(f.Fd()))
	}

	var opts []apiclient.Option
	if tok := shell.Token(); tok != "" {
		opts = append(opts, apiclient.WithToken(tok))
	}
	a := &app{
		api:   apiclient.New(addr, opts...),
		store: store,
		shell: shell,
		log:   log.Named("npos"),
		out:   stdout,
		errw:  stderr,
	}
	a.registerSections()
	return a, nil
}

func (a *app) login(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.errw)
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *u == "" || *p == "" {
		fmt.Fprintln(a.errw, "need -u and -p")
		return 2
	}

	sess, msg, err := dashboard.Login(ctx, a.api, a.store, *u, *p)
	if err != nil {
		a.log.Debug("login failed", zap.String("username", *u), zap.Error(err))
		fmt.Fprintln(a.errw, msg)
		return 1
	}
	name := sess.FullName
	if name == "" {
		name = sess.Username
	}
	fmt.Fprintf(a.out, "Connecté: %s\n", name)
	return 0
}

func (a *app) needLogin() int {
	fmt.Fprintln(a.errw, "Non connecté. Utilisez: npos login -u <username> -p <password>")
	return 1
}

func (a *app) check(err error, okMsg string) int {
	if err != nil {
		return a.fail(err)
	}
	if okMsg != "" {
		fmt.Fprintln(a.out, okMsg)
	}
	return 0
}

// fail prints the operator message for err: the server's text when it sent
// one, a generic line for transport failures.
func (a *app) fail(err error) int {
	a.log.Debug("command failed", zap.Error(err))
	switch se, ok := apiclient.AsServer(err); {
	case ok && se.Text() != "":
		fmt.Fprintln(a.errw, "❌ "+se.Text())
	case ok:
		fmt.Fprintf(a.errw, "❌ Erreur inconnue (HTTP %d)\n", se.Status)
	case apiclient.IsTransport(err):
		fmt.Fprintln(a.errw, "❌ Erreur serveur")
	default:
		fmt.Fprintln(a.errw, err)
	}
	return 1
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	if v == "" {
		return errors.New("empty value")
	}
	*s = append(*s, v)
	return nil
}

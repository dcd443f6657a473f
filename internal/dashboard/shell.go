package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Home is the default section.
const Home = "Accueil"

// Purchase is routable but not listed in the sidebar.
const Purchase = "Achat"

// Sections is the sidebar, in display order.
var Sections = []string{
	Home,
	"Produits",
	"Vente",
	"Sorties",
	"Factures",
	"Recherche",
	"Bénéfices",
	"Dettes",
	"Rapport",
	"Clients",
	"Retour mobile",
	"Liste Fournisseurs",
	"Rtrs Fournisseur",
}

// Theme values.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ErrUnknownSection is returned by Select for names outside the sidebar.
var ErrUnknownSection = errors.New("unknown section")

// Renderer draws one section.
type Renderer func(ctx context.Context, w io.Writer) error

// Shell routes between sections. Exactly one section is active at a time.
type Shell struct {
	store     *Store
	active    string
	renderers map[string]Renderer
	color     bool
}

// Open restores the active section from store, defaulting to Home.
func Open(store *Store) *Shell {
	sh := &Shell{store: store, active: Home, renderers: map[string]Renderer{}}
	if v, ok := store.Get(KeyActiveSection); ok && v != "" {
		sh.active = v
	}
	for _, name := range Sections {
		sh.renderers[name] = unavailable(name)
	}
	sh.renderers[Purchase] = unavailable(Purchase)
	sh.renderers[Home] = sh.home
	return sh
}

// Handle registers r as the renderer of section name.
func (s *Shell) Handle(name string, r Renderer) { s.renderers[name] = r }

// SetColor enables ANSI colors in Render.
func (s *Shell) SetColor(on bool) { s.color = on }

// Active returns the selected section name.
func (s *Shell) Active() string { return s.active }

// Select activates name and persists it.
func (s *Shell) Select(name string) error {
	if _, ok := s.renderers[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSection, name)
	}
	s.active = name
	return s.store.Set(KeyActiveSection, name)
}

// DisplayName is the stored full name, else the username.
func (s *Shell) DisplayName() string {
	if v, _ := s.store.Get(KeyFullName); v != "" {
		return v
	}
	v, _ := s.store.Get(KeyUsername)
	return v
}

// LoggedIn is false when no display name is stored; callers redirect to login.
func (s *Shell) LoggedIn() bool { return s.DisplayName() != "" }

// Token returns the stored bearer token.
func (s *Shell) Token() string {
	v, _ := s.store.Get(KeyToken)
	return v
}

// Dark reports the persisted theme. An absent theme is light.
func (s *Shell) Dark() bool {
	v, _ := s.store.Get(KeyTheme)
	return v == ThemeDark
}

// ToggleTheme flips and persists the theme.
func (s *Shell) ToggleTheme() error {
	next := ThemeDark
	if s.Dark() {
		next = ThemeLight
	}
	return s.store.Set(KeyTheme, next)
}

// Logout forgets the session and every preference.
func (s *Shell) Logout() error {
	s.active = Home
	return s.store.Clear()
}

// Render draws the header, the sidebar and the active section. Unknown
// section names fall back to Home.
func (s *Shell) Render(ctx context.Context, w io.Writer) error {
	p := paletteFor(s.Dark(), s.color)

	fmt.Fprintf(w, "%sETS NIANGADOU ELECTRO%s  %s\n\n", p.title, p.reset, s.DisplayName())
	for _, name := range Sections {
		if name == s.active {
			fmt.Fprintf(w, "%s> %s%s\n", p.active, name, p.reset)
			continue
		}
		fmt.Fprintf(w, "  %s\n", name)
	}

	name := s.active
	r, ok := s.renderers[name]
	if !ok {
		name, r = Home, s.renderers[Home]
	}
	fmt.Fprintf(w, "\n%s%s%s\n", p.title, name, p.reset)
	return r(ctx, w)
}

func (s *Shell) home(_ context.Context, w io.Writer) error {
	_, err := fmt.Fprintf(w, "Bienvenue, %s.\n", s.DisplayName())
	return err
}

func unavailable(name string) Renderer {
	return func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s: not available in this terminal client\n", name)
		return err
	}
}

type palette struct{ title, active, reset string }

func paletteFor(dark, color bool) palette {
	if !color {
		return palette{}
	}
	if dark {
		return palette{title: "\x1b[1;97m", active: "\x1b[1;44;97m", reset: "\x1b[0m"}
	}
	return palette{title: "\x1b[1;34m", active: "\x1b[1;104;30m", reset: "\x1b[0m"}
}

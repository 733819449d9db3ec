// Package web serves the browsing and data-entry front end over the
// warehouse: listings, two forms, a JSON endpoint and the data marts.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/gorilla/mux"
)

// Options configures NewServer.
type Options struct {
	Addr string
	// Timeout bounds every database call made for one request.
	Timeout time.Duration
	Cache   *Cache
	Logger  log.Logger
}

// Server is the HTTP front end. It embeds the kratos server so it can be
// handed to kratos.Server and driven directly in tests.
type Server struct {
	*khttp.Server

	store   *Store
	cache   *Cache
	timeout time.Duration
	log     *log.Helper
}

func NewServer(store *Store, opt Options) *Server {
	if opt.Logger == nil {
		opt.Logger = log.DefaultLogger
	}
	s := &Server{
		store:   store,
		cache:   opt.Cache,
		timeout: opt.Timeout,
		log:     log.NewHelper(log.With(opt.Logger, "module", "web")),
	}

	opts := []khttp.ServerOption{khttp.Filter(s.recoverFilter, s.accessFilter)}
	if opt.Addr != "" {
		opts = append(opts, khttp.Address(opt.Addr))
	}
	s.Server = khttp.NewServer(opts...)

	s.HandleFunc("/", s.index)
	s.HandleFunc("/usuarios", s.users)
	s.HandleFunc("/filmes", s.movies)
	s.HandleFunc("/avaliacoes", s.ratings)
	s.HandleFunc("/cadastrar_usuario", s.registerUser)
	s.HandleFunc("/avaliar_filme", s.rateMovie)
	s.HandleFunc("/avaliar_filme/{filme}", s.rateMovie)
	s.HandleFunc("/api/filmes", s.apiMovies)
	s.HandleFunc("/data-marts", s.martIndex)
	s.HandleFunc("/data-marts/{slug}", s.mart)
	return s
}

func (s *Server) recoverFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.log.Errorf("panic path=%s: %v", r.URL.Path, v)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Infof("method=%s path=%s status=%d duration=%s", r.Method, r.URL.Path, sw.status, time.Since(start))
	})
}

func (s *Server) dbContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	return false
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allow(w, r, http.MethodGet) {
		return
	}
	s.render(w, r, http.StatusOK, "index", page{Title: "Filmes"})
}

// tablePage renders a query result. A failed query shows a notice and an
// empty table instead of failing the request.
func (s *Server) tablePage(w http.ResponseWriter, r *http.Request, p page, q func(context.Context) (Table, error)) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := s.dbContext(r)
	defer cancel()

	t, err := q(ctx)
	if err != nil {
		s.log.Errorf("page=%q: %v", p.Title, err)
		p.Notices = []Notice{{Kind: "error", Message: "Erro ao carregar dados: " + err.Error()}}
	}
	p.Table = t
	s.render(w, r, http.StatusOK, "table", p)
}

func (s *Server) users(w http.ResponseWriter, r *http.Request) {
	s.tablePage(w, r, page{Title: "Usuários", LinkColumn: -1}, func(ctx context.Context) (Table, error) {
		users, err := s.store.Users(ctx)
		if err != nil {
			return Table{}, err
		}
		t := Table{Columns: []string{"id", "nome", "email", "genero", "pais"}}
		for _, u := range users {
			t.Rows = append(t.Rows, []string{
				strconv.FormatInt(u.ID, 10), u.Nome, u.Email, formatCell(deref(u.Genero)), formatCell(deref(u.Pais)),
			})
		}
		return t, nil
	})
}

func (s *Server) movies(w http.ResponseWriter, r *http.Request) {
	s.tablePage(w, r, page{Title: "Filmes", LinkColumn: 0}, func(ctx context.Context) (Table, error) {
		movies, err := s.store.Movies(ctx)
		if err != nil {
			return Table{}, err
		}
		t := Table{Columns: []string{"titulo", "ano_lancamento", "genero", "nota_imdb"}}
		for _, m := range movies {
			t.Rows = append(t.Rows, []string{m.Titulo, formatCell(deref(m.AnoLancamento)), m.Genero, formatCell(deref(m.NotaIMDB))})
		}
		return t, nil
	})
}

func (s *Server) ratings(w http.ResponseWriter, r *http.Request) {
	s.tablePage(w, r, page{Title: "Avaliações", LinkColumn: -1}, s.store.Ratings)
}

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	p := page{Title: "Cadastrar usuário"}
	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "user_form", p)
		return
	}

	p.Nome = strings.TrimSpace(r.PostFormValue("nome"))
	p.Email = strings.TrimSpace(r.PostFormValue("email"))
	if p.Nome == "" || p.Email == "" {
		p.Notices = []Notice{{Kind: "error", Message: "Nome e email são obrigatórios!"}}
		s.render(w, r, http.StatusOK, "user_form", p)
		return
	}

	ctx, cancel := s.dbContext(r)
	defer cancel()
	if _, err := s.store.CreateUser(ctx, p.Nome, p.Email); err != nil {
		msg := "Erro ao cadastrar usuário: " + err.Error()
		if errors.Is(err, ErrDuplicateEmail) {
			msg = "Email já cadastrado!"
		} else {
			s.log.Errorf("create user: %v", err)
		}
		p.Notices = []Notice{{Kind: "error", Message: msg}}
		s.render(w, r, http.StatusOK, "user_form", p)
		return
	}
	s.cache.Invalidate(ctx)

	setFlash(w, "success", "Usuário cadastrado com sucesso!")
	http.Redirect(w, r, "/usuarios", http.StatusSeeOther)
}

func (s *Server) rateMovie(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	ctx, cancel := s.dbContext(r)
	defer cancel()

	if r.Method == http.MethodPost {
		s.submitRating(ctx, w, r)
		return
	}

	selected := mux.Vars(r)["filme"]
	if selected == "" {
		selected = r.URL.Query().Get("filme")
	}
	p := page{Title: "Avaliar filme", Selected: selected}

	users, err := s.store.Users(ctx)
	if err == nil {
		p.Users = users
		p.Titles, err = s.store.Titles(ctx)
	}
	if err != nil {
		s.log.Errorf("rating form: %v", err)
		p.Notices = []Notice{{Kind: "error", Message: "Erro ao carregar dados: " + err.Error()}}
	}
	s.render(w, r, http.StatusOK, "rating_form", p)
}

func (s *Server) submitRating(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	fail := func(msg string) {
		setFlash(w, "error", msg)
		http.Redirect(w, r, "/avaliar_filme", http.StatusSeeOther)
	}

	rawUser := strings.TrimSpace(r.PostFormValue("user_id"))
	title := strings.TrimSpace(r.PostFormValue("filme_titulo"))
	rawNota := strings.TrimSpace(r.PostFormValue("nota"))
	if rawUser == "" || title == "" || rawNota == "" {
		fail("Usuário, filme e nota são obrigatórios!")
		return
	}
	nota, err := strconv.ParseFloat(rawNota, 64)
	if err != nil {
		fail("Nota deve ser um número válido!")
		return
	}
	if nota < 0 || nota > 10 {
		fail("Nota deve estar entre 0 e 10!")
		return
	}
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil {
		fail("Usuário inválido!")
		return
	}

	if err := s.store.CreateRating(ctx, userID, title, nota, r.PostFormValue("comentario")); err != nil {
		s.log.Errorf("create rating: %v", err)
		fail("Erro ao cadastrar avaliação: " + err.Error())
		return
	}
	s.cache.Invalidate(ctx)

	setFlash(w, "success", "Avaliação cadastrada com sucesso!")
	http.Redirect(w, r, "/avaliacoes", http.StatusSeeOther)
}

// MovieJSON is one element of /api/filmes.
type MovieJSON struct {
	Titulo        string  `json:"titulo"`
	AnoLancamento *int64  `json:"ano_lancamento"`
	Genero        string  `json:"genero"`
	NotaIMDB      float64 `json:"nota_imdb"`
}

func (s *Server) apiMovies(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := s.dbContext(r)
	defer cancel()

	out, err := cached(ctx, s.cache, apiMoviesKey, func(ctx context.Context) ([]MovieJSON, error) {
		movies, err := s.store.Movies(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]MovieJSON, 0, len(movies))
		for _, m := range movies {
			mj := MovieJSON{Titulo: m.Titulo, AnoLancamento: m.AnoLancamento, Genero: m.Genero}
			if m.NotaIMDB != nil {
				mj.NotaIMDB = *m.NotaIMDB
			}
			out = append(out, mj)
		}
		return out, nil
	})

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		s.log.Errorf("api filmes: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) martIndex(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	s.render(w, r, http.StatusOK, "marts", page{Title: "Data Marts"})
}

func (s *Server) mart(w http.ResponseWriter, r *http.Request) {
	m, ok := MartBySlug(mux.Vars(r)["slug"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.tablePage(w, r, page{Title: m.Title, SQL: m.SQL, LinkColumn: -1}, func(ctx context.Context) (Table, error) {
		return cached(ctx, s.cache, martKey(m.Slug), func(ctx context.Context) (Table, error) {
			return s.store.Query(ctx, m.SQL)
		})
	})
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

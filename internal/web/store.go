package web

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// ErrDuplicateEmail is returned when registering an email that exists.
var ErrDuplicateEmail = errors.New("web: email already registered")

// Movie is a row of filmes.
type Movie struct {
	ID            int64    `gorm:"column:id;primaryKey"`
	Titulo        string   `gorm:"column:titulo"`
	AnoLancamento *int64   `gorm:"column:ano_lancamento"`
	Genero        string   `gorm:"column:genero"`
	NotaIMDB      *float64 `gorm:"column:nota_imdb"`
}

func (Movie) TableName() string { return "filmes" }

// User is a row of usuarios. Users registered through the web form have
// no genero or pais.
type User struct {
	ID     int64   `gorm:"column:id;primaryKey"`
	Nome   string  `gorm:"column:nome"`
	Email  string  `gorm:"column:email"`
	Genero *string `gorm:"column:genero"`
	Pais   *string `gorm:"column:pais"`
}

func (User) TableName() string { return "usuarios" }

// Rating is a row of avaliacoes as written by the form. data_avaliacao is
// left to the column default.
type Rating struct {
	ID          int64   `gorm:"column:id;primaryKey"`
	UserID      *int64  `gorm:"column:user_id"`
	FilmeTitulo string  `gorm:"column:filme_titulo"`
	Nota        float64 `gorm:"column:nota"`
	Comentario  *string `gorm:"column:comentario"`
}

func (Rating) TableName() string { return "avaliacoes" }

// OpenDB opens the warehouse through gorm. kind is "postgres" or "sqlite";
// SQLite uses the pure-Go modernc driver.
func OpenDB(kind, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var d gorm.Dialector
	switch kind {
	case "postgres":
		d = postgres.Open(dsn)
	case "sqlite":
		d = sqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	default:
		return nil, fmt.Errorf("web: unsupported warehouse kind %q (postgres|sqlite)", kind)
	}

	db, err := gorm.Open(d, cfg)
	if err != nil {
		return nil, fmt.Errorf("web: open %s: %w", kind, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if kind == "sqlite" {
		// foreign_keys is per connection; one connection keeps it on.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("web: enable foreign keys: %w", err)
		}
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db, nil
}

// Store reads and writes the warehouse for the web pages.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Users(ctx context.Context) ([]User, error) {
	var out []User
	if err := s.db.WithContext(ctx).Order("nome").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (s *Store) Movies(ctx context.Context) ([]Movie, error) {
	var out []Movie
	if err := s.db.WithContext(ctx).Order("titulo").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return out, nil
}

// Titles returns the distinct movie titles, sorted.
func (s *Store) Titles(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&Movie{}).Distinct("titulo").Order("titulo").Pluck("titulo", &out).Error
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	return out, nil
}

const ratingsSQL = `SELECT a.id, u.nome AS usuario_nome, a.filme_titulo, a.nota, a.comentario, a.data_avaliacao
FROM avaliacoes a
JOIN usuarios u ON a.user_id = u.id
ORDER BY a.data_avaliacao DESC, a.id DESC`

// Ratings lists every rating with its author, newest first.
func (s *Store) Ratings(ctx context.Context) (Table, error) {
	return s.Query(ctx, ratingsSQL)
}

// CreateUser registers a user. Emails are compared trimmed and lowercased,
// the form the cleaner stores them in.
func (s *Store) CreateUser(ctx context.Context, nome, email string) (User, error) {
	u := User{Nome: strings.TrimSpace(nome), Email: strings.ToLower(strings.TrimSpace(email))}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateEmail
		}
		return tx.Create(&u).Error
	})
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// CreateRating stores a rating. The score range is enforced by the caller
// and again by the table CHECK.
func (s *Store) CreateRating(ctx context.Context, userID int64, title string, nota float64, comentario string) error {
	r := Rating{UserID: &userID, FilmeTitulo: title, Nota: nota}
	if c := strings.TrimSpace(comentario); c != "" {
		r.Comentario = &c
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("create rating: %w", err)
	}
	return nil
}

// Query runs a read-only statement and formats every cell for display.
func (s *Store) Query(ctx context.Context, q string) (Table, error) {
	rows, err := s.db.WithContext(ctx).Raw(q).Rows()
	if err != nil {
		return Table{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Table{}, err
	}
	t := Table{Columns: cols}
	vals := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return Table{}, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = formatCell(v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

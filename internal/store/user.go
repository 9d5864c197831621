package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tabine/shiori/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var email, slug sql.NullString

	err := scanner.Scan(&u.ID, &u.GoogleSub, &email, &u.Name, &u.AvatarURL, &slug, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		u.Email = &email.String
	}
	if slug.Valid {
		u.PublicSlug = &slug.String
	}
	return &u, nil
}

const userCols = `id, google_sub, email, name, avatar_url, public_slug, created_at, updated_at`

// UpsertByGoogleSub creates the user on first login and refreshes
// profile fields on every later one. The email is stored lowercased and
// only when the provider reports it verified.
func (s *UserStore) UpsertByGoogleSub(sub, email string, emailVerified bool, name, avatarURL string) (*model.User, error) {
	var emailVal sql.NullString
	if email != "" && emailVerified {
		emailVal = sql.NullString{String: strings.ToLower(email), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO users (google_sub, email, name, avatar_url) VALUES (?, ?, ?, ?)
		 ON CONFLICT(google_sub) DO UPDATE SET
		   email = COALESCE(excluded.email, users.email),
		   name = excluded.name,
		   avatar_url = excluded.avatar_url,
		   updated_at = CURRENT_TIMESTAMP`,
		sub, emailVal, name, avatarURL,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE google_sub = ?`, sub)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail matches case-insensitively; stored emails are lowercased.
func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, strings.ToLower(email))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetBySlug(slug string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE public_slug = ?`, slug)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by slug: %w", err)
	}
	return u, nil
}

// Ambiguity-prone characters (0/o, 1/l/i) are left out of slugs.
const slugAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

func generateSlug() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate slug: %w", err)
	}
	for i, b := range buf {
		buf[i] = slugAlphabet[int(b)%len(slugAlphabet)]
	}
	return string(buf), nil
}

// EnsureSlug mints a public slug for the user if they lack one, retrying
// on collision with an already-claimed slug.
func (s *UserStore) EnsureSlug(id int64) (*model.User, error) {
	u, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	if u.PublicSlug != nil {
		return u, nil
	}

	for attempt := 0; attempt < 5; attempt++ {
		slug, err := generateSlug()
		if err != nil {
			return nil, err
		}
		res, err := s.db.Exec(
			`UPDATE users SET public_slug = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND public_slug IS NULL
			   AND NOT EXISTS (SELECT 1 FROM users WHERE public_slug = ?)`,
			slug, id, slug,
		)
		if err != nil {
			return nil, fmt.Errorf("assign slug: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			break
		}
		// Collision, or a concurrent mint already satisfied us.
		u, err = s.GetByID(id)
		if err != nil {
			return nil, err
		}
		if u != nil && u.PublicSlug != nil {
			return u, nil
		}
	}
	return s.GetByID(id)
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

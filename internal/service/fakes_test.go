package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/auth"
	"github.com/sakif/library-catalog/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory implementation of every repository interface.
// A hand-written fake keeps the tests readable: what the fake does is right
// here, not in a mock framework's expectations.
type fakeStore struct {
	users     map[int64]*model.User
	sessions  map[string]*model.Session
	authors   map[int64]*model.Author
	genres    map[int64]*model.Genre
	books     map[int64]*model.Book
	favorites map[int64]map[int64]bool // userID → bookID set
	nextID    int64

	// set to simulate a concurrent insert winning the race after the
	// service's pre-check
	raceUsername string
	raceGenre    string
	// set to simulate a database failure
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[int64]*model.User),
		sessions:  make(map[string]*model.Session),
		authors:   make(map[int64]*model.Author),
		genres:    make(map[int64]*model.Genre),
		books:     make(map[int64]*model.Book),
		favorites: make(map[int64]map[int64]bool),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

// --- users ---

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	if user.Username == f.raceUsername {
		return apperror.UsernameTaken()
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.UsernameTaken()
		}
	}
	user.ID = f.id()
	user.CreatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, apperror.NotFound("user", fmt.Sprint(id))
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

// --- sessions ---

func (f *fakeStore) CreateSession(_ context.Context, s *model.Session) error {
	s.ID = fmt.Sprintf("session-%d", f.id())
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	if s, ok := f.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, apperror.NotFound("session", id)
}

func (f *fakeStore) DeleteSession(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, s := range f.sessions {
		if s.Expired(now) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

// --- authors ---

func (f *fakeStore) CreateAuthor(_ context.Context, a *model.Author) error {
	if f.failWith != nil {
		return f.failWith
	}
	a.ID = f.id()
	copied := *a
	f.authors[a.ID] = &copied
	return nil
}

func (f *fakeStore) GetAuthor(_ context.Context, id int64) (*model.Author, error) {
	if a, ok := f.authors[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, apperror.AuthorNotFound(id)
}

func (f *fakeStore) ListAuthors(_ context.Context) ([]model.Author, error) {
	var out []model.Author
	for _, a := range f.authors {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- genres ---

func (f *fakeStore) CreateGenre(_ context.Context, g *model.Genre) error {
	if g.Name == f.raceGenre {
		return apperror.DuplicateGenre(g.Name)
	}
	for _, existing := range f.genres {
		if existing.Name == g.Name {
			return apperror.DuplicateGenre(g.Name)
		}
	}
	g.ID = f.id()
	copied := *g
	f.genres[g.ID] = &copied
	return nil
}

func (f *fakeStore) GetGenreByName(_ context.Context, name string) (*model.Genre, error) {
	for _, g := range f.genres {
		if g.Name == name {
			copied := *g
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("genre", name)
}

func (f *fakeStore) GetGenres(_ context.Context, ids []int64) ([]model.Genre, error) {
	var out []model.Genre
	for _, id := range ids {
		if g, ok := f.genres[id]; ok {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeStore) ListGenres(_ context.Context) ([]model.Genre, error) {
	var out []model.Genre
	for _, g := range f.genres {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- books ---

func (f *fakeStore) CreateBook(_ context.Context, b *model.Book) error {
	if f.failWith != nil {
		return f.failWith
	}
	b.ID = f.id()
	copied := *b
	copied.GenreIDs = slices.Clone(b.GenreIDs)
	f.books[b.ID] = &copied
	return nil
}

func (f *fakeStore) UpdateBook(_ context.Context, b *model.Book) error {
	if _, ok := f.books[b.ID]; !ok {
		return apperror.BookNotFound(b.ID)
	}
	copied := *b
	copied.GenreIDs = slices.Clone(b.GenreIDs)
	f.books[b.ID] = &copied
	return nil
}

func (f *fakeStore) view(b *model.Book) model.BookView {
	v := model.BookView{Book: *b}
	if a, ok := f.authors[b.AuthorID]; ok {
		v.Author = *a
	}
	for _, id := range b.GenreIDs {
		if g, ok := f.genres[id]; ok {
			v.Genres = append(v.Genres, *g)
		}
	}
	return v
}

func (f *fakeStore) GetBook(_ context.Context, id int64) (*model.BookView, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, apperror.BookNotFound(id)
	}
	v := f.view(b)
	return &v, nil
}

func (f *fakeStore) ListBooks(_ context.Context) ([]model.BookView, error) {
	var out []model.BookView
	for _, b := range f.books {
		out = append(out, f.view(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- favorites ---

func (f *fakeStore) AddFavorite(_ context.Context, userID, bookID int64) error {
	if _, ok := f.books[bookID]; !ok {
		return apperror.BookNotFound(bookID)
	}
	if f.favorites[userID] == nil {
		f.favorites[userID] = make(map[int64]bool)
	}
	f.favorites[userID][bookID] = true
	return nil
}

func (f *fakeStore) RemoveFavorite(_ context.Context, userID, bookID int64) error {
	delete(f.favorites[userID], bookID)
	return nil
}

func (f *fakeStore) IsFavorite(_ context.Context, userID, bookID int64) (bool, error) {
	return f.favorites[userID][bookID], nil
}

func (f *fakeStore) ListFavoriteBooks(_ context.Context, userID int64) ([]model.BookView, error) {
	var out []model.BookView
	for bookID := range f.favorites[userID] {
		out = append(out, f.view(f.books[bookID]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// asUser returns a context carrying user as the logged-in viewer.
func asUser(user *model.User) context.Context {
	return auth.WithUser(context.Background(), user)
}

func seedAuthor(t *testing.T, store *fakeStore, name string) *model.Author {
	t.Helper()
	a := &model.Author{Name: name}
	if err := store.CreateAuthor(context.Background(), a); err != nil {
		t.Fatalf("seeding author: %v", err)
	}
	return a
}

func seedGenre(t *testing.T, store *fakeStore, name string) *model.Genre {
	t.Helper()
	g := &model.Genre{Name: name}
	if err := store.CreateGenre(context.Background(), g); err != nil {
		t.Fatalf("seeding genre: %v", err)
	}
	return g
}

func seedBook(t *testing.T, store *fakeStore, title string, authorID int64) *model.Book {
	t.Helper()
	b := &model.Book{Title: title, AuthorID: authorID}
	if err := store.CreateBook(context.Background(), b); err != nil {
		t.Fatalf("seeding book: %v", err)
	}
	return b
}

package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/model"
)

// =========================================================================
// AUTHOR TESTS
// =========================================================================

func TestCreateAuthor(t *testing.T) {
	db := newTestDB(t)

	author := &model.Author{Name: "Agatha Christie", Biography: "Agatha Christie Bio"}
	if err := db.CreateAuthor(context.Background(), author); err != nil {
		t.Fatalf("CreateAuthor() error = %v", err)
	}
	if author.ID == 0 {
		t.Fatal("CreateAuthor() did not set author.ID")
	}

	found, err := db.GetAuthor(context.Background(), author.ID)
	if err != nil {
		t.Fatalf("GetAuthor() error = %v", err)
	}
	if found.Biography != "Agatha Christie Bio" {
		t.Errorf("Biography = %q, want %q", found.Biography, "Agatha Christie Bio")
	}
}

func TestCreateAuthor_DuplicateNamesAllowed(t *testing.T) {
	db := newTestDB(t)
	first := createTestAuthor(t, db, "Anonymous")
	second := createTestAuthor(t, db, "Anonymous")

	if first.ID == second.ID {
		t.Error("two authors with the same name should get distinct IDs")
	}
}

func TestGetAuthor_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetAuthor(context.Background(), 999)
	if !errors.Is(err, apperror.ErrAuthorNotFound) {
		t.Errorf("GetAuthor() error = %v, want ErrAuthorNotFound", err)
	}
}

func TestListAuthors_OrderedByName(t *testing.T) {
	db := newTestDB(t)
	createTestAuthor(t, db, "J.R.R. Tolkien")
	createTestAuthor(t, db, "F. Scott Fitzgerald")

	authors, err := db.ListAuthors(context.Background())
	if err != nil {
		t.Fatalf("ListAuthors() error = %v", err)
	}
	if len(authors) != 2 {
		t.Fatalf("len = %d, want 2", len(authors))
	}
	if authors[0].Name != "F. Scott Fitzgerald" {
		t.Errorf("first author = %q, want F. Scott Fitzgerald", authors[0].Name)
	}
}

// =========================================================================
// GENRE TESTS
// =========================================================================

func TestCreateGenre_Duplicate(t *testing.T) {
	db := newTestDB(t)
	createTestGenre(t, db, "mystery")

	err := db.CreateGenre(context.Background(), &model.Genre{Name: "mystery"})
	if !errors.Is(err, apperror.ErrDuplicateGenre) {
		t.Errorf("CreateGenre() error = %v, want ErrDuplicateGenre", err)
	}
}

func TestGetGenreByName(t *testing.T) {
	db := newTestDB(t)
	created := createTestGenre(t, db, "fantasy")

	found, err := db.GetGenreByName(context.Background(), "fantasy")
	if err != nil {
		t.Fatalf("GetGenreByName() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}

	if _, err := db.GetGenreByName(context.Background(), "horror"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetGenreByName(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGetGenres_SkipsUnknownIDs(t *testing.T) {
	db := newTestDB(t)
	fantasy := createTestGenre(t, db, "fantasy")
	classic := createTestGenre(t, db, "classic")

	genres, err := db.GetGenres(context.Background(), []int64{fantasy.ID, classic.ID, 999})
	if err != nil {
		t.Fatalf("GetGenres() error = %v", err)
	}
	if len(genres) != 2 {
		t.Fatalf("len = %d, want 2", len(genres))
	}
	if genres[0].Name != "classic" {
		t.Errorf("first genre = %q, want classic (ordered by name)", genres[0].Name)
	}

	empty, err := db.GetGenres(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("GetGenres(nil) = %v, %v; want empty, nil", empty, err)
	}
}

// =========================================================================
// BOOK TESTS
// =========================================================================

func TestCreateBook_WithGenres(t *testing.T) {
	db := newTestDB(t)
	author := createTestAuthor(t, db, "J.R.R. Tolkien")
	fantasy := createTestGenre(t, db, "fantasy")
	adventure := createTestGenre(t, db, "adventure")

	book := &model.Book{
		Title:       "The Hobbit",
		PublishDate: mustDate(t, "1937-09-21"),
		Audience:    model.AudienceChildren,
		AuthorID:    author.ID,
		GenreIDs:    []int64{fantasy.ID, adventure.ID, fantasy.ID},
	}
	if err := db.CreateBook(context.Background(), book); err != nil {
		t.Fatalf("CreateBook() error = %v", err)
	}
	if book.ID == 0 {
		t.Fatal("CreateBook() did not set book.ID")
	}

	view, err := db.GetBook(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("GetBook() error = %v", err)
	}
	if view.Title != "The Hobbit" {
		t.Errorf("Title = %q, want The Hobbit", view.Title)
	}
	if view.Author.Name != "J.R.R. Tolkien" {
		t.Errorf("Author.Name = %q, want J.R.R. Tolkien", view.Author.Name)
	}
	if got := view.PublishDateString(); got != "1937-09-21" {
		t.Errorf("PublishDate = %q, want 1937-09-21", got)
	}
	if view.Audience != model.AudienceChildren {
		t.Errorf("Audience = %q, want CHILDREN", view.Audience)
	}
	if len(view.Genres) != 2 {
		t.Fatalf("len(Genres) = %d, want 2 (duplicate ID collapsed)", len(view.Genres))
	}
	if !view.HasGenre(fantasy.ID) || !view.HasGenre(adventure.ID) {
		t.Errorf("Genres = %v, want fantasy and adventure", view.Genres)
	}
}

func TestCreateBook_OptionalFieldsUnset(t *testing.T) {
	db := newTestDB(t)
	author := createTestAuthor(t, db, "F. Scott Fitzgerald")
	book := createTestBook(t, db, "The Great Gatsby", author.ID)

	view, err := db.GetBook(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("GetBook() error = %v", err)
	}
	if view.PublishDate != nil {
		t.Errorf("PublishDate = %v, want nil", view.PublishDate)
	}
	if view.Audience != "" {
		t.Errorf("Audience = %q, want unset", view.Audience)
	}
	if len(view.Genres) != 0 {
		t.Errorf("Genres = %v, want none", view.Genres)
	}
}

func TestCreateBook_UnknownAuthor(t *testing.T) {
	db := newTestDB(t)

	book := &model.Book{Title: "Orphan", AuthorID: 404}
	err := db.CreateBook(context.Background(), book)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("CreateBook() error = %v, want ErrValidation", err)
	}
	if book.ID != 0 {
		t.Errorf("book.ID = %d after failed create, want 0", book.ID)
	}

	books, err := db.ListBooks(context.Background())
	if err != nil {
		t.Fatalf("ListBooks() error = %v", err)
	}
	if len(books) != 0 {
		t.Errorf("failed create left %d books behind", len(books))
	}
}

func TestCreateBook_UnknownGenreRollsBack(t *testing.T) {
	db := newTestDB(t)
	author := createTestAuthor(t, db, "Harper Lee")

	err := db.CreateBook(context.Background(), &model.Book{
		Title:    "To Kill a Mockingbird",
		AuthorID: author.ID,
		GenreIDs: []int64{12345},
	})
	if err == nil {
		t.Fatal("CreateBook() with an unknown genre should fail")
	}

	books, err := db.ListBooks(context.Background())
	if err != nil {
		t.Fatalf("ListBooks() error = %v", err)
	}
	if len(books) != 0 {
		t.Errorf("book row should have been rolled back, found %d", len(books))
	}
}

func TestUpdateBook_ReplacesGenres(t *testing.T) {
	db := newTestDB(t)
	tolkien := createTestAuthor(t, db, "J.R.R. Tolkien")
	fantasy := createTestGenre(t, db, "fantasy")
	mythology := createTestGenre(t, db, "mythology")
	book := createTestBook(t, db, "The Hobbit", tolkien.ID, fantasy.ID)

	book.Title = "The Silmarillion"
	book.PublishDate = mustDate(t, "1977-09-15")
	book.Audience = model.AudienceAdult
	book.GenreIDs = []int64{mythology.ID}
	if err := db.UpdateBook(context.Background(), book); err != nil {
		t.Fatalf("UpdateBook() error = %v", err)
	}

	view, err := db.GetBook(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("GetBook() error = %v", err)
	}
	if view.Title != "The Silmarillion" {
		t.Errorf("Title = %q, want The Silmarillion", view.Title)
	}
	if view.PublishDateString() != "1977-09-15" {
		t.Errorf("PublishDate = %q, want 1977-09-15", view.PublishDateString())
	}
	if view.Audience != model.AudienceAdult {
		t.Errorf("Audience = %q, want ADULT", view.Audience)
	}
	if view.HasGenre(fantasy.ID) {
		t.Error("fantasy should have been removed by the update")
	}
	if !view.HasGenre(mythology.ID) {
		t.Error("mythology should have been added by the update")
	}
}

func TestUpdateBook_ClearsOptionalFields(t *testing.T) {
	db := newTestDB(t)
	author := createTestAuthor(t, db, "Sylvia Plath")
	genre := createTestGenre(t, db, "classic")
	book := &model.Book{
		Title:       "The Bell Jar",
		PublishDate: mustDate(t, "1963-01-14"),
		Audience:    model.AudienceAdult,
		AuthorID:    author.ID,
		GenreIDs:    []int64{genre.ID},
	}
	if err := db.CreateBook(context.Background(), book); err != nil {
		t.Fatalf("CreateBook() error = %v", err)
	}

	book.PublishDate = nil
	book.Audience = ""
	book.GenreIDs = nil
	if err := db.UpdateBook(context.Background(), book); err != nil {
		t.Fatalf("UpdateBook() error = %v", err)
	}

	view, err := db.GetBook(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("GetBook() error = %v", err)
	}
	if view.PublishDate != nil || view.Audience != "" || len(view.Genres) != 0 {
		t.Errorf("optional fields not cleared: date=%v audience=%q genres=%v",
			view.PublishDate, view.Audience, view.Genres)
	}
}

func TestUpdateBook_NotFound(t *testing.T) {
	db := newTestDB(t)
	author := createTestAuthor(t, db, "Nobody")

	err := db.UpdateBook(context.Background(), &model.Book{ID: 77, Title: "Ghost", AuthorID: author.ID})
	if !errors.Is(err, apperror.ErrBookNotFound) {
		t.Errorf("UpdateBook() error = %v, want ErrBookNotFound", err)
	}
}

func TestGetBook_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetBook(context.Background(), 1)
	if !errors.Is(err, apperror.ErrBookNotFound) {
		t.Errorf("GetBook() error = %v, want ErrBookNotFound", err)
	}
}

func TestListBooks_CreationOrder(t *testing.T) {
	db := newTestDB(t)
	tolkien := createTestAuthor(t, db, "J.R.R. Tolkien")
	fitzgerald := createTestAuthor(t, db, "F. Scott Fitzgerald")
	fantasy := createTestGenre(t, db, "fantasy")
	createTestBook(t, db, "The Hobbit", tolkien.ID, fantasy.ID)
	createTestBook(t, db, "The Great Gatsby", fitzgerald.ID)

	books, err := db.ListBooks(context.Background())
	if err != nil {
		t.Fatalf("ListBooks() error = %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("len = %d, want 2", len(books))
	}
	if books[0].Title != "The Hobbit" || books[1].Title != "The Great Gatsby" {
		t.Errorf("order = [%q, %q], want creation order", books[0].Title, books[1].Title)
	}
	if books[1].Author.Name != "F. Scott Fitzgerald" {
		t.Errorf("second book author = %q", books[1].Author.Name)
	}
	if len(books[0].Genres) != 1 || len(books[1].Genres) != 0 {
		t.Errorf("genres not attached to the right books: %v / %v", books[0].Genres, books[1].Genres)
	}
}

func TestListBooks_Empty(t *testing.T) {
	db := newTestDB(t)

	books, err := db.ListBooks(context.Background())
	if err != nil {
		t.Fatalf("ListBooks() error = %v", err)
	}
	if len(books) != 0 {
		t.Errorf("len = %d, want 0", len(books))
	}
}

// =========================================================================
// FAVORITE TESTS
// =========================================================================

func TestFavorite_AddIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "reader")
	author := createTestAuthor(t, db, "Harper Lee")
	book := createTestBook(t, db, "To Kill a Mockingbird", author.ID)

	for i := 0; i < 2; i++ {
		if err := db.AddFavorite(context.Background(), user.ID, book.ID); err != nil {
			t.Fatalf("AddFavorite() call %d error = %v", i+1, err)
		}
	}

	ok, err := db.IsFavorite(context.Background(), user.ID, book.ID)
	if err != nil {
		t.Fatalf("IsFavorite() error = %v", err)
	}
	if !ok {
		t.Error("IsFavorite() = false after AddFavorite")
	}

	favs, err := db.ListFavoriteBooks(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListFavoriteBooks() error = %v", err)
	}
	if len(favs) != 1 {
		t.Errorf("len(favorites) = %d, want 1", len(favs))
	}
}

func TestFavorite_UnknownBook(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "reader")

	err := db.AddFavorite(context.Background(), user.ID, 999)
	if !errors.Is(err, apperror.ErrBookNotFound) {
		t.Errorf("AddFavorite() error = %v, want ErrBookNotFound", err)
	}
}

func TestFavorite_RemoveIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "reader")
	author := createTestAuthor(t, db, "Sylvia Plath")
	book := createTestBook(t, db, "The Bell Jar", author.ID)

	if err := db.AddFavorite(context.Background(), user.ID, book.ID); err != nil {
		t.Fatalf("AddFavorite() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := db.RemoveFavorite(context.Background(), user.ID, book.ID); err != nil {
			t.Fatalf("RemoveFavorite() call %d error = %v", i+1, err)
		}
	}

	ok, err := db.IsFavorite(context.Background(), user.ID, book.ID)
	if err != nil {
		t.Fatalf("IsFavorite() error = %v", err)
	}
	if ok {
		t.Error("IsFavorite() = true after RemoveFavorite")
	}
}

func TestListFavoriteBooks_PerUser(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	author := createTestAuthor(t, db, "J.R.R. Tolkien")
	hobbit := createTestBook(t, db, "The Hobbit", author.ID)
	createTestBook(t, db, "The Silmarillion", author.ID)

	if err := db.AddFavorite(context.Background(), alice.ID, hobbit.ID); err != nil {
		t.Fatalf("AddFavorite() error = %v", err)
	}

	aliceFavs, err := db.ListFavoriteBooks(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListFavoriteBooks(alice) error = %v", err)
	}
	if len(aliceFavs) != 1 || aliceFavs[0].Title != "The Hobbit" {
		t.Errorf("alice favorites = %v, want [The Hobbit]", aliceFavs)
	}
	if aliceFavs[0].Author.Name != "J.R.R. Tolkien" {
		t.Errorf("favorite author = %q", aliceFavs[0].Author.Name)
	}

	bobFavs, err := db.ListFavoriteBooks(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("ListFavoriteBooks(bob) error = %v", err)
	}
	if len(bobFavs) != 0 {
		t.Errorf("bob favorites = %v, want none", bobFavs)
	}
}

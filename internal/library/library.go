// internal/library/library.go

// Package library ties the catalog, the user registry and the loan ledger
// together behind a single lock, recording every change in the journal.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"librarium/internal/catalog"
	"librarium/internal/circulation"
	"librarium/internal/journal"
	"librarium/internal/membership"
)

const instrumentationName = "librarium/library"

// Library is the aggregate root: books, users and loans of one library.
// All methods are safe for concurrent use.
type Library struct {
	mu       sync.Mutex
	name     string
	catalog  *catalog.Catalog
	registry *membership.Registry
	ledger   *circulation.Ledger
	journal  *journal.Journal

	logger  *slog.Logger
	tracer  trace.Tracer
	limiter *rate.Limiter

	borrowCounter metric.Int64Counter
	authCounter   metric.Int64Counter
}

type config struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	limiter        *rate.Limiter
	now            func() time.Time
}

// Option configures a Library.
type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) { c.meterProvider = mp }
}

// WithLoginLimiter throttles AuthenticateUser; calls over the limit fail.
func WithLoginLimiter(limiter *rate.Limiter) Option {
	return func(c *config) { c.limiter = limiter }
}

// WithClock sets the time source for loans and journal entries.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// New creates an empty library.
func New(name string, opts ...Option) *Library {
	cfg := config{
		logger:         slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	meter := cfg.meterProvider.Meter(instrumentationName)
	borrowCounter, _ := meter.Int64Counter("librarium.borrowings",
		metric.WithDescription("Books handed out, by borrowing model"))
	authCounter, _ := meter.Int64Counter("librarium.authentications",
		metric.WithDescription("Authentication attempts, by outcome"))

	return &Library{
		name:          name,
		catalog:       catalog.NewCatalog(name),
		registry:      membership.NewRegistry(),
		ledger:        circulation.NewLedger(circulation.WithClock(cfg.now)),
		journal:       journal.New(journal.WithTracerProvider(cfg.tracerProvider), journal.WithClock(cfg.now)),
		logger:        cfg.logger.With(slog.String("library", name)),
		tracer:        cfg.tracerProvider.Tracer(instrumentationName),
		limiter:       cfg.limiter,
		borrowCounter: borrowCounter,
		authCounter:   authCounter,
	}
}

func (l *Library) Name() string { return l.name }

// AddBook puts a book at the end of the shelf.
func (l *Library) AddBook(ctx context.Context, book *catalog.Book) error {
	ctx, span := l.tracer.Start(ctx, "library.add_book")
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	if book != nil && l.heldByBorrower(book.ID) {
		return l.fail(ctx, span, "book not added", fmt.Errorf("%w: %s is out with a borrower", catalog.ErrDuplicateBook, book.ID))
	}
	if err := l.catalog.AddBook(book); err != nil {
		return l.fail(ctx, span, "book not added", err)
	}
	span.SetAttributes(bookAttrs(book)...)
	l.logger.InfoContext(ctx, "book added", slog.String("title", book.Title), slog.String("author", book.Author))
	l.record(ctx, book.ID, "book", "BookAdded", catalog.BookAddedEvent{
		ID:     book.ID,
		Title:  book.Title,
		Author: book.Author,
		ISBN:   book.ISBN,
	})
	return nil
}

// RemoveBook takes a book off the shelf. Books held by a borrower cannot be removed.
func (l *Library) RemoveBook(ctx context.Context, id uuid.UUID) error {
	ctx, span := l.tracer.Start(ctx, "library.remove_book", trace.WithAttributes(attribute.String("book.id", id.String())))
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.catalog.Find(id)
	if !ok {
		return l.fail(ctx, span, "book was not found", fmt.Errorf("%w: %s", catalog.ErrBookNotFound, id))
	}
	if err := l.catalog.RemoveBook(book); err != nil {
		return l.fail(ctx, span, "book was not found", err)
	}
	l.logger.InfoContext(ctx, "book removed", slog.String("title", book.Title))
	l.record(ctx, book.ID, "book", "BookRemoved", catalog.BookRemovedEvent{ID: book.ID, Title: book.Title})
	return nil
}

// GetBook finds a book on the shelf or in a borrower's hands.
func (l *Library) GetBook(ctx context.Context, id uuid.UUID) (catalog.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if book, ok := l.catalog.Find(id); ok {
		return *book, nil
	}
	if book, ok := l.findBorrowed(id); ok {
		return *book, nil
	}
	return catalog.Book{}, fmt.Errorf("%w: %s", catalog.ErrBookNotFound, id)
}

func (l *Library) findBorrowed(id uuid.UUID) (*catalog.Book, bool) {
	for _, u := range l.registry.Users() {
		if book, ok := u.Borrowed(id); ok {
			return book, true
		}
	}
	return nil, false
}

func (l *Library) heldByBorrower(id uuid.UUID) bool {
	_, ok := l.findBorrowed(id)
	return ok
}

// Books returns the shelf in order.
func (l *Library) Books(ctx context.Context) []catalog.Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyBooks(l.catalog.Books())
}

// AvailableBooks returns the books on the shelf that can be lent right now.
func (l *Library) AvailableBooks(ctx context.Context) []catalog.Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyBooks(l.catalog.AvailableBooks())
}

// ListBooks writes the numbered shelf listing to w.
func (l *Library) ListBooks(ctx context.Context, w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.catalog.ListBooks(w)
}

// AddUser registers a user.
func (l *Library) AddUser(ctx context.Context, user *membership.User) error {
	ctx, span := l.tracer.Start(ctx, "library.add_user")
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.registry.AddUser(user); err != nil {
		return l.fail(ctx, span, "user not added", err)
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	l.logger.InfoContext(ctx, "user added", slog.String("user", user.Name))
	l.record(ctx, user.ID, "user", "UserAdded", membership.UserAddedEvent{
		ID:       user.ID,
		Name:     user.Name,
		Username: user.Username,
	})
	return nil
}

// GetUser returns a copy of the user with the books they currently hold.
func (l *Library) GetUser(ctx context.Context, id uuid.UUID) (membership.Profile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.registry.Find(id)
	if !ok {
		return membership.Profile{}, fmt.Errorf("%w: %s", membership.ErrUserNotFound, id)
	}
	return user.Profile(), nil
}

// AuthenticateUser reports whether username and password belong to a registered user.
func (l *Library) AuthenticateUser(ctx context.Context, username, password string) bool {
	ctx, span := l.tracer.Start(ctx, "library.authenticate_user")
	defer span.End()

	if l.limiter != nil && !l.limiter.Allow() {
		l.logger.WarnContext(ctx, "authentication rate limit exceeded", slog.String("username", username))
		l.authCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "throttled")))
		span.SetStatus(codes.Error, "rate limit exceeded")
		return false
	}

	// Credentials never change once issued, so hashing happens outside the lock.
	l.mu.Lock()
	creds := l.registry.Credentials(username)
	l.mu.Unlock()
	ok := membership.VerifyAny(creds, password)

	outcome := "rejected"
	if ok {
		outcome = "accepted"
	}
	span.SetAttributes(attribute.Bool("authenticated", ok))
	l.authCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	l.logger.InfoContext(ctx, "user authentication", slog.String("username", username), slog.Bool("authenticated", ok))
	return ok
}

// BorrowBook moves a book from the shelf to the user.
func (l *Library) BorrowBook(ctx context.Context, userID, bookID uuid.UUID) error {
	ctx, span := l.tracer.Start(ctx, "library.borrow_book", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("book.id", bookID.String()),
	))
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.registry.Find(userID)
	if !ok {
		return l.fail(ctx, span, "book not borrowed", fmt.Errorf("%w: %s", membership.ErrUserNotFound, userID))
	}
	book, ok := l.catalog.Find(bookID)
	if !ok {
		return l.fail(ctx, span, "book is not available in the library", membership.ErrBookNotAvailable, slog.String("user", user.Name))
	}
	if err := user.BorrowBook(l.catalog, book); err != nil {
		return l.fail(ctx, span, "book is not available in the library", err, slog.String("title", book.Title), slog.String("user", user.Name))
	}

	l.borrowCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("model", "transfer")))
	l.logger.InfoContext(ctx, "book borrowed", slog.String("title", book.Title), slog.String("user", user.Name))
	l.record(ctx, book.ID, "book", "BookBorrowed", membership.BookBorrowedEvent{UserID: user.ID, BookID: book.ID})
	return nil
}

// ReturnBorrowedBook puts a book the user holds back at the end of the shelf.
func (l *Library) ReturnBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error {
	ctx, span := l.tracer.Start(ctx, "library.return_borrowed_book", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("book.id", bookID.String()),
	))
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.registry.Find(userID)
	if !ok {
		return l.fail(ctx, span, "book not returned", fmt.Errorf("%w: %s", membership.ErrUserNotFound, userID))
	}
	book, ok := user.Borrowed(bookID)
	if !ok {
		return l.fail(ctx, span, "book was not borrowed by user", membership.ErrBookNotBorrowed, slog.String("user", user.Name))
	}
	if err := user.ReturnBook(l.catalog, book); err != nil {
		return l.fail(ctx, span, "book not returned", err, slog.String("title", book.Title), slog.String("user", user.Name))
	}

	l.logger.InfoContext(ctx, "book returned", slog.String("title", book.Title), slog.String("user", user.Name))
	l.record(ctx, book.ID, "book", "BorrowedBookReturned", membership.BorrowedBookReturnedEvent{UserID: user.ID, BookID: book.ID})
	return nil
}

// BorrowedBooks returns copies of the books a user holds.
func (l *Library) BorrowedBooks(ctx context.Context, userID uuid.UUID) ([]catalog.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.registry.Find(userID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", membership.ErrUserNotFound, userID)
	}
	return copyBooks(user.BorrowedBooks()), nil
}

// ListBorrowedBooks writes the numbered listing of a user's books to w.
func (l *Library) ListBorrowedBooks(ctx context.Context, userID uuid.UUID, w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.registry.Find(userID)
	if !ok {
		return fmt.Errorf("%w: %s", membership.ErrUserNotFound, userID)
	}
	return user.ListBorrowedBooks(w)
}

// LoanBook lends a shelved, available book to a user and records the loan.
func (l *Library) LoanBook(ctx context.Context, bookID, userID uuid.UUID) (circulation.Loan, error) {
	ctx, span := l.tracer.Start(ctx, "library.loan_book", trace.WithAttributes(
		attribute.String("book.id", bookID.String()),
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.catalog.Find(bookID)
	if !ok {
		return circulation.Loan{}, l.fail(ctx, span, "book not loaned", fmt.Errorf("%w: %s", catalog.ErrBookNotFound, bookID))
	}
	user, ok := l.registry.Find(userID)
	if !ok {
		return circulation.Loan{}, l.fail(ctx, span, "book not loaned", fmt.Errorf("%w: %s", membership.ErrUserNotFound, userID))
	}
	loan, err := l.ledger.LoanBook(book, user)
	if err != nil {
		return circulation.Loan{}, l.fail(ctx, span, "book not loaned", err, slog.String("title", book.Title))
	}

	span.SetAttributes(attribute.String("loan.id", loan.ID.String()))
	l.borrowCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("model", "ledger")))
	l.logger.InfoContext(ctx, "book loaned", slog.String("title", book.Title), slog.String("user", user.Name))
	l.record(ctx, loan.ID, "loan", "BookLoaned", circulation.BookLoanedEvent{
		LoanID:   loan.ID,
		BookID:   loan.BookID,
		UserID:   loan.UserID,
		LoanDate: loan.LoanDate,
	})
	return loan, nil
}

// ReturnBook closes the open loan of a book and makes it available again.
func (l *Library) ReturnBook(ctx context.Context, bookID uuid.UUID) (circulation.Loan, error) {
	ctx, span := l.tracer.Start(ctx, "library.return_book", trace.WithAttributes(attribute.String("book.id", bookID.String())))
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.catalog.Find(bookID)
	if !ok {
		return circulation.Loan{}, l.fail(ctx, span, "book not returned", fmt.Errorf("%w: %s", catalog.ErrBookNotFound, bookID))
	}
	loan, err := l.ledger.ReturnBook(book)
	if err != nil {
		return circulation.Loan{}, l.fail(ctx, span, "book not returned", err, slog.String("title", book.Title))
	}

	span.SetAttributes(attribute.String("loan.id", loan.ID.String()))
	l.logger.InfoContext(ctx, "loan returned", slog.String("title", book.Title))
	l.record(ctx, loan.ID, "loan", "BookReturned", circulation.BookReturnedEvent{
		LoanID:     loan.ID,
		BookID:     loan.BookID,
		UserID:     loan.UserID,
		ReturnDate: loan.ReturnDate,
	})
	return loan, nil
}

// Loans returns the full loan history, oldest first.
func (l *Library) Loans(ctx context.Context) []circulation.Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledger.Loans()
}

// Stats is a point-in-time count of the library's contents.
type Stats struct {
	Books     int `json:"books"`
	Available int `json:"available"`
	Borrowed  int `json:"borrowed"`
	Users     int `json:"users"`
	Loans     int `json:"loans"`
	OpenLoans int `json:"open_loans"`
}

// Stats counts shelved, borrowed and loaned books under a single lock.
func (l *Library) Stats(ctx context.Context) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	users := l.registry.Users()
	st := Stats{
		Books:     l.catalog.Len(),
		Available: len(l.catalog.AvailableBooks()),
		Users:     len(users),
		Loans:     len(l.ledger.Loans()),
		OpenLoans: len(l.ledger.OpenLoans()),
	}
	for _, u := range users {
		st.Borrowed += len(u.BorrowedBooks())
	}
	return st
}

// Events returns up to limit journal entries recorded after fromSequence.
func (l *Library) Events(ctx context.Context, fromSequence int64, limit int) ([]journal.Event, error) {
	return l.journal.Stream(ctx, fromSequence, limit)
}

func (l *Library) fail(ctx context.Context, span trace.Span, msg string, err error, attrs ...any) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	l.logger.InfoContext(ctx, msg, append(attrs, slog.String("reason", err.Error()))...)
	return err
}

func (l *Library) record(ctx context.Context, aggregateID uuid.UUID, aggregateType, eventType string, data any) {
	event, err := journal.NewEvent(eventType, data)
	if err == nil {
		err = l.journal.Record(ctx, aggregateID, aggregateType, event)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		l.logger.ErrorContext(ctx, "failed to record event", slog.String("event", eventType), slog.Any("error", err))
	}
}

func bookAttrs(b *catalog.Book) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("book.id", b.ID.String()),
		attribute.String("book.title", b.Title),
	}
}

func copyBooks(books []*catalog.Book) []catalog.Book {
	out := make([]catalog.Book, 0, len(books))
	for _, b := range books {
		out = append(out, *b)
	}
	return out
}

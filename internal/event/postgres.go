package event

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

const eventColumns = `id, name, description, category, location, address,
	latitude, longitude, start_date, end_date, poster_image, website_url,
	created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*Event, error) {
	var (
		e        Event
		lat, lng sql.NullFloat64
	)
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Category, &e.Location,
		&e.Address, &lat, &lng, &e.StartDate, &e.EndDate, &e.PosterImage,
		&e.WebsiteURL, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		e.Coordinates = &Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &e, nil
}

func coords(e *Event) (lat, lng sql.NullFloat64) {
	if e.Coordinates != nil {
		lat = sql.NullFloat64{Float64: e.Coordinates.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: e.Coordinates.Lng, Valid: true}
	}
	return lat, lng
}

// Insert stores a new event, assigning an ID if missing.
func (r *PostgresRepository) Insert(event *Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	lat, lng := coords(event)

	query := `
		INSERT INTO events (id, name, description, category, location, address,
			latitude, longitude, start_date, end_date, poster_image, website_url,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.ExecContext(context.Background(), query,
		event.ID, event.Name, event.Description, event.Category, event.Location,
		event.Address, lat, lng, event.StartDate, event.EndDate,
		event.PosterImage, event.WebsiteURL)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Update modifies an existing event.
func (r *PostgresRepository) Update(event *Event) error {
	lat, lng := coords(event)

	query := `
		UPDATE events SET name = $2, description = $3, category = $4,
			location = $5, address = $6, latitude = $7, longitude = $8,
			start_date = $9, end_date = $10, poster_image = $11,
			website_url = $12, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(context.Background(), query,
		event.ID, event.Name, event.Description, event.Category, event.Location,
		event.Address, lat, lng, event.StartDate, event.EndDate,
		event.PosterImage, event.WebsiteURL)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Delete removes an event.
func (r *PostgresRepository) Delete(id string) error {
	res, err := r.db.ExecContext(context.Background(), `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// GetByID retrieves an event by its ID.
func (r *PostgresRepository) GetByID(id string) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.db.QueryRowContext(context.Background(), query, id))
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// List returns events matching the filter, ordered by start date descending.
func (r *PostgresRepository) List(filter ListFilter) ([]*Event, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludePast {
		where = append(where, "end_date >= CURRENT_DATE")
	}
	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.Location != "" {
		where = append(where, "location ILIKE "+arg("%"+filter.Location+"%"))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s OR location ILIKE %s)", p, p, p))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date DESC, id"

	rows, err := r.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close rows", "error", err)
		}
	}()

	var out []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindDuplicate returns the event matching (name, location, startDate), or nil.
func (r *PostgresRepository) FindDuplicate(name, location string, startDate time.Time) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE name = $1 AND location = $2 AND start_date = $3`
	e, err := scanEvent(r.db.QueryRowContext(context.Background(), query, name, location, startDate))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate event: %w", err)
	}
	return e, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// PostgresBookmarkRepository implements BookmarkRepository using PostgreSQL.
type PostgresBookmarkRepository struct {
	db *sql.DB
}

// NewPostgresBookmarkRepository creates a new PostgresBookmarkRepository.
func NewPostgresBookmarkRepository(db *sql.DB) *PostgresBookmarkRepository {
	return &PostgresBookmarkRepository{db: db}
}

// Insert stores a new bookmark, mapping the unique (user_id, event_id)
// constraint violation to ErrDuplicateBookmark.
func (r *PostgresBookmarkRepository) Insert(b *Bookmark) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	query := `INSERT INTO bookmarks (id, user_id, event_id, created_at) VALUES ($1, $2, $3, NOW())`
	if _, err := r.db.ExecContext(context.Background(), query, b.ID, b.UserID, b.EventID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBookmark
		}
		return fmt.Errorf("failed to insert bookmark: %w", err)
	}
	return nil
}

// Delete removes a bookmark by (user, event).
func (r *PostgresBookmarkRepository) Delete(userID, eventID string) error {
	res, err := r.db.ExecContext(context.Background(),
		`DELETE FROM bookmarks WHERE user_id = $1 AND event_id = $2`, userID, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookmarkNotFound
	}
	return nil
}

// ListByUser returns the user's bookmarks, newest first.
func (r *PostgresBookmarkRepository) ListByUser(userID string) ([]*Bookmark, error) {
	rows, err := r.db.QueryContext(context.Background(),
		`SELECT id, user_id, event_id, created_at FROM bookmarks
		 WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	var out []*Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.UserID, &b.EventID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// Exists reports whether the (user, event) pair is bookmarked.
func (r *PostgresBookmarkRepository) Exists(userID, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM bookmarks WHERE user_id = $1 AND event_id = $2)`,
		userID, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark: %w", err)
	}
	return exists, nil
}

// PostgresReviewRepository implements ReviewRepository using PostgreSQL.
type PostgresReviewRepository struct {
	db *sql.DB
}

// NewPostgresReviewRepository creates a new PostgresReviewRepository.
func NewPostgresReviewRepository(db *sql.DB) *PostgresReviewRepository {
	return &PostgresReviewRepository{db: db}
}

const reviewColumns = `id, user_id, event_id, rating, comment, images, created_at, updated_at`

func scanReview(row interface{ Scan(...any) error }) (*Review, error) {
	var rev Review
	if err := row.Scan(&rev.ID, &rev.UserID, &rev.EventID, &rev.Rating,
		&rev.Comment, pq.Array(&rev.Images), &rev.CreatedAt, &rev.UpdatedAt); err != nil {
		return nil, err
	}
	return &rev, nil
}

// Insert stores a new review, mapping the unique (user_id, event_id)
// constraint violation to ErrDuplicateReview.
func (r *PostgresReviewRepository) Insert(rev *Review) error {
	if err := rev.Validate(); err != nil {
		return err
	}
	if rev.ID == "" {
		rev.ID = uuid.New().String()
	}
	query := `INSERT INTO reviews (id, user_id, event_id, rating, comment, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`
	if _, err := r.db.ExecContext(context.Background(), query,
		rev.ID, rev.UserID, rev.EventID, rev.Rating, rev.Comment, pq.Array(rev.Images)); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReview
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// Update modifies an existing review's rating, comment and images.
func (r *PostgresReviewRepository) Update(rev *Review) error {
	if err := rev.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(context.Background(),
		`UPDATE reviews SET rating = $2, comment = $3, images = $4, updated_at = NOW() WHERE id = $1`,
		rev.ID, rev.Rating, rev.Comment, pq.Array(rev.Images))
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// Delete removes a review.
func (r *PostgresReviewRepository) Delete(id string) error {
	res, err := r.db.ExecContext(context.Background(), `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// GetByID retrieves a review by its ID.
func (r *PostgresReviewRepository) GetByID(id string) (*Review, error) {
	rev, err := scanReview(r.db.QueryRowContext(context.Background(),
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return rev, nil
}

// ListByEvent returns all reviews for an event, newest first.
func (r *PostgresReviewRepository) ListByEvent(eventID string) ([]*Review, error) {
	return r.query(`SELECT `+reviewColumns+` FROM reviews WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
}

// ListByUser returns all reviews written by a user, newest first.
func (r *PostgresReviewRepository) ListByUser(userID string) ([]*Review, error) {
	return r.query(`SELECT `+reviewColumns+` FROM reviews WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PostgresReviewRepository) query(query string, args ...any) ([]*Review, error) {
	rows, err := r.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var out []*Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

// Summary computes the average rating and count for an event.
func (r *PostgresReviewRepository) Summary(eventID string) (RatingSummary, error) {
	var (
		avg   sql.NullFloat64
		count int
	)
	err := r.db.QueryRowContext(context.Background(),
		`SELECT AVG(rating), COUNT(*) FROM reviews WHERE event_id = $1`, eventID).Scan(&avg, &count)
	if err != nil {
		return RatingSummary{}, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	summary := RatingSummary{ReviewCount: count}
	if avg.Valid {
		summary.AverageRating = round1(avg.Float64)
	}
	return summary, nil
}

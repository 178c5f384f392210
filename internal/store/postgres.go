package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stagewatch/stagewatch/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const concertColumns = `id, title, artist, venue, city, country, date, capacity, ticket_url, image_url, status, source, last_updated, metadata`

func scanConcert(row pgx.Row) (*models.Concert, error) {
	var c models.Concert
	err := row.Scan(&c.ID, &c.Title, &c.Artist, &c.Venue, &c.City, &c.Country, &c.Date,
		&c.Capacity, &c.TicketURL, &c.ImageURL, &c.Status, &c.Source, &c.LastUpdated, &c.Metadata)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// --- Concerts ---

func (s *PostgresStore) CreateConcert(ctx context.Context, in models.ConcertInput) (*models.Concert, error) {
	status := in.Status
	if status == "" {
		status = models.ConcertStatusAvailable
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO concerts (id, title, artist, venue, city, country, date, capacity, ticket_url, image_url, status, source, last_updated, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING `+concertColumns,
		uuid.New(), in.Title, in.Artist, in.Venue, in.City, in.Country, in.Date,
		in.Capacity, in.TicketURL, in.ImageURL, status, in.Source, time.Now().UTC(), in.Metadata)
	c, err := scanConcert(row)
	if err != nil {
		return nil, fmt.Errorf("create concert: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetConcert(ctx context.Context, id uuid.UUID) (*models.Concert, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+concertColumns+` FROM concerts WHERE id = $1`, id)
	c, err := scanConcert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get concert: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListConcerts(ctx context.Context, filter ConcertFilter) ([]*models.Concert, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.Artist != "" {
		conditions = append(conditions, fmt.Sprintf("artist ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Artist+"%")
		argIdx++
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("city ILIKE $%d", argIdx))
		args = append(args, "%"+filter.City+"%")
		argIdx++
	}
	if !filter.DateFrom.IsZero() {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", argIdx))
		args = append(args, filter.DateFrom)
		argIdx++
	}
	if !filter.DateTo.IsZero() {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", argIdx))
		args = append(args, filter.DateTo)
		argIdx++
	}
	switch filter.VenueSize {
	case VenueSizeArena:
		conditions = append(conditions, "capacity >= 20000")
	case VenueSizeStadium:
		conditions = append(conditions, "capacity >= 50000")
	case VenueSizeTheater:
		conditions = append(conditions, "capacity >= 5000 AND capacity < 20000")
	case VenueSizeClub:
		conditions = append(conditions, "capacity >= 1000 AND capacity < 5000")
	}

	query := `SELECT ` + concertColumns + ` FROM concerts WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY date ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list concerts: %w", err)
	}
	defer rows.Close()

	var concerts []*models.Concert
	for rows.Next() {
		c, err := scanConcert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan concert: %w", err)
		}
		concerts = append(concerts, c)
	}
	return concerts, rows.Err()
}

func (s *PostgresStore) UpdateConcert(ctx context.Context, id uuid.UUID, upd ConcertUpdate) (*models.Concert, error) {
	sets := []string{"last_updated = $2"}
	args := []any{id, time.Now().UTC()}
	argIdx := 3

	addSet := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if upd.Title != nil {
		addSet("title", *upd.Title)
	}
	if upd.Status != nil {
		addSet("status", *upd.Status)
	}
	if upd.Capacity != nil {
		addSet("capacity", *upd.Capacity)
	}
	if upd.TicketURL != nil {
		addSet("ticket_url", *upd.TicketURL)
	}
	if upd.ImageURL != nil {
		addSet("image_url", *upd.ImageURL)
	}
	if upd.Metadata != nil {
		addSet("metadata", upd.Metadata)
	}

	query := `UPDATE concerts SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + concertColumns

	c, err := scanConcert(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update concert: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) DeleteConcert(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM concerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete concert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) BulkCreateConcerts(ctx context.Context, ins []models.ConcertInput) ([]*models.Concert, error) {
	created := make([]*models.Concert, 0, len(ins))
	for _, in := range ins {
		c, err := s.CreateConcert(ctx, in)
		if err != nil {
			return created, fmt.Errorf("bulk create concerts: %w", err)
		}
		created = append(created, c)
	}
	return created, nil
}

// --- Artists ---

const artistColumns = `id, name, image_url, trending_score, upcoming_shows, last_updated`

func scanArtist(row pgx.Row) (*models.Artist, error) {
	var a models.Artist
	err := row.Scan(&a.ID, &a.Name, &a.ImageURL, &a.TrendingScore, &a.UpcomingShows, &a.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) CreateArtist(ctx context.Context, in models.ArtistInput) (*models.Artist, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO artists (id, name, image_url, trending_score, upcoming_shows, last_updated)
		 VALUES ($1, $2, $3, 0, 0, $4)
		 RETURNING `+artistColumns,
		uuid.New(), in.Name, in.ImageURL, time.Now().UTC())
	a, err := scanArtist(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("create artist: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetArtist(ctx context.Context, id uuid.UUID) (*models.Artist, error) {
	a, err := scanArtist(s.pool.QueryRow(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artist: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetArtistByName(ctx context.Context, name string) (*models.Artist, error) {
	a, err := scanArtist(s.pool.QueryRow(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE LOWER(name) = LOWER($1)`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artist by name: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListArtists(ctx context.Context) ([]*models.Artist, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+artistColumns+` FROM artists ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	defer rows.Close()

	var artists []*models.Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

func (s *PostgresStore) UpdateArtist(ctx context.Context, id uuid.UUID, upd ArtistUpdate) (*models.Artist, error) {
	sets := []string{"last_updated = $2"}
	args := []any{id, time.Now().UTC()}
	argIdx := 3

	if upd.ImageURL != nil {
		sets = append(sets, fmt.Sprintf("image_url = $%d", argIdx))
		args = append(args, *upd.ImageURL)
		argIdx++
	}
	if upd.TrendingScore != nil {
		sets = append(sets, fmt.Sprintf("trending_score = $%d", argIdx))
		args = append(args, *upd.TrendingScore)
		argIdx++
	}
	if upd.UpcomingShows != nil {
		sets = append(sets, fmt.Sprintf("upcoming_shows = $%d", argIdx))
		args = append(args, *upd.UpcomingShows)
		argIdx++
	}

	query := `UPDATE artists SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + artistColumns

	a, err := scanArtist(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update artist: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) TrendingArtists(ctx context.Context, limit int) ([]*models.Artist, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+artistColumns+` FROM artists ORDER BY trending_score DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("trending artists: %w", err)
	}
	defer rows.Close()

	var artists []*models.Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// --- Venues ---

const venueColumns = `id, name, city, country, capacity, image_url, upcoming_shows, last_updated`

func scanVenue(row pgx.Row) (*models.Venue, error) {
	var v models.Venue
	err := row.Scan(&v.ID, &v.Name, &v.City, &v.Country, &v.Capacity, &v.ImageURL, &v.UpcomingShows, &v.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PostgresStore) CreateVenue(ctx context.Context, in models.VenueInput) (*models.Venue, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO venues (id, name, city, country, capacity, image_url, upcoming_shows, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
		 RETURNING `+venueColumns,
		uuid.New(), in.Name, in.City, in.Country, in.Capacity, in.ImageURL, time.Now().UTC())
	v, err := scanVenue(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("create venue: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) GetVenue(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	v, err := scanVenue(s.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get venue: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) GetVenueByNameCity(ctx context.Context, name, city string) (*models.Venue, error) {
	v, err := scanVenue(s.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE LOWER(name) = LOWER($1) AND LOWER(city) = LOWER($2)`,
		name, city))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get venue by name and city: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) ListVenues(ctx context.Context) ([]*models.Venue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+venueColumns+` FROM venues ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	var venues []*models.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

func (s *PostgresStore) UpdateVenue(ctx context.Context, id uuid.UUID, upd VenueUpdate) (*models.Venue, error) {
	sets := []string{"last_updated = $2"}
	args := []any{id, time.Now().UTC()}
	argIdx := 3

	if upd.Capacity != nil {
		sets = append(sets, fmt.Sprintf("capacity = $%d", argIdx))
		args = append(args, *upd.Capacity)
		argIdx++
	}
	if upd.ImageURL != nil {
		sets = append(sets, fmt.Sprintf("image_url = $%d", argIdx))
		args = append(args, *upd.ImageURL)
		argIdx++
	}
	if upd.UpcomingShows != nil {
		sets = append(sets, fmt.Sprintf("upcoming_shows = $%d", argIdx))
		args = append(args, *upd.UpcomingShows)
		argIdx++
	}

	query := `UPDATE venues SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + venueColumns

	v, err := scanVenue(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update venue: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) FeaturedVenues(ctx context.Context, limit int) ([]*models.Venue, error) {
	if limit <= 0 {
		limit = 6
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+venueColumns+` FROM venues ORDER BY upcoming_shows DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("featured venues: %w", err)
	}
	defer rows.Close()

	var venues []*models.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// --- Scrape jobs ---

const jobColumns = `id, source, status, start_time, end_time, concerts_found, error_message`

func scanJob(row pgx.Row) (*models.ScrapeJob, error) {
	var j models.ScrapeJob
	err := row.Scan(&j.ID, &j.Source, &j.Status, &j.StartTime, &j.EndTime, &j.ConcertsFound, &j.ErrorMessage)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) CreateScrapeJob(ctx context.Context, job *models.ScrapeJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scrape_jobs (id, source, status, start_time, end_time, concerts_found, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.Source, job.Status, job.StartTime, job.EndTime, job.ConcertsFound, job.ErrorMessage)
	if err != nil {
		return fmt.Errorf("create scrape job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetScrapeJob(ctx context.Context, id uuid.UUID) (*models.ScrapeJob, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM scrape_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scrape job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListScrapeJobs(ctx context.Context, limit int) ([]*models.ScrapeJob, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM scrape_jobs ORDER BY start_time DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scrape jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ScrapeJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scrape job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) FinishScrapeJob(ctx context.Context, id uuid.UUID, status string, opts ...JobFinishOption) error {
	params := &jobFinishParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM scrape_jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get scrape job status: %w", err)
	}
	if err := validateJobTransition(currentStatus, status); err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `UPDATE scrape_jobs SET status = $2, end_time = $3`
	args := []any{id, status, now}
	argIdx := 4

	if params.ConcertsFound != nil {
		query += fmt.Sprintf(", concerts_found = $%d", argIdx)
		args = append(args, *params.ConcertsFound)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}

	query += " WHERE id = $1"

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("finish scrape job: %w", err)
	}
	return nil
}

// --- Dashboard ---

func (s *PostgresStore) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM concerts),
		   (SELECT COUNT(*) FROM artists),
		   (SELECT COUNT(DISTINCT city) FROM concerts)`,
	).Scan(&stats.TotalConcerts, &stats.ActiveArtists, &stats.Cities)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	var lastStart time.Time
	var lastStatus string
	err = s.pool.QueryRow(ctx,
		`SELECT start_time, status FROM scrape_jobs ORDER BY start_time DESC LIMIT 1`,
	).Scan(&lastStart, &lastStatus)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("dashboard last job: %w", err)
	}
	if err == nil {
		stats.LastSyncAt = &lastStart
		stats.LastSyncStatus = lastStatus
	}

	var total, completed int
	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'completed') FROM scrape_jobs`,
	).Scan(&total, &completed)
	if err != nil {
		return nil, fmt.Errorf("dashboard job ratio: %w", err)
	}
	if total > 0 {
		stats.ScrapePerformance = float64(completed) / float64(total) * 100
	}

	return stats, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time checks that both implementations satisfy Store.
var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

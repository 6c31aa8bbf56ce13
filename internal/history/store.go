package history

import (
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/reeler/reeler/internal/database"
)

type (
	// Attempt is one completed extraction attempt - success or
	// failure. Rows are created once per attempt and never mutated or
	// deleted afterwards. Success is stored as the string
	// "true"/"false" to match the historical schema.
	Attempt struct {
		ID          int64     `db:"id" json:"id"`
		URL         string    `db:"url" json:"url"`
		Platform    string    `db:"platform" json:"platform"`
		Title       *string   `db:"title" json:"title,omitempty"`
		ExtractedAt time.Time `db:"extracted_at" json:"extractedAt"`
		ClientIP    *string   `db:"client_ip" json:"clientIp,omitempty"`
		Success     string    `db:"success" json:"success"`
	}

	// Link is one media link associated with an attempt.
	Link struct {
		Label   string  `json:"label"`
		URL     string  `json:"url"`
		Quality *string `json:"quality,omitempty"`
	}

	// attemptModel is the attempt table columns combined with a JSON
	// representation of the coalesced link rows joined into the list
	// query. Kept separate from the public Attempt/Link API so the
	// JsonColumn container stays an implementation detail.
	attemptModel struct {
		Attempt
		Links database.JsonColumn[[]Link] `db:"links"`
	}

	// AttemptWithLinks is the public shape returned by ListRecent.
	AttemptWithLinks struct {
		Attempt
		Links []Link `json:"links"`
	}

	Store struct{}
)

func NewStore() *Store {
	return &Store{}
}

// SaveAttempt inserts the attempt row and its associated link rows.
// The attempt's ID is populated from the database. Callers wanting
// atomicity across the two inserts should pass a transaction.
func (store *Store) SaveAttempt(db database.Queryable, attempt *Attempt, links []Link) error {
	err := db.Get(&attempt.ID, db.Rebind(`
		INSERT INTO download_history(url, platform, title, extracted_at, client_ip, success)
		VALUES (?, ?, ?, current_timestamp, ?, ?)
		RETURNING id
	`), attempt.URL, attempt.Platform, attempt.Title, attempt.ClientIP, attempt.Success)
	if err != nil {
		return fmt.Errorf("failed to insert download history row: %w", err)
	}

	for _, link := range links {
		if _, err := db.Exec(db.Rebind(`
			INSERT INTO download_links(download_id, label, url, quality)
			VALUES (?, ?, ?, ?)
		`), attempt.ID, link.Label, link.URL, link.Quality); err != nil {
			return fmt.Errorf("failed to insert download link row: %w", err)
		}
	}

	return nil
}

// ListRecent returns up to 'limit' of the most recent attempts, newest
// first, each carrying its associated links.
func (store *Store) ListRecent(db database.Queryable, limit int) ([]*AttemptWithLinks, error) {
	query, args, err := selectAttemptBuilder().
		OrderBy("download_history.extracted_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list history query: %w", err)
	}

	var results []attemptModel
	if err := db.Select(&results, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	output := make([]*AttemptWithLinks, len(results))
	for k, v := range results {
		output[k] = attemptModelToAttempt(&v)
	}

	return output, nil
}

func selectAttemptBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select(
			"download_history.*",
			`COALESCE(JSONB_AGG(
				JSONB_BUILD_OBJECT('label', download_links.label, 'url', download_links.url, 'quality', download_links.quality)
				ORDER BY download_links.id
			) FILTER (WHERE download_links.id IS NOT NULL), '[]') AS links`,
		).
		From("download_history").
		LeftJoin("download_links ON download_links.download_id = download_history.id").
		GroupBy("download_history.id")
}

func attemptModelToAttempt(model *attemptModel) *AttemptWithLinks {
	links := model.Links.Get()
	if links == nil {
		links = &[]Link{}
	}

	return &AttemptWithLinks{
		Attempt: model.Attempt,
		Links:   *links,
	}
}

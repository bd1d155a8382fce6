package models

import "time"

// NewsArticle is one cached crypto news item, keyed by the provider's
// external id so repeated refreshes upsert instead of duplicating.
type NewsArticle struct {
	ExternalID  string    `json:"externalId" db:"external_id"`
	Source      string    `json:"source" db:"source"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	URL         string    `json:"url" db:"url"`
	Author      string    `json:"author" db:"author"`
	PublishedAt time.Time `json:"publishedAt" db:"published_at"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

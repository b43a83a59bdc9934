package entity

import "time"

// CatalogCard is a canonical card as supplied by the base catalog.
type CatalogCard struct {
	ID            int64     `json:"id" db:"id"`
	Game          string    `json:"game" db:"game"`
	SetCode       string    `json:"set_code" db:"set_code"`
	CardNumber    string    `json:"card_number" db:"card_number"`
	Variant       string    `json:"variant,omitempty" db:"variant"`
	Finish        string    `json:"finish,omitempty" db:"finish"`
	Language      string    `json:"language,omitempty" db:"language"`
	Name          string    `json:"name" db:"name"`
	NormalizedKey string    `json:"normalized_key,omitempty" db:"normalized_key"`
	CanonicalKey  string    `json:"canonical_key" db:"canonical_key"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// CatalogFilter bounds the row window a stage run touches.
type CatalogFilter struct {
	Category string
	Limit    int
	AfterID  int64
}

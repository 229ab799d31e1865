package types

import (
	"errors"
	"strings"
	"time"
)

// Validation errors
var (
	ErrEmptyName       = errors.New("name cannot be empty")
	ErrEmptyID         = errors.New("id cannot be empty")
	ErrInvalidLabel    = errors.New("invalid node label")
	ErrInvalidRelation = errors.New("invalid relation type")
	ErrNilNode         = errors.New("node cannot be nil")
	ErrNilEdge         = errors.New("edge cannot be nil")
)

// Score outlets with special handling.
const (
	// OutletIMDb is the primary aggregator; its SCORED edges carry votes.
	OutletIMDb = "Internet Movie Database"
	// OutletMetacritic is the secondary critic-score outlet.
	OutletMetacritic = "Metacritic"
)

// MediaKind is the kind of a catalog entry as reported by the metadata source.
type MediaKind string

const (
	MovieKind   MediaKind = "movie"
	SeriesKind  MediaKind = "series"
	EpisodeKind MediaKind = "episode"
	UnknownKind MediaKind = "unknown"
)

// ParseMediaKind maps a source type string onto a MediaKind. Anything
// unrecognised is UnknownKind.
func ParseMediaKind(s string) MediaKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie":
		return MovieKind
	case "series":
		return SeriesKind
	case "episode":
		return EpisodeKind
	default:
		return UnknownKind
	}
}

// Label returns the title label for the kind, or "" for UnknownKind.
func (k MediaKind) Label() NodeLabel {
	switch k {
	case MovieKind:
		return MovieLabel
	case SeriesKind:
		return SeriesLabel
	case EpisodeKind:
		return EpisodeLabel
	default:
		return ""
	}
}

// Title is a catalog record for a movie, series or episode. Fields that do
// not apply to a kind are left at their zero value.
type Title struct {
	ImdbID    string    `json:"imdb_id"`
	Kind      MediaKind `json:"kind"`
	Title     string    `json:"title"`
	Year      string    `json:"year,omitempty"`
	AgeRating string    `json:"rated,omitempty"`
	Released  string    `json:"released,omitempty"`
	DVD       string    `json:"dvd,omitempty"`
	Runtime   int       `json:"runtime,omitempty"`
	Plot      string    `json:"plot,omitempty"`
	Awards    string    `json:"awards,omitempty"`
	Poster    string    `json:"poster,omitempty"`
	BoxOffice string    `json:"box_office,omitempty"`
	Website   string    `json:"website,omitempty"`

	Genres    []string `json:"genres,omitempty"`
	Directors []string `json:"directors,omitempty"`
	Writers   []string `json:"writers,omitempty"`
	Actors    []string `json:"actors,omitempty"`
	Producers []string `json:"producers,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Countries []string `json:"countries,omitempty"`

	// Ratings maps outlet name to an integer score.
	Ratings    map[string]int `json:"ratings,omitempty"`
	Metascore  int            `json:"metascore,omitempty"`
	ImdbRating float64        `json:"imdb_rating,omitempty"`
	ImdbVotes  int64          `json:"imdb_votes,omitempty"`

	// Series only.
	TotalSeasons int `json:"total_seasons,omitempty"`

	// Episode only.
	SeriesID string `json:"series_id,omitempty"`
	Season   int    `json:"season,omitempty"`
	Episode  int    `json:"episode,omitempty"`
}

// Ref returns the identity of the title node.
func (t *Title) Ref() NodeRef {
	return NodeRef{Label: t.Kind.Label(), Name: t.ImdbID}
}

// Outcome is the terminal state of one pipeline run.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeSkipped     Outcome = "skipped_duplicate"
	OutcomeUnsupported Outcome = "unsupported_kind"
	OutcomeFailed      Outcome = "failed"
)

// LinkError records a single failed link step. It never aborts ingestion.
type LinkError struct {
	Relation RelationType `json:"relation"`
	Target   string       `json:"target"`
	Message  string       `json:"message"`
}

// IngestResult reports what happened to one external identifier.
type IngestResult struct {
	ID         string        `json:"id"`
	RunID      string        `json:"run_id"`
	Kind       MediaKind     `json:"kind"`
	Outcome    Outcome       `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	LinkErrors []LinkError   `json:"link_errors,omitempty"`
	Parent     *IngestResult `json:"parent,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// ContextKey is the type for values mediagraph stores in a context.
type ContextKey string

const (
	ContextKeyRunID         ContextKey = "run_id"
	ContextKeyRequestSource ContextKey = "request_source"
)

package omdb

import (
	"strconv"
	"strings"

	"github.com/soundprediction/mediagraph/pkg/types"
)

const notAvailable = "N/A"

type rawRating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// rawTitle mirrors an OMDb "?i=" response body. Every field is a string.
type rawTitle struct {
	Title        string      `json:"Title"`
	Year         string      `json:"Year"`
	Rated        string      `json:"Rated"`
	Released     string      `json:"Released"`
	Runtime      string      `json:"Runtime"`
	Genre        string      `json:"Genre"`
	Director     string      `json:"Director"`
	Writer       string      `json:"Writer"`
	Actors       string      `json:"Actors"`
	Plot         string      `json:"Plot"`
	Language     string      `json:"Language"`
	Country      string      `json:"Country"`
	Awards       string      `json:"Awards"`
	Poster       string      `json:"Poster"`
	Ratings      []rawRating `json:"Ratings"`
	Metascore    string      `json:"Metascore"`
	ImdbRating   string      `json:"imdbRating"`
	ImdbVotes    string      `json:"imdbVotes"`
	ImdbID       string      `json:"imdbID"`
	Type         string      `json:"Type"`
	DVD          string      `json:"DVD"`
	BoxOffice    string      `json:"BoxOffice"`
	Production   string      `json:"Production"`
	Website      string      `json:"Website"`
	TotalSeasons string      `json:"totalSeasons"`
	SeriesID     string      `json:"seriesID"`
	Season       string      `json:"Season"`
	Episode      string      `json:"Episode"`
	Response     string      `json:"Response"`
	Error        string      `json:"Error"`
}

func (r *rawTitle) ok() bool {
	return !strings.EqualFold(r.Response, "False")
}

func (r *rawTitle) toTitle(id string) *types.Title {
	t := &types.Title{
		ImdbID:    firstNonEmpty(text(r.ImdbID), id),
		Kind:      types.ParseMediaKind(r.Type),
		Title:     text(r.Title),
		Year:      text(r.Year),
		AgeRating: text(r.Rated),
		Released:  text(r.Released),
		DVD:       text(r.DVD),
		Runtime:   parseRuntime(r.Runtime),
		Plot:      text(r.Plot),
		Awards:    text(r.Awards),
		Poster:    text(r.Poster),
		BoxOffice: text(r.BoxOffice),
		Website:   text(r.Website),

		Genres:    splitList(r.Genre),
		Directors: splitList(r.Director),
		Writers:   splitPeople(r.Writer),
		Actors:    splitList(r.Actors),
		Producers: splitProducers(r.Production),
		Languages: splitList(r.Language),
		Countries: splitList(r.Country),

		Metascore:  parseInt(r.Metascore),
		ImdbRating: parseFloat(r.ImdbRating),
		ImdbVotes:  parseVotes(r.ImdbVotes),

		TotalSeasons: parseInt(r.TotalSeasons),
		SeriesID:     text(r.SeriesID),
		Season:       parseInt(r.Season),
		Episode:      parseInt(r.Episode),
	}

	for _, rating := range r.Ratings {
		source := text(rating.Source)
		score, ok := parseScore(rating.Value)
		if source == "" || !ok {
			continue
		}
		if t.Ratings == nil {
			t.Ratings = make(map[string]int, len(r.Ratings))
		}
		t.Ratings[source] = score
	}
	return t
}

// text maps OMDb's "N/A" placeholder to empty.
func text(s string) string {
	s = strings.TrimSpace(s)
	if s == notAvailable {
		return ""
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// splitList splits "Crime, Drama" into trimmed, de-duplicated elements in
// source order.
func splitList(s string) []string {
	s = text(s)
	if s == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = text(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// splitPeople is splitList with credit annotations removed, so
// "Stephen King (short story), Frank Darabont (screenplay)" yields two names.
func splitPeople(s string) []string {
	var cleaned []string
	for _, name := range splitList(s) {
		if i := strings.Index(name, " ("); i > 0 {
			name = strings.TrimSpace(name[:i])
		}
		cleaned = append(cleaned, name)
	}
	return splitList(strings.Join(cleaned, ","))
}

// splitProducers handles production companies joined by commas or slashes.
func splitProducers(s string) []string {
	return splitList(strings.ReplaceAll(text(s), "/", ","))
}

// parseRuntime reads "142 min" as 142.
func parseRuntime(s string) int {
	fields := strings.Fields(text(s))
	if len(fields) == 0 {
		return 0
	}
	return parseInt(fields[0])
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(text(s), ",", ""))
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(text(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// parseVotes reads "2,343,110" as 2343110.
func parseVotes(s string) int64 {
	n, err := strconv.ParseInt(strings.ReplaceAll(text(s), ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseScore keeps the integer part of the leading number in "9.3/10",
// "91%" or "82/100".
func parseScore(s string) (int, bool) {
	s = text(s)
	if s == "" {
		return 0, false
	}
	if i := strings.IndexAny(s, "/%"); i >= 0 {
		s = s[:i]
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

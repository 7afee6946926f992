// Package genres maps free-text genre tags to one canonical genre.
package genres

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/crate/internal/shared"
)

// Unknown is returned when no tag matches the taxonomy.
const Unknown = "Unknown"

// Keywords up to this many runes only match whole words of a tag, so "rap" does not match "scrap".
const shortKeyword = 3

//go:embed taxonomy.toml
var defaultTaxonomy []byte

// Genre is a canonical genre and the keywords that select it.
type Genre struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
}

// Taxonomy is an ordered list of canonical genres. Order breaks ties.
type Taxonomy struct {
	Genres []Genre `toml:"genre"`
}

// ParseTaxonomy decodes a TOML taxonomy. Keywords are matched case-insensitively as substrings of a
// tag, except short keywords which must be whole words.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if _, err := toml.Decode(string(data), &t); err != nil {
		return nil, fmt.Errorf("%w: taxonomy: %v", shared.ErrInvalidConfig, err)
	}
	if len(t.Genres) == 0 {
		return nil, fmt.Errorf("%w: taxonomy has no genres", shared.ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(t.Genres))
	for i, g := range t.Genres {
		name := strings.TrimSpace(g.Name)
		if name == "" || strings.EqualFold(name, Unknown) {
			return nil, fmt.Errorf("%w: taxonomy genre %d has invalid name %q", shared.ErrInvalidConfig, i, g.Name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: taxonomy genre %q listed twice", shared.ErrInvalidConfig, name)
		}
		seen[name] = true

		keywords := make([]string, 0, len(g.Keywords))
		for _, k := range g.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		t.Genres[i] = Genre{Name: name, Keywords: keywords}
	}
	return &t, nil
}

// DefaultTaxonomy returns the built-in taxonomy.
func DefaultTaxonomy() *Taxonomy {
	t, err := ParseTaxonomy(defaultTaxonomy)
	if err != nil {
		panic(err)
	}
	return t
}

// Vote records which genre a single tag selected.
type Vote struct {
	Tag     string
	Genre   string
	Keyword string
}

// Resolver resolves genre tags against a taxonomy. Safe for concurrent use.
type Resolver struct {
	taxonomy *Taxonomy
}

// NewResolver creates a resolver. A nil taxonomy uses [DefaultTaxonomy].
func NewResolver(t *Taxonomy) *Resolver {
	if t == nil {
		t = DefaultTaxonomy()
	}
	return &Resolver{taxonomy: t}
}

// Resolve returns the canonical genre that most tags vote for, or [Unknown].
func (r *Resolver) Resolve(tags []string) string {
	votes := r.Votes(tags)
	if len(votes) == 0 {
		return Unknown
	}

	counts := make(map[string]int)
	for _, v := range votes {
		counts[v.Genre]++
	}

	best, bestCount := Unknown, 0
	for _, g := range r.taxonomy.Genres {
		if counts[g.Name] > bestCount {
			best, bestCount = g.Name, counts[g.Name]
		}
	}
	return best
}

// Votes returns the vote of every tag that matched a genre, in tag order.
func (r *Resolver) Votes(tags []string) []Vote {
	var votes []Vote
	for _, tag := range tags {
		if v, ok := r.match(tag); ok {
			votes = append(votes, v)
		}
	}
	return votes
}

func (r *Resolver) match(tag string) (Vote, bool) {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	if normalized == "" {
		return Vote{}, false
	}

	var vote Vote
	for _, g := range r.taxonomy.Genres {
		for _, k := range g.Keywords {
			if len(k) > len(vote.Keyword) && containsKeyword(normalized, k) {
				vote = Vote{Tag: tag, Genre: g.Name, Keyword: k}
			}
		}
	}
	return vote, vote.Keyword != ""
}

func containsKeyword(tag, keyword string) bool {
	if utf8.RuneCountInString(keyword) > shortKeyword {
		return strings.Contains(tag, keyword)
	}

	for offset := 0; offset < len(tag); {
		i := strings.Index(tag[offset:], keyword)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(keyword)

		before, _ := utf8.DecodeLastRuneInString(tag[:start])
		after, _ := utf8.DecodeRuneInString(tag[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(tag) || !isWordRune(after)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(tag[start:])
		offset = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Names returns the canonical genre names in taxonomy order.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.taxonomy.Genres))
	for _, g := range r.taxonomy.Genres {
		names = append(names, g.Name)
	}
	return names
}

// Counts tallies votes per genre, sorted by count then name. Used for reporting.
func Counts(votes []Vote) []GenreCount {
	tally := make(map[string]int)
	for _, v := range votes {
		tally[v.Genre]++
	}
	out := make([]GenreCount, 0, len(tally))
	for name, n := range tally {
		out = append(out, GenreCount{Genre: name, Votes: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return out[i].Genre < out[j].Genre
	})
	return out
}

type GenreCount struct {
	Genre string
	Votes int
}

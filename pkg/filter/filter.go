package filter

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nethoundsh/rmfile/pkg/hasher"
)

// ErrNoActiveFilters is returned when a Config would have no sets. An
// unfiltered run must never turn into "delete everything".
var ErrNoActiveFilters = errors.New("no pattern input")

// Kind identifies what a pattern set is compared against.
type Kind string

const (
	Name  Kind = "name"
	IName Kind = "iname"
	SHA1  Kind = "sha1"
	GCID  Kind = "gcid"
)

// Kinds lists every kind in evaluation order: metadata first, then content.
var Kinds = []Kind{Name, IName, SHA1, GCID}

// Content reports whether testing k requires reading the file.
func (k Kind) Content() bool {
	return k == SHA1 || k == GCID
}

// Algo returns the digest backing a content kind.
func (k Kind) Algo() hasher.Algo {
	switch k {
	case SHA1:
		return hasher.SHA1
	case GCID:
		return hasher.GCID
	default:
		return ""
	}
}

// Normalize brings a pattern or candidate value into the form stored in a
// set of this kind. Only exact names are case sensitive. Whitespace is
// significant: file names may legitimately start or end with spaces.
func (k Kind) Normalize(s string) string {
	if k == Name {
		return s
	}
	return strings.ToLower(s)
}

// Set is the loaded collection of accepted values for one kind.
type Set struct {
	Kind Kind
	// Path is the pattern file the set was loaded from and is written back to.
	Path string

	values map[string]struct{}
	added  map[string]struct{}
}

// NewSet builds a set from raw pattern lines. Lines are trimmed and blank
// lines are dropped.
func NewSet(kind Kind, path string, lines []string) *Set {
	s := &Set{
		Kind:   kind,
		Path:   path,
		values: make(map[string]struct{}, len(lines)),
		added:  make(map[string]struct{}),
	}
	for _, line := range lines {
		if v := kind.Normalize(strings.TrimSpace(line)); v != "" {
			s.values[v] = struct{}{}
		}
	}
	return s
}

// Len returns the number of loaded patterns.
func (s *Set) Len() int { return len(s.values) }

// Contains reports whether v (after normalization) was loaded into the set.
func (s *Set) Contains(v string) bool {
	_, ok := s.values[s.Kind.Normalize(v)]
	return ok
}

// Add records v as a new row unless it is already present. It returns true
// the first time an unseen value is recorded.
func (s *Set) Add(v string) bool {
	v = s.Kind.Normalize(v)
	if v == "" {
		return false
	}
	if _, ok := s.values[v]; ok {
		return false
	}
	if _, ok := s.added[v]; ok {
		return false
	}
	s.added[v] = struct{}{}
	return true
}

// Added returns the rows recorded by Add, sorted.
func (s *Set) Added() []string {
	return sortedKeys(s.added)
}

// Rows returns the union of loaded and added rows, sorted.
func (s *Set) Rows() []string {
	all := make(map[string]struct{}, len(s.values)+len(s.added))
	for v := range s.values {
		all[v] = struct{}{}
	}
	for v := range s.added {
		all[v] = struct{}{}
	}
	return sortedKeys(all)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Candidate is one file under consideration. Digests are computed on first
// use and only for the algorithms the active content sets need.
type Candidate struct {
	Path string

	algos   []hasher.Algo
	digests *hasher.Result
}

// Name returns the base name of the candidate.
func (c *Candidate) Name() string {
	return filepath.Base(c.Path)
}

// Digests returns the candidate's content digests, reading the file once.
func (c *Candidate) Digests() (hasher.Result, error) {
	if c.digests != nil {
		return *c.digests, nil
	}
	res, err := hasher.File(c.Path, c.algos...)
	if err != nil {
		return hasher.Result{}, err
	}
	c.digests = &res
	return res, nil
}

// Value returns the candidate's value for kind k.
func (c *Candidate) Value(k Kind) (string, error) {
	switch k {
	case Name, IName:
		return c.Name(), nil
	case SHA1, GCID:
		d, err := c.Digests()
		if err != nil {
			return "", err
		}
		return d.ForAlgo(k.Algo()), nil
	default:
		return "", fmt.Errorf("unknown filter kind %q", k)
	}
}

// Config is the immutable set of active filters for one run.
type Config struct {
	meta    []*Set
	content []*Set
	algos   []hasher.Algo
}

// NewConfig groups sets into metadata and content filters. Nil sets are
// skipped; at least one set is required.
func NewConfig(sets ...*Set) (*Config, error) {
	c := &Config{}
	for _, s := range sets {
		if s == nil {
			continue
		}
		if s.Kind.Content() {
			c.content = append(c.content, s)
			if algo := s.Kind.Algo(); !slices.Contains(c.algos, algo) {
				c.algos = append(c.algos, algo)
			}
		} else {
			c.meta = append(c.meta, s)
		}
	}
	if len(c.meta)+len(c.content) == 0 {
		return nil, ErrNoActiveFilters
	}
	return c, nil
}

// ContentSets returns the sets that require reading file content.
func (c *Config) ContentSets() []*Set {
	return slices.Clone(c.content)
}

// NeedsContent reports whether any active filter reads file content.
func (c *Config) NeedsContent() bool {
	return len(c.content) > 0
}

// Candidate prepares a candidate for path that will compute exactly the
// digests this config needs.
func (c *Config) Candidate(path string) *Candidate {
	return &Candidate{Path: path, algos: c.algos}
}

// MatchMeta reports whether cand passes every metadata filter. It never
// reads file content.
func (c *Config) MatchMeta(cand *Candidate) bool {
	for _, s := range c.meta {
		v, _ := cand.Value(s.Kind)
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

// Match reports whether cand is a member of every active set. Metadata
// filters run first so content is only hashed when they all pass.
func (c *Config) Match(cand *Candidate) (bool, error) {
	if !c.MatchMeta(cand) {
		return false, nil
	}
	for _, s := range c.content {
		v, err := cand.Value(s.Kind)
		if err != nil {
			return false, err
		}
		if !s.Contains(v) {
			return false, nil
		}
	}
	return true, nil
}

// Collect records cand's content digests into every content set that does
// not already hold them. Metadata filters act as a gate: candidates failing
// them are left alone. It returns the number of new rows recorded.
func (c *Config) Collect(cand *Candidate) (int, error) {
	if !c.MatchMeta(cand) {
		return 0, nil
	}
	added := 0
	for _, s := range c.content {
		v, err := cand.Value(s.Kind)
		if err != nil {
			return added, err
		}
		if s.Add(v) {
			added++
		}
	}
	return added, nil
}

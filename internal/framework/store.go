// Package framework loads the teaching frameworks that define each clinical
// condition and well-child visit, and answers lookups against them.
package framework

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// ErrUnknownCondition is returned when a condition key or visit age has no
// framework.
var ErrUnknownCondition = errors.New("unknown condition")

// loadConcurrency bounds parallel file decoding.
const loadConcurrency = 8

// Store is a read-only index of frameworks. It is safe for concurrent use
// once Load returns.
type Store struct {
	frameworks map[string]*Framework
	byCategory map[string][]string
	aliases    map[string]string
	keys       []string
}

// Load decodes every *.yaml file at the root of fsys. Files whose name
// starts with "_" are skipped. A file that fails to decode is logged and
// skipped; a read error aborts the load.
func Load(ctx context.Context, fsys fs.FS, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list frameworks: %w", err)
	}

	var files []string
	for _, name := range names {
		if !strings.HasPrefix(name, "_") {
			files = append(files, name)
		}
	}

	decoded := make([]*Framework, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			fw, err := decode(data)
			if err != nil {
				log.Warn("skipping framework", zap.String("file", name), zap.Error(err))
				return nil
			}
			fw.Key = strings.TrimSuffix(path.Base(name), ".yaml")
			decoded[i] = fw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := newStore()
	for _, fw := range decoded {
		if fw != nil {
			s.add(fw)
		}
	}
	log.Debug("frameworks loaded", zap.Int("count", len(s.keys)), zap.Int("categories", len(s.byCategory)))
	return s, nil
}

func newStore() *Store {
	return &Store{
		frameworks: make(map[string]*Framework),
		byCategory: make(map[string][]string),
		aliases:    make(map[string]string),
	}
}

func decode(data []byte) (*Framework, error) {
	var fw Framework
	if err := yaml.Unmarshal(data, &fw); err != nil {
		return nil, err
	}
	if fw.Topic == "" {
		return nil, errors.New("missing topic")
	}
	if fw.AgeRange == (AgeRange{}) {
		if fw.VisitAgeMonths != nil {
			fw.AgeRange = AgeRange{Min: *fw.VisitAgeMonths, Max: *fw.VisitAgeMonths}
		} else {
			fw.AgeRange = DefaultAgeRange
		}
	}
	if fw.Category == "" {
		fw.Category = "other"
	}
	return &fw, nil
}

func (s *Store) add(fw *Framework) {
	if _, exists := s.frameworks[fw.Key]; !exists {
		s.keys = append(s.keys, fw.Key)
		sort.Strings(s.keys)
		s.byCategory[fw.Category] = append(s.byCategory[fw.Category], fw.Key)
	}
	s.frameworks[fw.Key] = fw
	for _, alias := range fw.Aliases {
		s.aliases[strings.ToLower(alias)] = fw.Key
	}
}

// Get returns the framework with the given key.
func (s *Store) Get(key string) (*Framework, bool) {
	fw, ok := s.frameworks[key]
	return fw, ok
}

// Lookup is Get with an ErrUnknownCondition error for absent keys.
func (s *Store) Lookup(key string) (*Framework, error) {
	if fw, ok := s.frameworks[key]; ok {
		return fw, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, key)
}

// Find resolves a free-form name: key spelling first, then alias, then
// topic, all case-insensitive.
func (s *Store) Find(name string) (*Framework, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))

	key := strings.NewReplacer(" ", "_", "-", "_").Replace(lower)
	if fw, ok := s.frameworks[key]; ok {
		return fw, true
	}
	if key, ok := s.aliases[lower]; ok {
		return s.frameworks[key], true
	}
	for _, k := range s.keys {
		if strings.ToLower(s.frameworks[k].Topic) == lower {
			return s.frameworks[k], true
		}
	}
	return nil, false
}

// Keys returns all framework keys sorted.
func (s *Store) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Categories returns the category names sorted.
func (s *Store) Categories() []string {
	cats := make([]string, 0, len(s.byCategory))
	for c := range s.byCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// ByCategory returns the frameworks in category, ordered by key.
func (s *Store) ByCategory(category string) []*Framework {
	keys := append([]string(nil), s.byCategory[category]...)
	sort.Strings(keys)
	out := make([]*Framework, len(keys))
	for i, k := range keys {
		out[i] = s.frameworks[k]
	}
	return out
}

// ForAge returns the frameworks whose age range contains months.
func (s *Store) ForAge(months int) []*Framework {
	var out []*Framework
	for _, k := range s.keys {
		if fw := s.frameworks[k]; fw.AgeRange.Contains(months) {
			out = append(out, fw)
		}
	}
	return out
}

// ListConditions returns the sick-visit catalog ordered by key.
func (s *Store) ListConditions() []ConditionSummary {
	var out []ConditionSummary
	for _, k := range s.keys {
		fw := s.frameworks[k]
		if fw.IsWellChild() {
			continue
		}
		out = append(out, ConditionSummary{
			Key:      fw.Key,
			Topic:    fw.Topic,
			Category: fw.Category,
			AgeRange: fw.AgeRange,
		})
	}
	return out
}

// WellChildVisits returns the well-child catalog ordered by visit age.
func (s *Store) WellChildVisits() []VisitSummary {
	var out []VisitSummary
	for _, k := range s.keys {
		fw := s.frameworks[k]
		if fw.VisitAgeMonths == nil {
			continue
		}
		out = append(out, VisitSummary{Key: fw.Key, Topic: fw.Topic, VisitAgeMonths: *fw.VisitAgeMonths})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].VisitAgeMonths < out[j].VisitAgeMonths })
	return out
}

// WellChildForAge returns the well-child framework for an exact visit age.
func (s *Store) WellChildForAge(months int) (*Framework, error) {
	for _, k := range s.keys {
		fw := s.frameworks[k]
		if fw.VisitAgeMonths != nil && *fw.VisitAgeMonths == months {
			return fw, nil
		}
	}
	return nil, fmt.Errorf("%w: no well-child visit at %d months", ErrUnknownCondition, months)
}

// Random picks a sick-visit framework, optionally within category, using
// the caller's random source.
func (s *Store) Random(r *rand.Rand, category string) (*Framework, error) {
	var pool []string
	for _, k := range s.keys {
		fw := s.frameworks[k]
		if fw.IsWellChild() {
			continue
		}
		if category != "" && fw.Category != category {
			continue
		}
		pool = append(pool, k)
	}
	if len(pool) == 0 {
		if category == "" {
			return nil, fmt.Errorf("%w: no frameworks loaded", ErrUnknownCondition)
		}
		return nil, fmt.Errorf("%w: no frameworks in category %q", ErrUnknownCondition, category)
	}
	return s.frameworks[pool[r.IntN(len(pool))]], nil
}

// Package optim searches robot property values for the combination that
// scores best on a simulated match.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Objective scores one property combination; lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// Trial is one evaluated combination.
type Trial struct {
	Params map[string]float64
	Score  float64
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64, workers int) *GridSearch {
	if workers < 1 {
		workers = 1
	}
	return &GridSearch{paramNames: params, ranges: ranges, workers: workers}
}

// ParseAxis reads "name=v1,v2,v3".
func ParseAxis(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("optim: axis %q is not name=v1,v2", s)
	}
	var values []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("optim: axis %s: %w", name, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

// Combinations enumerates the grid in odometer order, last axis fastest.
func (g *GridSearch) Combinations() []map[string]float64 {
	out := []map[string]float64{{}}
	for i, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(out)*len(g.ranges[i]))
		for _, base := range out {
			for _, v := range g.ranges[i] {
				p := lo.Assign(base, map[string]float64{name: v})
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}

// Search evaluates every combination on up to workers goroutines and
// returns the trials sorted best first. The first objective error stops
// the search.
func (g *GridSearch) Search(ctx context.Context, objective Objective) ([]Trial, error) {
	combos := g.Combinations()
	trials := make([]Trial, len(combos))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	var mu sync.Mutex
	for i, params := range combos {
		eg.Go(func() error {
			score, err := objective(ctx, params)
			if err != nil {
				return fmt.Errorf("optim: %v: %w", params, err)
			}
			if math.IsNaN(score) {
				score = math.Inf(1)
			}
			mu.Lock()
			trials[i] = Trial{Params: params, Score: score}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(trials, func(a, b int) bool { return trials[a].Score < trials[b].Score })
	return trials, nil
}

package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/san-kum/pathtrack/internal/config"
)

// Weight axis names accepted by ApplyWeights.
const (
	QX     = "q_x"
	QY     = "q_y"
	QTheta = "q_theta"
	RV     = "r_v"
	ROmega = "r_omega"
)

type Axis struct {
	Name   string
	Values []float64
}

type Candidate struct {
	Params map[string]float64
	Score  float64
	Err    error
}

// EvalFunc scores one parameter set; lower is better.
type EvalFunc func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	axes    []Axis
	workers int
}

func NewGridSearch(axes []Axis, workers int) *GridSearch {
	if workers < 1 {
		workers = 1
	}
	return &GridSearch{axes: axes, workers: workers}
}

// Combinations enumerates the full grid in axis order.
func (g *GridSearch) Combinations() []map[string]float64 {
	combos := []map[string]float64{{}}
	for _, axis := range g.axes {
		next := make([]map[string]float64, 0, len(combos)*len(axis.Values))
		for _, base := range combos {
			for _, v := range axis.Values {
				c := make(map[string]float64, len(base)+1)
				for k, bv := range base {
					c[k] = bv
				}
				c[axis.Name] = v
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

// Search evaluates every combination on a bounded worker pool and returns
// the best candidate plus all candidates sorted by score. Failed
// evaluations score +Inf and keep their error.
func (g *GridSearch) Search(ctx context.Context, eval EvalFunc) (Candidate, []Candidate, error) {
	combos := g.Combinations()
	results := make([]Candidate, len(combos))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < g.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				score, err := eval(ctx, combos[idx])
				if err != nil {
					score = math.Inf(1)
				}
				results[idx] = Candidate{Params: combos[idx], Score: score, Err: err}
			}
		}()
	}

feed:
	for i := range combos {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Candidate{}, nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score < results[j].Score })
	if len(results) == 0 || math.IsInf(results[0].Score, 1) {
		return Candidate{}, results, fmt.Errorf("optim: no candidate evaluated successfully")
	}
	return results[0], results, nil
}

// ApplyWeights returns cfg with the named weight axes overridden.
func ApplyWeights(cfg config.ControllerConfig, params map[string]float64) (config.ControllerConfig, error) {
	for name, v := range params {
		switch name {
		case QX:
			cfg.Q[0] = v
		case QY:
			cfg.Q[1] = v
		case QTheta:
			cfg.Q[2] = v
		case RV:
			cfg.R[0] = v
		case ROmega:
			cfg.R[1] = v
		default:
			return cfg, fmt.Errorf("optim: unknown weight %q", name)
		}
	}
	return cfg, cfg.Validate()
}

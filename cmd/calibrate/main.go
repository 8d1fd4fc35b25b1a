// Command calibrate estimates how often each run rule raises a false alarm on a process that is in control.  Each
// trial charts normally distributed points against CL=0, sigma=1 and records which rules fire.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/BTBurke/spc/pkg/rng"
	"github.com/BTBurke/spc/pkg/stat"
	"github.com/spf13/pflag"
)

type results struct {
	name   string
	mu     sync.Mutex
	trials int
	alarms map[stat.RuleID]int
}

func (r *results) record(violated []stat.RuleID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trials++
	for _, id := range violated {
		r.alarms[id]++
	}
}

// rate is the fraction of trials in which the rule fired
func (r *results) rate(id stat.RuleID) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.trials == 0 {
		return 0
	}
	return float64(r.alarms[id]) / float64(r.trials)
}

func newResults(name string) *results {
	return &results{
		name:   name,
		alarms: make(map[stat.RuleID]int),
	}
}

func main() {
	pf := pflag.NewFlagSet("calibrate", pflag.ExitOnError)
	points := pf.Int("points", 25, "Number of charted points per trial")
	trials := pf.Int("trials", 10000, "Number of trials")
	workers := pf.Int("workers", 4, "Number of concurrent workers")
	name := pf.String("name", "western-electric", "Name of the results file, written as <name>.txt")
	pf.Parse(os.Args[1:])

	res := newResults(*name)
	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		n := *trials / *workers
		if w < *trials%*workers {
			n++
		}
		wg.Add(1)
		log.Printf("start worker=%d trials=%d\n", w, n)
		go func(seed int64, n int) {
			defer wg.Done()
			falseAlarms(res, rng.NewSeededNormalRNG(0, 1, seed), *points, n)
		}(start.UnixNano()+int64(w), n)
	}
	wg.Wait()
	fmt.Printf("Time Elapsed: %v\n", time.Since(start))

	var b bytes.Buffer
	for _, r := range stat.Rules() {
		b.WriteString(fmt.Sprintf("%s %f\n", r.ID, res.rate(r.ID)))
	}
	fmt.Print(b.String())
	if err := os.WriteFile(fmt.Sprintf("%s.txt", res.name), b.Bytes(), 0644); err != nil {
		log.Fatalf("unable to write results: %v", err)
	}
}

func falseAlarms(results *results, r rng.RNG, points int, trials int) {
	ctx := stat.NewControlContext(0, 1)
	values := make([]float64, points)
	for i := 0; i < trials; i++ {
		for j := range values {
			values[j] = r.Rand()
		}
		results.record(stat.Evaluate(values, stat.XBar, ctx).Violated())
	}
}

package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/CTAG07/Drosera/pkg/chain"
)

// printMatrix renders an n-by-n probability table with labeled rows and
// columns as fixed-width text.
func printMatrix(w io.Writer, title string, m *chain.TransitionMatrix, prob func(i, j int) float64) {
	n := m.NumStates()
	_, _ = fmt.Fprintf(w, "%s\n", title)

	header := make([]string, 0, n+1)
	header = append(header, fmt.Sprintf("%10s", ""))
	for j := 0; j < n; j++ {
		header = append(header, fmt.Sprintf("%10s", m.Label(j)))
	}
	_, _ = fmt.Fprintln(w, strings.Join(header, " "))

	for i := 0; i < n; i++ {
		cells := make([]string, 0, n+1)
		cells = append(cells, fmt.Sprintf("%10s", m.Label(i)))
		for j := 0; j < n; j++ {
			p := prob(i, j)
			if math.IsNaN(p) {
				cells = append(cells, fmt.Sprintf("%10s", "n/a"))
			} else {
				cells = append(cells, fmt.Sprintf("%10.4f", p))
			}
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, " "))
	}
	_, _ = fmt.Fprintln(w)
}

// printVector renders a per-state vector as fixed-width text.
func printVector(w io.Writer, title string, m *chain.TransitionMatrix, v []float64) {
	_, _ = fmt.Fprintf(w, "%s\n", title)
	for i, p := range v {
		_, _ = fmt.Fprintf(w, "%10s %10.4f\n", m.Label(i), p)
	}
	_, _ = fmt.Fprintln(w)
}

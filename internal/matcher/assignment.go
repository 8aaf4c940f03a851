package matcher

import "math"

// solveAssignment finds a minimum-cost perfect assignment over a square cost
// matrix using the Jonker-Volgenant shortest-augmenting-path formulation of
// the Hungarian algorithm (O(n^3)). cost must be square; callers pad
// rectangular matrices with a high-cost dummy dimension before calling.
//
// Returns colForRow such that colForRow[i] is the column assigned to row i.
func solveAssignment(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}

	const inf = math.MaxFloat64 / 2

	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j] = row assigned to column j (1-indexed, 0 = unassigned sentinel)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = inf
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	colForRow := make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			colForRow[p[j]-1] = j - 1
		}
	}
	return colForRow
}

// Package backend selects a healthy search backend from a pool of
// SearxNG-style instances and runs queries against it.
//
// The Registry owns the priority and cooldown of every instance. The
// Selector walks the available instances in priority order, health-probes
// each one and penalizes failures with a cooldown:
//
//   - HTTP 429 on probe or query: 60 seconds
//   - any other probe failure: 24 hours
//   - a healthy probe clears any existing cooldown
//
// The first instance that answers the real query with a JSON body wins. If
// no instance answers after every round, SelectAndQuery returns ErrNoResult.
//
// # Usage
//
//	registry := backend.NewRegistry(db)
//	selector := backend.NewSelector(registry, httpClient, backend.WithMaxRounds(1))
//	result, err := selector.SelectAndQuery(ctx, "golang")
package backend

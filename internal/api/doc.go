// Package api implements the admin HTTP surface of the irrigation
// controller.
//
// It exposes:
//   - strategy CRUD, activation and reload, one route per strategy.Store operation
//   - manual decision cycles (POST /api/v1/cycles) and cycle history (GET)
//   - health and runtime status
//   - Prometheus metrics on /metrics
//
// The server follows the same lifecycle as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Authentication is not handled here; bind the listener to a trusted
// interface.
package api

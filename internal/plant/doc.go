// Package plant models the plant, pot and pump snapshot that drives each
// decision cycle, and the providers that fetch it.
//
// A snapshot is fetched fresh for every cycle and never cached. Two
// providers exist:
//   - SQLiteProvider reads the pumps/pots/plants tables of the local database
//   - HTTPProvider queries the external reasoning engine over HTTP behind a
//     circuit breaker
//
// Moisture states arrive already classified; this package does not
// interpret raw moisture readings.
package plant

// internal/app/system/csvutil/limits.go
package csvutil

// Row limit for CSV exports. Hackathons are capped well below this by
// max_teams; the limit is a guard against runaway queries.
const MaxExportRows = 20000

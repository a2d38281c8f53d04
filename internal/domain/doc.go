// Package domain models urban heat-risk zones.
//
// # Data Source
//
// Zones come from a CSV table with one row per neighborhood. Column names follow
// the municipal dataset and are matched case-insensitively:
//
//	id, nome, latitude, longitude, temperatura, ndvi, densidade_populacional [, regiao]
//
// All columns except regiao are required; a table missing any of them is
// rejected as a whole with a [SchemaError]. A missing or blank regiao is
// replaced by the configured default region at load time.
//
// # Coercion
//
// Numeric cells are parsed once, when the table is loaded. A cell that cannot be
// parsed (empty, "n/a", NaN, ...) does not fail the load: the field is stored as
// zero, recorded in Zone.Missing and reported as a [CoercionWarning].
// Integer columns accept float text ("15000.0") and truncate toward zero.
//
// # Criticality and Tiers
//
//	criticality = temperatura - ndvi * 10
//
// The index is never rounded here. Tiers use strict greater-than comparisons
// against two thresholds (defaults 35 and 25):
//
//	index > critical           Critical
//	medium < index <= critical Medium
//	index <= medium            Safe
//
// A zone whose temperature or NDVI is missing has no index and is classified
// Safe.
//
// # Snapshots
//
// A [ZoneSet] is built once per load and never mutated afterwards. Statistics
// and the report ordering are derived from it at build time and on request.
package domain

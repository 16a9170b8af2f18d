// Package domain models landslide alerting for transmission towers.
//
// # Data Sources
//
// Tower records originate from the operator's tower registry export, one row
// per monitored tower with its static terrain attributes. Terrain threat is
// the SGC (Servicio Geológico Colombiano) susceptibility classification,
// pre-computed offline from hazard rasters; this service consumes the label,
// it never derives it.
//
// Threat levels form an ordered scale:
//
//	Muy Baja < Baja < Media < Alta < Muy Alta
//
// Any other label is rejected with an unknown_threat_level error at
// classification time.
//
// # Threshold Matrix
//
// Rainfall thresholds map each threat level to a caution and a critical
// accumulation (mm over the trailing window, default 72h). The operational
// matrix:
//
//	Muy Baja:  caution 250, critical 300
//	Baja:      caution 200, critical 250
//	Media:     caution 150, critical 200
//	Alta:      caution 100, critical 120
//	Muy Alta:  caution  80, critical 100
//
// Comparisons are strict: accumulation equal to a threshold stays at the
// lower level. The matrix is loaded once at process start and immutable
// afterward.
//
// # Composite Risk Index
//
// The 0-100 risk index is a weighted sum of five normalized components:
// threat ordinal, slope, historical events, inverse drainage distance, and a
// residual site-susceptibility factor. Default weights are 15/25/20/15/25
// percent; weights are configuration, not constants. Normalization bounds
// are frozen per evaluation cycle so every tower in a cycle is scored
// against the same scale.
//
// # Alert Levels
//
// The final level is the more severe of the rain-driven level (threshold
// matrix) and the score-driven level (>60 red, 30-60 yellow, <30 green).
// Severity is a total order: green < yellow < red. Either signal alone can
// escalate; neither can suppress the other.
package domain

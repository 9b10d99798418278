// Package domain models marine weather observations and the ferry risk
// assessments derived from them.
//
// # Units
//
// All observations are stored in canonical units regardless of where the
// reading came from:
//
//	wind_speed     km/h  (≥ 0)
//	wave_height    m     (≥ 0)
//	visibility     km    (nullable, ≥ 0)
//	tide_level     m     (nullable, may be negative)
//	precipitation  mm    (nullable, ≥ 0)
//
// Readings in other units are converted by [NormalizeReading]. Supported wind
// units are kmh, ms, kn and mph; visibility units are km, m and mi.
//
// # Risk Scoring
//
// A risk score is a 0–100 severity estimate for sea travel. The preferred
// source is an external predictive service; when it is unavailable the
// heuristic in [HeuristicAssessment] is used:
//
//	waveScore = min(wave_height / 3.0 × 100, 100)
//	windScore = min(wind_speed / 60.0 × 100, 100)
//	score     = round(waveScore × 0.7 + windScore × 0.3)
//
//	  score ≥ 70  High Risk
//	  score ≥ 30  Caution
//	  otherwise   Safe
//
// Waves above 2.0 m or wind above 50 km/h force High Risk and raise the
// score to at least 85. Waves carry more weight than wind because ferries
// are far more sensitive to sea state.
//
// # Routes
//
// Route checkpoints are linear interpolations in degree space between two
// ports ([Interpolate]). They do not follow great circles and do not avoid
// land; for the short inter-island hops this service targets, the error is
// well under the spatial resolution of the marine forecast grid.
//
// A route is deep-sea risky when any checkpoint sees waves above 2.5 m or
// is assessed High Risk. Checkpoints without a forecast are dropped, so a
// route with no forecasts at all reports "not risky". Callers must check
// [RouteAssessment.Checkpoints] before treating that verdict as safe.
//
// # Forecast Cache Keys
//
// Forecasts are cached by coordinates rounded to two decimal places
// (≈1.1 km at the equator). The bucketing is deliberate and lossy; see
// [ForecastCacheKey].
package domain

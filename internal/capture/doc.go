// Package capture implements the photo capture pipeline: validation,
// data URL encoding with a downscaling fallback, per-platform capture
// strategies, the tab-scoped hand-off store used across page navigations,
// and the upload surface state machine that drives them.
package capture

// Package key provides canonical key identifiers and event normalization.
//
// This package defines the fundamental types for representing keyboard input:
//
//   - Key: A canonical key identifier ("ArrowUp", "Control", "a", "Any")
//   - Modifier: Modifier flags (Shift, Ctrl, Alt, Meta, CapsLock)
//   - State: Modifier flags plus the repeat flag, carried across transitions
//   - Event: A raw key transition as delivered by a host
//   - Resolver: Maps free-form labels and aliases to canonical keys
//   - Normalizer: Turns a raw Event into a canonical key
//
// # Labels and Aliases
//
// Labels are resolved case-insensitively against an alias table:
//
//   - Aliases: "ctrl" -> "Control", "esc" -> "Escape", "up" -> "ArrowUp"
//   - Canonical names: "ArrowUp" -> "ArrowUp"
//   - Unknown labels: "Q" -> "q" (or "Q" when case is preserved)
//
// # Legacy Codes
//
// Hosts that cannot report a named key value fall back to numeric key
// codes. The Normalizer resolves them through the code tables, taking
// Shift and CapsLock into account for the QWERTY-US reference layout.
package key

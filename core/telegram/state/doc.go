// Package state provides a lightweight FSM manager for Telegram bots.
// It is intentionally domain-agnostic so conversational intakes (verification
// steps, broadcast authoring) can share one per-user state slot.
package state

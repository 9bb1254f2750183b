// Package assistant implements the conversational intent-resolution pipeline:
// intent classification, entity extraction, multi-turn clarification, action
// planning with confidence-gated auto-execution, and isolated per-action
// dispatch to the store.
package assistant

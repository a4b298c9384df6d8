// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (voting.go, user_stats.go, chat.go, moderation.go, ...) hold
// shared types and the ports implemented by adapters. No implementation code - just contracts.
package domain

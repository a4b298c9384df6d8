// Package app holds the bot's use cases.
//
// The voting engine runs the ban-poll state machine, the resolver executes
// its outcome against the chat, intake handles every group message, and the
// dispatcher routes inbound updates to them. Cleanup schedules and sweeps
// delayed message deletions under a Redis leader lease. Depends on domain
// ports, not on concrete adapters.
package app

// Package api exposes decks, cards, extraction jobs and study sessions over
// HTTP. Handlers translate requests into calls on the stores, the study
// manager and the event emitter, and map their errors to status codes and
// client-safe messages.
package api

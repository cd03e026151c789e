// Package generation defines the boundary to the document-extraction service
// that turns study material into new flashcard drafts. Implementations live
// under internal/platform (Gemini); the rest of the application only sees the
// Generator interface.
package generation

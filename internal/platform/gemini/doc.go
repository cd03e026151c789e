// Package gemini implements generation.Generator on top of Google's Gemini API
// (google.golang.org/genai).
//
// A prompt is rendered from a text/template (a built-in medical extraction
// prompt unless a template file is configured), sent with a JSON response
// type, and the returned array of cloze and question/answer cards is validated
// and converted into domain.CardDraft values. Transient API failures are
// retried with exponential backoff and jitter; blocked content and malformed
// responses are not.
package gemini

// Package events provides an in-process publish/subscribe mechanism.
//
// Producers such as the study session manager emit typed events (see the
// Type* constants) with JSON payloads; handlers such as the daily progress
// recorder and the extraction task dispatcher register with an emitter and
// pick out the types they consume. Neither side imports the other.
package events

// Package task runs background work outside the HTTP request path.
// Tasks are pushed onto a bounded in-memory queue and executed by a fixed
// pool of workers; a Tracker records each job's status so clients can poll it.
// Document extraction is the only task type.
package task

// Package batch lets a tool accept one id or a list of ids and report a result
// per id, so a partial failure does not fail the whole call.
package batch

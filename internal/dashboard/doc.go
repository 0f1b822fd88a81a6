// Package dashboard holds the state behind the AutoGmail dashboard.
//
// A Session keeps one user's inbox, the selected email, the editable reply draft,
// the busy flags of in-flight operations and the last user-facing notice. All
// backend calls run outside the session lock. Each call captures a sequence
// number first, and a result whose sequence has moved on (another email was
// selected, or a newer refresh started) is dropped with ErrStale instead of
// overwriting newer state.
//
// With demo fallback enabled the session substitutes placeholder data when the
// backend is unreachable, so the dashboard stays usable as a preview.
package dashboard

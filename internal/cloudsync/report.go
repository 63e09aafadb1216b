package cloudsync

import "fmt"

// PushReport counts rows pushed before the run finished or failed.
type PushReport struct {
	Kind   Kind
	Pushed int
	Err    error
}

type Kind int

const (
	KindPersons Kind = iota + 1
	KindEntries
)

func (r PushReport) String() string {
	switch {
	case r.Err != nil && r.Kind == KindEntries:
		return fmt.Sprintf("Cloud entries push failed: %v", r.Err)
	case r.Err != nil:
		return fmt.Sprintf("Cloud push failed: %v", r.Err)
	case r.Kind == KindEntries:
		return fmt.Sprintf("Pushed %d entries to cloud.", r.Pushed)
	default:
		return fmt.Sprintf("Pushed %d person(s) to cloud.", r.Pushed)
	}
}

type PersonPullReport struct {
	Fetched  int
	Imported int
	Skipped  int
	// LocalNotEmpty is set when a sign-in pull found local persons and did
	// nothing.
	LocalNotEmpty bool
}

func (r PersonPullReport) String() string {
	switch {
	case r.LocalNotEmpty:
		return "Local persons present; skipped cloud pull."
	case r.Fetched == 0:
		return "No cloud persons found."
	default:
		return fmt.Sprintf("Pulled %d person(s) from cloud.", r.Fetched)
	}
}

type EntryPullReport struct {
	Imported int
	Skipped  int
}

func (r EntryPullReport) String() string {
	return fmt.Sprintf("Pulled entries: imported %d, skipped %d.", r.Imported, r.Skipped)
}

package store

import "time"

// Options selects the touch and cascade behaviour of the stores.
type Options struct {
	// TouchOnProjectUpdate moves updated_at on every direct project update.
	TouchOnProjectUpdate bool
	// TouchOnTaskDelete touches the parent project when a task is deleted.
	TouchOnTaskDelete bool
	// CascadeProjectDelete removes a project's tasks together with the project.
	CascadeProjectDelete bool
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// DefaultOptions mirrors the service defaults: updates touch, task deletes
// do not, project deletes do not cascade.
func DefaultOptions() Options {
	return Options{TouchOnProjectUpdate: true}
}

// now returns the current time in UTC at the precision PostgreSQL stores.
func (o Options) now() time.Time {
	clock := o.Now
	if clock == nil {
		clock = time.Now
	}
	return clock().UTC().Truncate(time.Microsecond)
}

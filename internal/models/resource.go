package models

import "time"

// ActiveState is whether a resource is being monitored.
type ActiveState string

const (
	StateActive ActiveState = "active"
	StatePaused ActiveState = "paused"
)

// ParseActiveState maps a stored value to a state. Anything unknown is treated as active.
func ParseActiveState(s string) ActiveState {
	if ActiveState(s) == StatePaused {
		return StatePaused
	}
	return StateActive
}

// StateFromBool maps the API's active flag to a state.
func StateFromBool(active bool) ActiveState {
	if active {
		return StateActive
	}
	return StatePaused
}

func (s ActiveState) IsActive() bool { return s != StatePaused }

// Toggle flips active and paused.
func (s ActiveState) Toggle() ActiveState {
	if s.IsActive() {
		return StatePaused
	}
	return StateActive
}

// String renders the state the way change entries show it ("True"/"False").
func (s ActiveState) String() string {
	if s.IsActive() {
		return "True"
	}
	return "False"
}

// Resource is a monitored URL.
type Resource struct {
	ID         int64
	Identifier string
	Created    time.Time
	Updated    time.Time
	Deleted    *time.Time
	NextScan   *time.Time
	Status     *string
	State      ActiveState
	Name       string
	URL        string
}

// ResourceView is the API representation of a resource. LastScan mirrors Updated.
type ResourceView struct {
	ID       string     `json:"id"`
	Status   *string    `json:"status"`
	Name     string     `json:"name"`
	URL      string     `json:"url"`
	Active   bool       `json:"active"`
	LastScan time.Time  `json:"lastScan"`
	NextScan *time.Time `json:"nextScan"`
}

func (r Resource) View() ResourceView {
	return ResourceView{
		ID:       r.Identifier,
		Status:   r.Status,
		Name:     r.Name,
		URL:      r.URL,
		Active:   r.State.IsActive(),
		LastScan: r.Updated,
		NextScan: r.NextScan,
	}
}

func (r Resource) String() string {
	return r.Identifier + " " + r.URL
}

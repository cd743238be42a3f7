package state

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// State is the canonical shared document for one planning session. Agents
// never hold a *State; they receive value snapshots and hand back diffs.
type State struct {
	UserProfile UserProfile `json:"user_profile"`
	Tasks       []Task      `json:"tasks"`
	TravelInfo  TravelInfo  `json:"travel_info"`
}

// UserProfile captures the traveler's standing preferences.
type UserProfile struct {
	PassportNationality string   `json:"passport_nationality"`
	SeatPreference      string   `json:"seat_preference"`
	FoodPreference      string   `json:"food_preference"`
	Allergies           []string `json:"allergies"`
	Likes               []string `json:"likes"`
	Dislikes            []string `json:"dislikes"`
	PriceSensitivity    []string `json:"price_sensitivity"`
	Home                HomeBase `json:"home"`
}

// HomeBase describes the traveler's home anchor used for local transit hints.
type HomeBase struct {
	EventType       string `json:"event_type"`
	Address         string `json:"address"`
	LocalPreferMode string `json:"local_prefer_mode"`
}

// TravelInfo holds everything about the trip being planned.
type TravelInfo struct {
	Origin             string         `json:"origin"`
	Destination        string         `json:"destination"`
	StartDate          string         `json:"start_date"`
	EndDate            string         `json:"end_date"`
	Itinerary          map[string]any `json:"itinerary"`
	Outbound           LegSelection   `json:"outbound"`
	Return             LegSelection   `json:"return"`
	Hotel              HotelSelection `json:"hotel"`
	POI                []string       `json:"poi"`
	ItineraryDatetime  string         `json:"itinerary_datetime"`
	ItineraryStartDate string         `json:"itinerary_start_date"`
	ItineraryEndDate   string         `json:"itinerary_end_date"`
}

// LegSelection is the booked choice for one flight leg.
type LegSelection struct {
	FlightSelection string `json:"flight_selection"`
	SeatNumber      string `json:"seat_number"`
}

// HotelSelection is the booked hotel and room choice.
type HotelSelection struct {
	HotelSelection string `json:"hotel_selection"`
	RoomSelection  string `json:"room_selection"`
}

// Task is one unit of work requested by an agent. TaskID is unique across
// the whole task list for the lifetime of the session.
type Task struct {
	TaskID      string         `json:"task_id"`
	AgentOrigin string         `json:"agent_origin"`
	Intent      string         `json:"intent"`
	Tool        string         `json:"tool,omitempty"`
	Args        map[string]any `json:"args,omitempty"`
	Priority    int            `json:"priority,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Status      TaskStatus     `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskFailed     TaskStatus = "failed"
)

// rank orders statuses along the allowed lifecycle. done and failed are both
// terminal; a task never moves backward to a lower rank.
func (s TaskStatus) rank() int {
	switch s {
	case TaskPending:
		return 0
	case TaskInProgress:
		return 1
	case TaskDone, TaskFailed:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	return s.rank() >= 0
}

// Terminal reports whether s is an end state.
func (s TaskStatus) Terminal() bool {
	return s == TaskDone || s == TaskFailed
}

// NewTaskID generates a unique short task identifier.
func NewTaskID() string {
	id, err := gonanoid.New(12)
	if err != nil {
		// crypto/rand failure; fall back to a timestamp-derived ID
		return fmt.Sprintf("task-%d", time.Now().UnixNano())
	}
	return id
}

// NewTemplate returns the initial state document for a fresh session. Every
// session starts from this same shape so downstream readers can rely on all
// keys being present.
func NewTemplate() State {
	return State{
		UserProfile: UserProfile{
			Allergies:        []string{},
			Likes:            []string{},
			Dislikes:         []string{},
			PriceSensitivity: []string{},
			Home:             HomeBase{EventType: "home"},
		},
		Tasks: []Task{},
		TravelInfo: TravelInfo{
			Itinerary: map[string]any{},
			POI:       []string{},
		},
	}
}

// Clone returns a deep copy of the state safe for independent mutation.
func (s State) Clone() State {
	clone := s

	clone.UserProfile.Allergies = cloneStrings(s.UserProfile.Allergies)
	clone.UserProfile.Likes = cloneStrings(s.UserProfile.Likes)
	clone.UserProfile.Dislikes = cloneStrings(s.UserProfile.Dislikes)
	clone.UserProfile.PriceSensitivity = cloneStrings(s.UserProfile.PriceSensitivity)

	if s.Tasks != nil {
		clone.Tasks = make([]Task, len(s.Tasks))
		for i, t := range s.Tasks {
			clone.Tasks[i] = t.clone()
		}
	}

	clone.TravelInfo.Itinerary = cloneAnyMap(s.TravelInfo.Itinerary)
	clone.TravelInfo.POI = cloneStrings(s.TravelInfo.POI)

	return clone
}

// TaskByID returns the task with the given ID, or nil when absent.
func (s *State) TaskByID(id string) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].TaskID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

func (t Task) clone() Task {
	clone := t
	clone.Args = cloneAnyMap(t.Args)
	clone.Metadata = cloneAnyMap(t.Metadata)
	return clone
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

// cloneAnyMap deep-copies a JSON-shaped map. Nested maps and slices are
// copied; scalar values are shared, which is safe because JSON scalars are
// immutable.
func cloneAnyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneAnyValue(v)
	}
	return dst
}

func cloneAnyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneAnyMap(val)
	case []any:
		dst := make([]any, len(val))
		for i, item := range val {
			dst[i] = cloneAnyValue(item)
		}
		return dst
	default:
		return v
	}
}

package state

import (
	"fmt"
	"time"
)

// Diff is a proposed partial update to a State. Only the fields present are
// applied; everything else in the current state is preserved. Diffs are plain
// data: building one performs no reads or writes against canonical state.
type Diff struct {
	Profile *ProfileDiff `json:"profile,omitempty"`
	Travel  *TravelDiff  `json:"travel,omitempty"`
	Tasks   []TaskDiff   `json:"tasks,omitempty"`
}

// ProfileDiff updates traveler preference fields. Nil pointers and nil slices
// mean "leave unchanged"; a non-nil slice replaces the list wholesale.
type ProfileDiff struct {
	PassportNationality *string   `json:"passport_nationality,omitempty"`
	SeatPreference      *string   `json:"seat_preference,omitempty"`
	FoodPreference      *string   `json:"food_preference,omitempty"`
	Allergies           []string  `json:"allergies,omitempty"`
	Likes               []string  `json:"likes,omitempty"`
	Dislikes            []string  `json:"dislikes,omitempty"`
	PriceSensitivity    []string  `json:"price_sensitivity,omitempty"`
	Home                *HomeDiff `json:"home,omitempty"`
}

// HomeDiff updates the traveler's home anchor.
type HomeDiff struct {
	EventType       *string `json:"event_type,omitempty"`
	Address         *string `json:"address,omitempty"`
	LocalPreferMode *string `json:"local_prefer_mode,omitempty"`
}

// TravelDiff updates trip fields. The Itinerary map is merged recursively
// into the current itinerary; all other collection fields replace wholesale.
type TravelDiff struct {
	Origin             *string         `json:"origin,omitempty"`
	Destination        *string         `json:"destination,omitempty"`
	StartDate          *string         `json:"start_date,omitempty"`
	EndDate            *string         `json:"end_date,omitempty"`
	Itinerary          map[string]any  `json:"itinerary,omitempty"`
	Outbound           *LegDiff        `json:"outbound,omitempty"`
	Return             *LegDiff        `json:"return,omitempty"`
	Hotel              *HotelDiff      `json:"hotel,omitempty"`
	POI                []string        `json:"poi,omitempty"`
	ItineraryDatetime  *string         `json:"itinerary_datetime,omitempty"`
	ItineraryStartDate *string         `json:"itinerary_start_date,omitempty"`
	ItineraryEndDate   *string         `json:"itinerary_end_date,omitempty"`
}

// LegDiff updates one flight leg selection.
type LegDiff struct {
	FlightSelection *string `json:"flight_selection,omitempty"`
	SeatNumber      *string `json:"seat_number,omitempty"`
}

// HotelDiff updates the hotel selection.
type HotelDiff struct {
	HotelSelection *string `json:"hotel_selection,omitempty"`
	RoomSelection  *string `json:"room_selection,omitempty"`
}

// TaskDiff creates or updates a single task, keyed by TaskID. Updates touch
// only the fields present; Args and Metadata replace the whole map when set.
type TaskDiff struct {
	TaskID      string         `json:"task_id"`
	AgentOrigin *string        `json:"agent_origin,omitempty"`
	Intent      *string        `json:"intent,omitempty"`
	Tool        *string        `json:"tool,omitempty"`
	Args        map[string]any `json:"args,omitempty"`
	Priority    *int           `json:"priority,omitempty"`
	Timestamp   *time.Time     `json:"timestamp,omitempty"`
	Status      *TaskStatus    `json:"status,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Validate checks that the diff is structurally sound. It is called by Merge
// before any state is touched, so a failing diff can never half-apply.
func (d Diff) Validate() error {
	for i, td := range d.Tasks {
		if td.TaskID == "" {
			return fmt.Errorf("%w: tasks[%d]", ErrMissingTaskID, i)
		}
		if td.Status != nil && !td.Status.Valid() {
			return fmt.Errorf("%w: tasks[%d] status %q", ErrInvalidStatus, i, *td.Status)
		}
	}
	return nil
}

// Empty reports whether applying the diff would change nothing.
func (d Diff) Empty() bool {
	return d.Profile == nil && d.Travel == nil && len(d.Tasks) == 0
}

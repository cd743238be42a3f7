package state

import "time"

// NewTask constructs a fresh pending task attributed to an agent. The
// timestamp is stamped here, at proposal time, which keeps Merge free of
// clock reads.
func NewTask(agentOrigin, intent string) Task {
	return Task{
		TaskID:      NewTaskID(),
		AgentOrigin: agentOrigin,
		Intent:      intent,
		Timestamp:   time.Now().UTC(),
		Status:      TaskPending,
	}
}

// NewDiff returns an empty diff. Builder methods return the diff so calls
// can be chained; the result is still plain data with no link back to any
// session.
func NewDiff() *Diff {
	return &Diff{}
}

// AddTask records a full task in the diff. Merging appends it when the
// TaskID is new and updates the existing task otherwise.
func (d *Diff) AddTask(t Task) *Diff {
	entry := d.taskEntry(t.TaskID)
	entry.AgentOrigin = ptr(t.AgentOrigin)
	entry.Intent = ptr(t.Intent)
	if t.Tool != "" {
		entry.Tool = ptr(t.Tool)
	}
	if t.Args != nil {
		entry.Args = cloneAnyMap(t.Args)
	}
	if t.Priority != 0 {
		entry.Priority = ptr(t.Priority)
	}
	if !t.Timestamp.IsZero() {
		entry.Timestamp = ptr(t.Timestamp)
	}
	entry.Status = ptr(t.Status)
	if t.Metadata != nil {
		entry.Metadata = cloneAnyMap(t.Metadata)
	}
	return d
}

// SetTaskStatus proposes a status change for one task.
func (d *Diff) SetTaskStatus(taskID string, status TaskStatus) *Diff {
	d.taskEntry(taskID).Status = ptr(status)
	return d
}

// SetTaskMetadata proposes replacing one task's metadata map.
func (d *Diff) SetTaskMetadata(taskID string, meta map[string]any) *Diff {
	d.taskEntry(taskID).Metadata = cloneAnyMap(meta)
	return d
}

// SetOrigin proposes the trip origin.
func (d *Diff) SetOrigin(origin string) *Diff {
	d.travel().Origin = ptr(origin)
	return d
}

// SetDestination proposes the trip destination.
func (d *Diff) SetDestination(destination string) *Diff {
	d.travel().Destination = ptr(destination)
	return d
}

// SetTravelDates proposes the trip start and end dates.
func (d *Diff) SetTravelDates(start, end string) *Diff {
	t := d.travel()
	t.StartDate = ptr(start)
	t.EndDate = ptr(end)
	return d
}

// SetStartDate proposes the trip start date alone.
func (d *Diff) SetStartDate(start string) *Diff {
	d.travel().StartDate = ptr(start)
	return d
}

// SetEndDate proposes the trip end date alone.
func (d *Diff) SetEndDate(end string) *Diff {
	d.travel().EndDate = ptr(end)
	return d
}

// MergeItinerary proposes entries to merge into the itinerary document.
func (d *Diff) MergeItinerary(entries map[string]any) *Diff {
	t := d.travel()
	if t.Itinerary == nil {
		t.Itinerary = make(map[string]any, len(entries))
	}
	mergeMaps(t.Itinerary, entries)
	return d
}

// SetPOI proposes replacing the points-of-interest list.
func (d *Diff) SetPOI(poi []string) *Diff {
	d.travel().POI = cloneStrings(poi)
	return d
}

// SetOutbound proposes the outbound flight selection.
func (d *Diff) SetOutbound(flight, seat string) *Diff {
	d.travel().Outbound = &LegDiff{FlightSelection: ptr(flight), SeatNumber: ptr(seat)}
	return d
}

// SetReturn proposes the return flight selection.
func (d *Diff) SetReturn(flight, seat string) *Diff {
	d.travel().Return = &LegDiff{FlightSelection: ptr(flight), SeatNumber: ptr(seat)}
	return d
}

// SetHotel proposes the hotel and room selection.
func (d *Diff) SetHotel(hotel, room string) *Diff {
	d.travel().Hotel = &HotelDiff{HotelSelection: ptr(hotel), RoomSelection: ptr(room)}
	return d
}

// SetItineraryDates proposes the resolved itinerary window.
func (d *Diff) SetItineraryDates(datetime, start, end string) *Diff {
	t := d.travel()
	t.ItineraryDatetime = ptr(datetime)
	t.ItineraryStartDate = ptr(start)
	t.ItineraryEndDate = ptr(end)
	return d
}

// SetSeatPreference proposes the traveler's seat preference.
func (d *Diff) SetSeatPreference(pref string) *Diff {
	d.profile().SeatPreference = ptr(pref)
	return d
}

// SetFoodPreference proposes the traveler's food preference.
func (d *Diff) SetFoodPreference(pref string) *Diff {
	d.profile().FoodPreference = ptr(pref)
	return d
}

// SetPassportNationality proposes the traveler's passport nationality.
func (d *Diff) SetPassportNationality(nationality string) *Diff {
	d.profile().PassportNationality = ptr(nationality)
	return d
}

// SetHomeAddress proposes the traveler's home address.
func (d *Diff) SetHomeAddress(address string) *Diff {
	p := d.profile()
	if p.Home == nil {
		p.Home = &HomeDiff{}
	}
	p.Home.Address = ptr(address)
	return d
}

func (d *Diff) taskEntry(id string) *TaskDiff {
	for i := range d.Tasks {
		if d.Tasks[i].TaskID == id {
			return &d.Tasks[i]
		}
	}
	d.Tasks = append(d.Tasks, TaskDiff{TaskID: id})
	return &d.Tasks[len(d.Tasks)-1]
}

func (d *Diff) travel() *TravelDiff {
	if d.Travel == nil {
		d.Travel = &TravelDiff{}
	}
	return d.Travel
}

func (d *Diff) profile() *ProfileDiff {
	if d.Profile == nil {
		d.Profile = &ProfileDiff{}
	}
	return d.Profile
}

func ptr[T any](v T) *T {
	return &v
}

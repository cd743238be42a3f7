package state

// Merge applies a diff to a state and returns the merged result. It is pure:
// no I/O, no clock reads, and neither input is mutated, so callers can retry
// or replay a merge freely. Applying the same diff twice yields the same
// state as applying it once.
func Merge(cur State, d Diff) (State, error) {
	if err := d.Validate(); err != nil {
		return State{}, err
	}

	next := cur.Clone()
	applyProfile(&next.UserProfile, d.Profile)
	applyTravel(&next.TravelInfo, d.Travel)
	applyTasks(&next.Tasks, d.Tasks)
	return next, nil
}

func applyProfile(p *UserProfile, d *ProfileDiff) {
	if d == nil {
		return
	}
	if d.PassportNationality != nil {
		p.PassportNationality = *d.PassportNationality
	}
	if d.SeatPreference != nil {
		p.SeatPreference = *d.SeatPreference
	}
	if d.FoodPreference != nil {
		p.FoodPreference = *d.FoodPreference
	}
	if d.Allergies != nil {
		p.Allergies = cloneStrings(d.Allergies)
	}
	if d.Likes != nil {
		p.Likes = cloneStrings(d.Likes)
	}
	if d.Dislikes != nil {
		p.Dislikes = cloneStrings(d.Dislikes)
	}
	if d.PriceSensitivity != nil {
		p.PriceSensitivity = cloneStrings(d.PriceSensitivity)
	}
	if d.Home != nil {
		if d.Home.EventType != nil {
			p.Home.EventType = *d.Home.EventType
		}
		if d.Home.Address != nil {
			p.Home.Address = *d.Home.Address
		}
		if d.Home.LocalPreferMode != nil {
			p.Home.LocalPreferMode = *d.Home.LocalPreferMode
		}
	}
}

func applyTravel(t *TravelInfo, d *TravelDiff) {
	if d == nil {
		return
	}
	if d.Origin != nil {
		t.Origin = *d.Origin
	}
	if d.Destination != nil {
		t.Destination = *d.Destination
	}
	if d.StartDate != nil {
		t.StartDate = *d.StartDate
	}
	if d.EndDate != nil {
		t.EndDate = *d.EndDate
	}
	if d.Itinerary != nil {
		if t.Itinerary == nil {
			t.Itinerary = make(map[string]any, len(d.Itinerary))
		}
		mergeMaps(t.Itinerary, d.Itinerary)
	}
	if d.Outbound != nil {
		applyLeg(&t.Outbound, d.Outbound)
	}
	if d.Return != nil {
		applyLeg(&t.Return, d.Return)
	}
	if d.Hotel != nil {
		if d.Hotel.HotelSelection != nil {
			t.Hotel.HotelSelection = *d.Hotel.HotelSelection
		}
		if d.Hotel.RoomSelection != nil {
			t.Hotel.RoomSelection = *d.Hotel.RoomSelection
		}
	}
	if d.POI != nil {
		t.POI = cloneStrings(d.POI)
	}
	if d.ItineraryDatetime != nil {
		t.ItineraryDatetime = *d.ItineraryDatetime
	}
	if d.ItineraryStartDate != nil {
		t.ItineraryStartDate = *d.ItineraryStartDate
	}
	if d.ItineraryEndDate != nil {
		t.ItineraryEndDate = *d.ItineraryEndDate
	}
}

func applyLeg(l *LegSelection, d *LegDiff) {
	if d.FlightSelection != nil {
		l.FlightSelection = *d.FlightSelection
	}
	if d.SeatNumber != nil {
		l.SeatNumber = *d.SeatNumber
	}
}

// applyTasks merges task entries by TaskID: an entry matching an existing
// task updates it in place, anything else appends in diff order. Entries are
// processed sequentially, so a duplicate TaskID inside one diff updates the
// task appended moments earlier instead of producing a second copy.
func applyTasks(tasks *[]Task, diffs []TaskDiff) {
	for _, td := range diffs {
		if existing := findTask(*tasks, td.TaskID); existing != nil {
			applyTaskDiff(existing, td)
			continue
		}
		*tasks = append(*tasks, newTask(td))
	}
}

func findTask(tasks []Task, id string) *Task {
	for i := range tasks {
		if tasks[i].TaskID == id {
			return &tasks[i]
		}
	}
	return nil
}

func applyTaskDiff(t *Task, d TaskDiff) {
	if d.AgentOrigin != nil {
		t.AgentOrigin = *d.AgentOrigin
	}
	if d.Intent != nil {
		t.Intent = *d.Intent
	}
	if d.Tool != nil {
		t.Tool = *d.Tool
	}
	if d.Args != nil {
		t.Args = cloneAnyMap(d.Args)
	}
	if d.Priority != nil {
		t.Priority = *d.Priority
	}
	if d.Timestamp != nil {
		t.Timestamp = *d.Timestamp
	}
	// Status only ever moves forward; a regression or terminal rewrite in a
	// diff is dropped while the rest of the entry still applies.
	if d.Status != nil && d.Status.rank() > t.Status.rank() {
		t.Status = *d.Status
	}
	if d.Metadata != nil {
		t.Metadata = cloneAnyMap(d.Metadata)
	}
}

func newTask(d TaskDiff) Task {
	t := Task{
		TaskID: d.TaskID,
		Status: TaskPending,
	}
	if d.AgentOrigin != nil {
		t.AgentOrigin = *d.AgentOrigin
	}
	if d.Intent != nil {
		t.Intent = *d.Intent
	}
	if d.Tool != nil {
		t.Tool = *d.Tool
	}
	if d.Args != nil {
		t.Args = cloneAnyMap(d.Args)
	}
	if d.Priority != nil {
		t.Priority = *d.Priority
	}
	if d.Timestamp != nil {
		t.Timestamp = *d.Timestamp
	}
	if d.Status != nil {
		t.Status = *d.Status
	}
	if d.Metadata != nil {
		t.Metadata = cloneAnyMap(d.Metadata)
	}
	return t
}

// mergeMaps merges src into dst with an explicit work stack instead of
// recursion, so deeply nested itineraries cannot grow the call stack. When
// both sides hold a map under the same key the pair is pushed for a deeper
// merge; any other value from src replaces what dst holds, lists included.
func mergeMaps(dst, src map[string]any) {
	type pair struct {
		dst, src map[string]any
	}
	stack := []pair{{dst, src}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for k, sv := range p.src {
			sm, srcIsMap := sv.(map[string]any)
			if srcIsMap {
				if dm, dstIsMap := p.dst[k].(map[string]any); dstIsMap {
					stack = append(stack, pair{dm, sm})
					continue
				}
			}
			p.dst[k] = cloneAnyValue(sv)
		}
	}
}

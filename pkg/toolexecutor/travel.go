package toolexecutor

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// RegisterTravelTools registers the built-in reference search tools. The
// handlers are deterministic stand-ins for live inventory providers: the
// same query always yields the same options, which keeps planning runs
// reproducible.
func RegisterTravelTools(e *Executor) error {
	for _, def := range TravelTools() {
		if err := e.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// TravelTools returns the definitions of the built-in reference tools
func TravelTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "flight_search",
			Description: "Search for flight options between two cities",
			Parameters: []ToolParameter{
				{Name: "origin", Type: "string", Description: "Departure city", Required: true},
				{Name: "destination", Type: "string", Description: "Arrival city", Required: true},
				{Name: "date", Type: "string", Description: "Departure date (YYYY-MM-DD)", Required: false},
			},
			Handler: flightSearch,
		},
		{
			Name:        "hotel_search",
			Description: "Search for hotel options in a city",
			Parameters: []ToolParameter{
				{Name: "destination", Type: "string", Description: "City to stay in", Required: true},
				{Name: "check_in", Type: "string", Description: "Check-in date (YYYY-MM-DD)", Required: false},
				{Name: "check_out", Type: "string", Description: "Check-out date (YYYY-MM-DD)", Required: false},
			},
			Handler: hotelSearch,
		},
		{
			Name:        "rail_search",
			Description: "Search for rail connections between two cities",
			Parameters: []ToolParameter{
				{Name: "origin", Type: "string", Description: "Departure city", Required: true},
				{Name: "destination", Type: "string", Description: "Arrival city", Required: true},
				{Name: "date", Type: "string", Description: "Travel date (YYYY-MM-DD)", Required: false},
			},
			Handler: railSearch,
		},
		{
			Name:        "poi_search",
			Description: "Search for points of interest in a city",
			Parameters: []ToolParameter{
				{Name: "destination", Type: "string", Description: "City to explore", Required: true},
				{Name: "interests", Type: "array", Description: "Interest categories to focus on", Required: false},
			},
			Handler: poiSearch,
		},
	}
}

var (
	airlines = []string{"Aquila Air", "Northwind", "Meridian", "Cirrus Connect"}
	railways = []string{"InterCity Express", "Coastal Line", "Capital Sprinter"}
	hotels   = []string{"Hotel Almeda", "The Wrenhouse", "Casa Perlata", "Stadthof", "Harbour Rest"}
	areas    = []string{"old town", "city center", "riverside", "station district"}
	sights   = []string{
		"historic old town walk", "national museum", "city viewpoint",
		"botanical garden", "food market hall", "harbour promenade",
		"contemporary art gallery", "cathedral quarter",
	}
)

// stableSeed hashes query fields into a seed so results are reproducible
func stableSeed(parts ...string) int {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.Join(parts, "|"))))
	return int(h.Sum32())
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func flightSearch(ctx context.Context, args map[string]any) (any, error) {
	origin := stringArg(args, "origin")
	destination := stringArg(args, "destination")
	date := stringArg(args, "date")

	seed := stableSeed("flight", origin, destination, date)
	options := make([]map[string]any, 0, 3)
	for i := 0; i < 3; i++ {
		n := seed + i*7919
		if n < 0 {
			n = -n
		}
		carrier := airlines[n%len(airlines)]
		options = append(options, map[string]any{
			"flight":       fmt.Sprintf("%s %d", carrier, 100+n%800),
			"depart":       fmt.Sprintf("%02d:%02d", 6+n%15, (n/15%4)*15),
			"duration_min": 85 + n%420,
			"price_eur":    59 + n%490,
			"cabin":        "economy",
		})
	}

	return map[string]any{
		"origin":      origin,
		"destination": destination,
		"date":        date,
		"options":     options,
	}, nil
}

func hotelSearch(ctx context.Context, args map[string]any) (any, error) {
	destination := stringArg(args, "destination")
	checkIn := stringArg(args, "check_in")
	checkOut := stringArg(args, "check_out")

	seed := stableSeed("hotel", destination, checkIn, checkOut)
	options := make([]map[string]any, 0, 3)
	for i := 0; i < 3; i++ {
		n := seed + i*104729
		if n < 0 {
			n = -n
		}
		options = append(options, map[string]any{
			"hotel":           hotels[n%len(hotels)],
			"area":            areas[n%len(areas)],
			"rating":          3.5 + float64(n%15)/10,
			"price_eur_night": 68 + n%180,
			"room":            []string{"double", "twin", "suite"}[n%3],
		})
	}

	return map[string]any{
		"destination": destination,
		"check_in":    checkIn,
		"check_out":   checkOut,
		"options":     options,
	}, nil
}

func railSearch(ctx context.Context, args map[string]any) (any, error) {
	origin := stringArg(args, "origin")
	destination := stringArg(args, "destination")
	date := stringArg(args, "date")

	seed := stableSeed("rail", origin, destination, date)
	options := make([]map[string]any, 0, 2)
	for i := 0; i < 2; i++ {
		n := seed + i*31337
		if n < 0 {
			n = -n
		}
		options = append(options, map[string]any{
			"train":        fmt.Sprintf("%s %d", railways[n%len(railways)], 10+n%90),
			"depart":       fmt.Sprintf("%02d:%02d", 5+n%16, (n/16%2)*30),
			"duration_min": 45 + n%600,
			"price_eur":    19 + n%160,
			"changes":      n % 3,
		})
	}

	return map[string]any{
		"origin":      origin,
		"destination": destination,
		"date":        date,
		"options":     options,
	}, nil
}

func poiSearch(ctx context.Context, args map[string]any) (any, error) {
	destination := stringArg(args, "destination")

	var interests []string
	if raw, ok := args["interests"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				interests = append(interests, s)
			}
		}
	}

	seed := stableSeed(append([]string{"poi", destination}, interests...)...)
	if seed < 0 {
		seed = -seed
	}

	picks := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		picks = append(picks, sights[(seed+i*3)%len(sights)])
	}

	return map[string]any{
		"destination":        destination,
		"interests":          interests,
		"points_of_interest": picks,
	}, nil
}

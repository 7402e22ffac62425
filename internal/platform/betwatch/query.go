package betwatch

import "fmt"

// racesQuery fetches the race/runner/price fields the scanner needs for one
// day of racing, server-filtered by race type and location, paginated by
// limit/offset.
const racesQuery = `query GetRacesWithMarkets($dateFrom: String!, $dateTo: String!, $types: [RaceType!], $locations: [String!], $limit: Int!, $offset: Int!) {
  races(dateFrom: $dateFrom, dateTo: $dateTo, types: $types, locations: $locations, limit: $limit, offset: $offset) {
    id
    meeting { id location track type date }
    name
    number
    status
    startTime
    runners {
      id
      name
      number
      scratchedTime
      bookmakerMarkets { id bookmaker fixedWin { price } }
      betfairMarkets {
        id
        marketName
        back { price size }
        lay { price size }
      }
    }
  }
}`

// queryPayload is the GraphQL request body.
type queryPayload struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func buildRacesPayload(date string, types, locations []string, limit, offset int) queryPayload {
	vars := map[string]any{
		"dateFrom": date,
		"dateTo":   date,
		"limit":    limit,
		"offset":   offset,
	}
	if len(types) > 0 {
		vars["types"] = types
	}
	if len(locations) > 0 {
		vars["locations"] = locations
	}
	return queryPayload{Query: racesQuery, Variables: vars}
}

// String implements fmt.Stringer for debug logging of pagination progress.
func (p queryPayload) String() string {
	return fmt.Sprintf("races(offset=%v, limit=%v)", p.Variables["offset"], p.Variables["limit"])
}

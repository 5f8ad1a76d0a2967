package collect

import "fmt"

// Strategy is the ranking mode requested from the search provider.
type Strategy string

const (
	Relevance Strategy = "relevance"
	Newest    Strategy = "new"
	Hot       Strategy = "hot"
	Top       Strategy = "top"
)

// Strategies lists every ordering in the order the collector tries them.
var Strategies = []Strategy{Relevance, Newest, Hot, Top}

// WindowSensitive reports whether the provider ranks differently per time
// window for this strategy. Only top-ranked queries do.
func (s Strategy) WindowSensitive() bool {
	return s == Top
}

// Window bounds how far back a top-ranked query looks.
type Window string

const (
	AllTime Window = "all"
	Year    Window = "year"
	Month   Window = "month"
	Week    Window = "week"
	Day     Window = "day"
)

// Windows lists every time window, widest first.
var Windows = []Window{AllTime, Year, Month, Week, Day}

// Windows returns the windows worth querying for s.
func (s Strategy) Windows() []Window {
	if s.WindowSensitive() {
		return Windows
	}
	return []Window{AllTime}
}

// Query is one bounded provider request.
type Query struct {
	Term   string
	Sort   Strategy
	Window Window
	Limit  int
}

func (q Query) String() string {
	return fmt.Sprintf("sort=%s window=%s", q.Sort, q.Window)
}

// Plan enumerates the (strategy, window) matrix for term. Insensitive
// strategies contribute a single all-time query each.
func Plan(term string, limit int) []Query {
	var plan []Query
	for _, s := range Strategies {
		for _, w := range s.Windows() {
			plan = append(plan, Query{Term: term, Sort: s, Window: w, Limit: limit})
		}
	}
	return plan
}

package aggregate

// Record is a single close-out produced by the session tracker: the
// domain that was visible, the whole seconds attributed to it, and the
// favicon known at close-out time (may be empty). Each record is applied
// to the store exactly once; applying it twice double-counts.
type Record struct {
	Domain  string
	Seconds int
	Favicon string
}

// Entry is the per-domain accumulator inside one day bucket.
// AccumulatedSeconds never decreases within a day; Favicon is replaced
// only when a later record carries a non-empty value.
type Entry struct {
	AccumulatedSeconds int    `json:"accumulatedSeconds"`
	Favicon            string `json:"favicon,omitempty"`
}

// DayBucket maps domain → Entry for one local calendar date.
type DayBucket map[string]*Entry

// WeekBucket maps a local date key ("2024-01-01") → DayBucket.
type WeekBucket map[string]DayBucket

// Store is the whole persisted artifact: ISO year-week key ("2024_01")
// → WeekBucket. It is read and written as one value.
type Store map[string]WeekBucket

// entry returns the Entry for weekKey/dateKey/domain, creating every
// missing level on the way. This is the single place the nested
// create-if-absent shape is enforced.
func (s Store) entry(weekKey, dateKey, domain string) *Entry {
	week, ok := s[weekKey]
	if !ok {
		week = WeekBucket{}
		s[weekKey] = week
	}

	day, ok := week[dateKey]
	if !ok {
		day = DayBucket{}
		week[dateKey] = day
	}

	e, ok := day[domain]
	if !ok {
		e = &Entry{}
		day[domain] = e
	}
	return e
}

// DomainRow pairs a domain with its accumulated entry, for report output.
type DomainRow struct {
	Domain             string `json:"domain"`
	AccumulatedSeconds int    `json:"accumulatedSeconds"`
	Favicon            string `json:"favicon,omitempty"`
}

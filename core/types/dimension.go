// Package types - Report query model types
package types

import "time"

// DimensionKind distinguishes schema dimensions from tag dimensions
type DimensionKind int

const (
	// DimensionPlain is a fixed schema dimension (project, cluster, node)
	DimensionPlain DimensionKind = iota

	// DimensionTag is a dynamic dimension scoped to one label key
	DimensionTag
)

// Dimension identifies a groupable/filterable attribute of a usage record.
// Tag dimensions are resolved against the tag-key registry at parse time.
type Dimension struct {
	// Kind selects plain or tag addressing
	Kind DimensionKind `json:"kind"`

	// Name is the schema dimension name for plain dimensions
	Name string `json:"name,omitempty"`

	// TagKey is the label key for tag dimensions
	TagKey string `json:"tag_key,omitempty"`
}

// PlainDimension builds a schema dimension
func PlainDimension(name string) Dimension {
	return Dimension{Kind: DimensionPlain, Name: name}
}

// TagDimension builds a label-key dimension
func TagDimension(key string) Dimension {
	return Dimension{Kind: DimensionTag, TagKey: key}
}

// Key returns the wire form of the dimension ("project", "tag:app")
func (d Dimension) Key() string {
	if d.Kind == DimensionTag {
		return "tag:" + d.TagKey
	}
	return d.Name
}

// DisplayName returns the name used for response keys
func (d Dimension) DisplayName() string {
	if d.Kind == DimensionTag {
		return d.TagKey
	}
	return d.Name
}

// Resolution is the time-bucket granularity for aggregation
type Resolution string

const (
	// ResolutionDaily buckets by calendar day
	ResolutionDaily Resolution = "daily"

	// ResolutionMonthly buckets by calendar month
	ResolutionMonthly Resolution = "monthly"
)

// TimeScopeUnits is the unit of a relative time scope
type TimeScopeUnits string

const (
	// UnitsDay scopes to trailing days
	UnitsDay TimeScopeUnits = "day"

	// UnitsMonth scopes to calendar months
	UnitsMonth TimeScopeUnits = "month"
)

// TimeScope is a relative reporting window request
type TimeScope struct {
	// Value is the negative scope magnitude (-1, -2, -10, -30, ...)
	Value int `json:"value"`

	// Units is day or month
	Units TimeScopeUnits `json:"units"`
}

// DateRange is a half-open [Start, End) interval at day granularity
type DateRange struct {
	// Start is the inclusive first day
	Start time.Time `json:"start"`

	// End is the exclusive upper bound
	End time.Time `json:"end"`
}

// Contains reports whether a date falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Days returns the number of days covered by the range
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Buckets returns the bucket start dates for the range at the given resolution,
// in chronological order
func (r DateRange) Buckets(res Resolution) []time.Time {
	var out []time.Time
	if res == ResolutionMonthly {
		cur := time.Date(r.Start.Year(), r.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
		for cur.Before(r.End) {
			out = append(out, cur)
			cur = cur.AddDate(0, 1, 0)
		}
		return out
	}
	for cur := r.Start; cur.Before(r.End); cur = cur.AddDate(0, 0, 1) {
		out = append(out, cur)
	}
	return out
}

// Truncate maps a date to its bucket start at the given resolution
func Truncate(t time.Time, res Resolution) time.Time {
	if res == ResolutionMonthly {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatBucket renders a bucket date for responses
func FormatBucket(t time.Time, res Resolution) string {
	if res == ResolutionMonthly {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

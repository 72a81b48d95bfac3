package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Region is a two-letter US state or district abbreviation.
type Region string

var regionNames = map[Region]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas", "CA": "California",
	"CO": "Colorado", "CT": "Connecticut", "DE": "Delaware", "DC": "District of Columbia",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho", "IL": "Illinois",
	"IN": "Indiana", "IA": "Iowa", "KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana",
	"ME": "Maine", "MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma", "OR": "Oregon",
	"PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina", "SD": "South Dakota",
	"TN": "Tennessee", "TX": "Texas", "UT": "Utah", "VT": "Vermont", "VA": "Virginia",
	"WA": "Washington", "WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

var regionsByName = func() map[string]Region {
	byName := make(map[string]Region, len(regionNames))
	for code, name := range regionNames {
		byName[strings.ToLower(name)] = code
	}
	return byName
}()

// ParseRegion accepts an abbreviation or a full name in any case.
func ParseRegion(value string) (Region, bool) {
	normalized := strings.Join(strings.Fields(strings.ToLower(value)), " ")
	if normalized == "" {
		return "", false
	}
	if code := Region(strings.ToUpper(normalized)); regionNames[code] != "" {
		return code, true
	}
	code, ok := regionsByName[normalized]
	return code, ok
}

// Name returns the full name of the region.
func (r Region) Name() string {
	return regionNames[r]
}

// JurisdictionSet holds the regions where sales tax must be collected.
type JurisdictionSet struct {
	regions map[Region]struct{}
}

// NewJurisdictionSet parses every entry; an unknown entry is rejected.
func NewJurisdictionSet(values ...string) (JurisdictionSet, error) {
	set := JurisdictionSet{regions: make(map[Region]struct{}, len(values))}
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		region, ok := ParseRegion(value)
		if !ok {
			return JurisdictionSet{}, fmt.Errorf("unknown jurisdiction %q", value)
		}
		set.regions[region] = struct{}{}
	}
	return set, nil
}

// IsTaxable reports whether an address region falls inside the set.
func (s JurisdictionSet) IsTaxable(region string) bool {
	code, ok := ParseRegion(region)
	if !ok {
		return false
	}
	_, taxable := s.regions[code]
	return taxable
}

// Regions returns the configured regions sorted by abbreviation.
func (s JurisdictionSet) Regions() []Region {
	regions := make([]Region, 0, len(s.regions))
	for region := range s.regions {
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i] < regions[j] })
	return regions
}

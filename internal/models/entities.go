package models

import "strings"

// Attribute names one of the job attributes a posting requires.
type Attribute string

const (
	AttrJobTitle   Attribute = "job_title"
	AttrExperience Attribute = "experience"
	AttrSkills     Attribute = "skills"
	AttrJobType    Attribute = "job_type"
	AttrLocation   Attribute = "location"
)

// AttributeOrder is the fixed priority in which missing attributes are asked for.
var AttributeOrder = []Attribute{AttrJobTitle, AttrExperience, AttrSkills, AttrJobType, AttrLocation}

// Label returns the human-readable name of the attribute.
func (a Attribute) Label() string {
	switch a {
	case AttrJobTitle:
		return "Job Title"
	case AttrExperience:
		return "Experience"
	case AttrSkills:
		return "Skills"
	case AttrJobType:
		return "Job Type"
	case AttrLocation:
		return "Location"
	default:
		return string(a)
	}
}

// Entities holds the extracted job attributes. A nil field means the
// attribute is still missing; present values are never empty.
type Entities struct {
	JobTitle   *string `json:"job_title"`
	Experience *string `json:"experience"`
	Skills     *string `json:"skills"`
	JobType    *string `json:"job_type"`
	Location   *string `json:"location"`
}

func (e *Entities) field(a Attribute) **string {
	switch a {
	case AttrJobTitle:
		return &e.JobTitle
	case AttrExperience:
		return &e.Experience
	case AttrSkills:
		return &e.Skills
	case AttrJobType:
		return &e.JobType
	case AttrLocation:
		return &e.Location
	default:
		return nil
	}
}

// Get returns the attribute value and whether it is present.
func (e Entities) Get(a Attribute) (string, bool) {
	f := e.field(a)
	if f == nil || *f == nil {
		return "", false
	}
	return **f, true
}

// Set stores a trimmed value. Blank values clear the attribute.
func (e *Entities) Set(a Attribute, v string) {
	f := e.field(a)
	if f == nil {
		return
	}
	v = strings.TrimSpace(v)
	if v == "" {
		*f = nil
		return
	}
	*f = &v
}

// Clear removes the attribute.
func (e *Entities) Clear(a Attribute) {
	if f := e.field(a); f != nil {
		*f = nil
	}
}

// FirstMissing returns the first absent attribute in AttributeOrder.
func (e Entities) FirstMissing() (Attribute, bool) {
	for _, a := range AttributeOrder {
		if _, ok := e.Get(a); !ok {
			return a, true
		}
	}
	return "", false
}

// Complete reports whether every attribute is present.
func (e Entities) Complete() bool {
	_, missing := e.FirstMissing()
	return !missing
}

// Clone returns a copy that shares no pointers with e.
func (e Entities) Clone() Entities {
	var out Entities
	for _, a := range AttributeOrder {
		if v, ok := e.Get(a); ok {
			out.Set(a, v)
		}
	}
	return out
}

// Equal compares attribute values.
func (e Entities) Equal(o Entities) bool {
	for _, a := range AttributeOrder {
		v1, ok1 := e.Get(a)
		v2, ok2 := o.Get(a)
		if ok1 != ok2 || v1 != v2 {
			return false
		}
	}
	return true
}

// Values returns the attributes as a map with nil for absent ones.
func (e Entities) Values() map[string]*string {
	out := make(map[string]*string, len(AttributeOrder))
	for _, a := range AttributeOrder {
		if v, ok := e.Get(a); ok {
			out[string(a)] = &v
		} else {
			out[string(a)] = nil
		}
	}
	return out
}

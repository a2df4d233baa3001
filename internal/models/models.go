package models

import (
	"fmt"
	"slices"
)

type Category string

const (
	CategoryF1 Category = "F1"
	CategoryF2 Category = "F2"
	CategoryF3 Category = "F3"
	CategoryF4 Category = "F4"
	CategoryAS Category = "AS"
)

// Categories lists every category in declared order.
var Categories = []Category{CategoryF1, CategoryF2, CategoryF3, CategoryF4, CategoryAS}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !slices.Contains(Categories, c) {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

type Status string

const (
	StatusNotYet Status = "Not Yet"
	StatusPassed Status = "Passed"
	StatusFailed Status = "Failed"
)

var StatusOptions = []Status{StatusNotYet, StatusPassed, StatusFailed}

func (s Status) Valid() bool {
	return slices.Contains(StatusOptions, s)
}

// Column names, in the order they appear in the snapshot file and the export.
const (
	ColRefNo  = "REF_NO"
	ColName1  = "Name_1"
	ColName2  = "Name_2"
	ColName3  = "Name_3"
	ColName4  = "Name_4"
	ColName5  = "Name_5"
	ColClass1 = "Class_1"
	ColClass2 = "Class_2"
	ColClass3 = "Class_3"
	ColClass4 = "Class_4"
	ColClass5 = "Class_5"
	ColType   = "Type"
	ColRound1 = "Round1"
	ColRound2 = "Round2"
	ColRound3 = "Round3"
	ColRound4 = "Round4"
	ColFinal  = "Final"
)

var (
	Columns = []string{
		ColRefNo,
		ColName1, ColName2, ColName3, ColName4, ColName5,
		ColClass1, ColClass2, ColClass3, ColClass4, ColClass5,
		ColType,
		ColRound1, ColRound2, ColRound3, ColRound4, ColFinal,
	}

	// RequiredFields must be non-empty when a team is created, checked in this order.
	RequiredFields = []string{
		ColName1, ColName2, ColName3, ColName4, ColName5,
		ColClass1, ColClass2, ColClass3, ColClass4, ColClass5,
	}

	OptionalFields = []string{ColType}

	RoundFields = []string{ColRound1, ColRound2, ColRound3, ColRound4, ColFinal}
)

func IsColumn(name string) bool {
	return slices.Contains(Columns, name)
}

func isRoundField(name string) bool {
	return slices.Contains(RoundFields, name)
}

// TeamFields are the user-editable attributes of a team.
type TeamFields struct {
	Name1  string `json:"Name_1"`
	Name2  string `json:"Name_2"`
	Name3  string `json:"Name_3"`
	Name4  string `json:"Name_4"`
	Name5  string `json:"Name_5"`
	Class1 string `json:"Class_1"`
	Class2 string `json:"Class_2"`
	Class3 string `json:"Class_3"`
	Class4 string `json:"Class_4"`
	Class5 string `json:"Class_5"`
	Type   string `json:"Type"`
	Round1 Status `json:"Round1"`
	Round2 Status `json:"Round2"`
	Round3 Status `json:"Round3"`
	Round4 Status `json:"Round4"`
	Final  Status `json:"Final"`
}

type Team struct {
	RefNo int `json:"REF_NO"`
	TeamFields
}

func (f *TeamFields) text(name string) *string {
	switch name {
	case ColName1:
		return &f.Name1
	case ColName2:
		return &f.Name2
	case ColName3:
		return &f.Name3
	case ColName4:
		return &f.Name4
	case ColName5:
		return &f.Name5
	case ColClass1:
		return &f.Class1
	case ColClass2:
		return &f.Class2
	case ColClass3:
		return &f.Class3
	case ColClass4:
		return &f.Class4
	case ColClass5:
		return &f.Class5
	case ColType:
		return &f.Type
	}
	return nil
}

func (f *TeamFields) status(name string) *Status {
	switch name {
	case ColRound1:
		return &f.Round1
	case ColRound2:
		return &f.Round2
	case ColRound3:
		return &f.Round3
	case ColRound4:
		return &f.Round4
	case ColFinal:
		return &f.Final
	}
	return nil
}

// Value returns the string form of a non-ref column, or "" for unknown names.
func (f TeamFields) Value(name string) string {
	if p := f.text(name); p != nil {
		return *p
	}
	if p := f.status(name); p != nil {
		return string(*p)
	}
	return ""
}

// Value returns the string form of any column.
func (t Team) Value(name string) string {
	if name == ColRefNo {
		return fmt.Sprint(t.RefNo)
	}
	return t.TeamFields.Value(name)
}

// MissingRequired returns the first required field that is empty, in declared order.
func (f TeamFields) MissingRequired() (string, bool) {
	for _, name := range RequiredFields {
		if f.Value(name) == "" {
			return name, true
		}
	}
	return "", false
}

// ApplyStatusDefaults sets every empty round status to StatusNotYet.
func (f *TeamFields) ApplyStatusDefaults() {
	for _, name := range RoundFields {
		if p := f.status(name); *p == "" {
			*p = StatusNotYet
		}
	}
}

// InvalidStatus returns the first round field whose value is outside StatusOptions.
func (f TeamFields) InvalidStatus() (string, bool) {
	for _, name := range RoundFields {
		if !f.status(name).Valid() {
			return name, true
		}
	}
	return "", false
}

// TeamPatch carries a partial edit. Nil fields are left unchanged.
type TeamPatch struct {
	Name1  *string `json:"Name_1,omitempty"`
	Name2  *string `json:"Name_2,omitempty"`
	Name3  *string `json:"Name_3,omitempty"`
	Name4  *string `json:"Name_4,omitempty"`
	Name5  *string `json:"Name_5,omitempty"`
	Class1 *string `json:"Class_1,omitempty"`
	Class2 *string `json:"Class_2,omitempty"`
	Class3 *string `json:"Class_3,omitempty"`
	Class4 *string `json:"Class_4,omitempty"`
	Class5 *string `json:"Class_5,omitempty"`
	Type   *string `json:"Type,omitempty"`
	Round1 *Status `json:"Round1,omitempty"`
	Round2 *Status `json:"Round2,omitempty"`
	Round3 *Status `json:"Round3,omitempty"`
	Round4 *Status `json:"Round4,omitempty"`
	Final  *Status `json:"Final,omitempty"`
}

func (p *TeamPatch) textRef(name string) **string {
	switch name {
	case ColName1:
		return &p.Name1
	case ColName2:
		return &p.Name2
	case ColName3:
		return &p.Name3
	case ColName4:
		return &p.Name4
	case ColName5:
		return &p.Name5
	case ColClass1:
		return &p.Class1
	case ColClass2:
		return &p.Class2
	case ColClass3:
		return &p.Class3
	case ColClass4:
		return &p.Class4
	case ColClass5:
		return &p.Class5
	case ColType:
		return &p.Type
	}
	return nil
}

func (p *TeamPatch) statusRef(name string) **Status {
	switch name {
	case ColRound1:
		return &p.Round1
	case ColRound2:
		return &p.Round2
	case ColRound3:
		return &p.Round3
	case ColRound4:
		return &p.Round4
	case ColFinal:
		return &p.Final
	}
	return nil
}

// InvalidStatus returns the first supplied round field whose value is outside StatusOptions.
func (p TeamPatch) InvalidStatus() (string, bool) {
	for _, name := range RoundFields {
		if s := *p.statusRef(name); s != nil && !s.Valid() {
			return name, true
		}
	}
	return "", false
}

// ApplyTo merges the supplied fields into f.
func (p TeamPatch) ApplyTo(f *TeamFields) {
	for _, name := range Columns[1:] {
		if isRoundField(name) {
			if s := *p.statusRef(name); s != nil {
				*f.status(name) = *s
			}
			continue
		}
		if v := *p.textRef(name); v != nil {
			*f.text(name) = *v
		}
	}
}

// Empty reports whether the patch supplies no fields.
func (p TeamPatch) Empty() bool {
	return p == TeamPatch{}
}

// PatchFromMap builds a patch from column/value pairs. REF_NO and unknown
// columns are rejected.
func PatchFromMap(values map[string]string) (TeamPatch, error) {
	var p TeamPatch
	for name, v := range values {
		if name == ColRefNo {
			return TeamPatch{}, fmt.Errorf("%s cannot be set", ColRefNo)
		}
		if ref := p.statusRef(name); ref != nil {
			s := Status(v)
			*ref = &s
			continue
		}
		if ref := p.textRef(name); ref != nil {
			*ref = &v
			continue
		}
		return TeamPatch{}, fmt.Errorf("unknown field %q", name)
	}
	return p, nil
}

// FieldsFromMap builds TeamFields from column/value pairs with the same key
// rules as PatchFromMap.
func FieldsFromMap(values map[string]string) (TeamFields, error) {
	p, err := PatchFromMap(values)
	if err != nil {
		return TeamFields{}, err
	}
	var f TeamFields
	p.ApplyTo(&f)
	return f, nil
}

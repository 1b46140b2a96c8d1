package arm

import "errors"

// #region arm-type
// Type enumerates the kinds of context components that compete for prompt space.
type Type string

const (
	TypeTool    Type = "tool"
	TypeMemory  Type = "memory"
	TypeSkill   Type = "skill"
	TypeFile    Type = "file"
	TypeSection Type = "section"
)

// Types lists every arm type in declaration order.
var Types = []Type{TypeTool, TypeMemory, TypeSkill, TypeFile, TypeSection}

// Valid reports whether t is one of the closed set of arm types.
func (t Type) Valid() bool {
	switch t {
	case TypeTool, TypeMemory, TypeSkill, TypeFile, TypeSection:
		return true
	}
	return false
}

// #endregion arm-type

// #region arm-id
// ID is the canonical arm identity, "type:category:id". The id part may contain ':'.
type ID string

// ParsedID is the decomposed form of an ID.
type ParsedID struct {
	Type     Type
	Category string
	ID       string
}

// ErrMalformedArmID is wrapped by ParseID when an id does not parse.
var ErrMalformedArmID = errors.New("malformed arm id")

// #endregion arm-id

// #region arm
// Arm is a selectable context component for one turn. Rebuilt every turn, never persisted.
type Arm struct {
	ID        ID
	Type      Type
	Category  string
	Label     string
	TokenCost int
}

// #endregion arm

package arm

import (
	"fmt"
	"path"
	"strings"
)

// CharsPerToken is the fixed chars-per-token ratio used for every cost estimate.
// This is an approximation, not a tokenizer.
const CharsPerToken = 4

// #region parse-build
// Parse splits s into its type, category and id. ok is false when s has fewer
// than three segments, an unknown type, an empty category, or an empty id.
func Parse(s string) (ParsedID, bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 3 {
		return ParsedID{}, false
	}
	t := Type(parts[0])
	if !t.Valid() || parts[1] == "" || parts[2] == "" {
		return ParsedID{}, false
	}
	return ParsedID{Type: t, Category: parts[1], ID: parts[2]}, true
}

// ParseID is Parse for a typed ID, returning ErrMalformedArmID on failure.
func ParseID(id ID) (ParsedID, error) {
	p, ok := Parse(string(id))
	if !ok {
		return ParsedID{}, fmt.Errorf("%w: %q", ErrMalformedArmID, id)
	}
	return p, nil
}

// Build joins type, category and id with ':'.
func Build(t Type, category, id string) ID {
	return ID(string(t) + ":" + category + ":" + id)
}

// String returns the canonical form of a parsed id.
func (p ParsedID) String() string {
	return string(Build(p.Type, p.Category, p.ID))
}

// #endregion parse-build

// #region token-cost
// EstimateTokens returns ceil(chars / CharsPerToken). Negative counts cost nothing.
func EstimateTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + CharsPerToken - 1) / CharsPerToken
}

// #endregion token-cost

// #region tool-category
// CategoryRule maps tool-name prefixes to a category.
type CategoryRule struct {
	Category string
	Prefixes []string
}

// ToolCategoryRules is evaluated in order and the first matching rule wins.
// Reordering changes which category ambiguous names land in.
var ToolCategoryRules = []CategoryRule{
	{Category: "exec", Prefixes: []string{"bash", "exec", "shell", "run"}},
	{Category: "fs", Prefixes: []string{"read", "write", "edit", "glob", "grep"}},
	{Category: "memory", Prefixes: []string{"memory", "remember", "recall"}},
	{Category: "web", Prefixes: []string{"web", "fetch", "browse", "search"}},
	{Category: "messaging", Prefixes: []string{"send", "reply", "message"}},
}

// DefaultToolCategory is used when no rule matches.
const DefaultToolCategory = "other"

// InferToolCategory maps a tool name to a category by prefix.
func InferToolCategory(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range ToolCategoryRules {
		for _, p := range rule.Prefixes {
			if strings.HasPrefix(lower, p) {
				return rule.Category
			}
		}
	}
	return DefaultToolCategory
}

// #endregion tool-category

// #region constructors
// ToolArm builds a tool arm. An empty category is inferred from the name.
func ToolArm(name, category string, schemaChars int) Arm {
	if category == "" {
		category = InferToolCategory(name)
	}
	return Arm{
		ID:        Build(TypeTool, category, name),
		Type:      TypeTool,
		Category:  category,
		Label:     name,
		TokenCost: EstimateTokens(schemaChars),
	}
}

// SkillArm builds a skill arm keyed by skill name.
func SkillArm(name string, blockChars int) Arm {
	return Arm{
		ID:        Build(TypeSkill, "skill", name),
		Type:      TypeSkill,
		Category:  "skill",
		Label:     name,
		TokenCost: EstimateTokens(blockChars),
	}
}

// FileArm builds a workspace file arm. The label is the basename.
func FileArm(filePath string, injectedChars int) Arm {
	return Arm{
		ID:        Build(TypeFile, "workspace", filePath),
		Type:      TypeFile,
		Category:  "workspace",
		Label:     path.Base(filePath),
		TokenCost: EstimateTokens(injectedChars),
	}
}

// MemoryArm builds a retrieved-memory arm. The label is the snippet text.
func MemoryArm(source, id, snippet string, chars int) Arm {
	if source == "" {
		source = "memory"
	}
	return Arm{
		ID:        Build(TypeMemory, source, id),
		Type:      TypeMemory,
		Category:  source,
		Label:     snippet,
		TokenCost: EstimateTokens(chars),
	}
}

// SectionArm builds a structural prompt section arm.
func SectionArm(name string, chars int) Arm {
	return Arm{
		ID:        Build(TypeSection, "prompt", name),
		Type:      TypeSection,
		Category:  "prompt",
		Label:     name,
		TokenCost: EstimateTokens(chars),
	}
}

// #endregion constructors

// Package reference decides whether an included arm was actually used by the
// model. It is a heuristic reward proxy: there is no ground truth for "was this
// worth including", so its accuracy bounds what the bandit can learn.
package reference

import (
	"path"
	"strings"
	"unicode/utf8"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
)

// #region detector
// Detector applies the per-type reference policy.
type Detector struct {
	config Config
}

// NewDetector creates a detector. Non-positive thresholds fall back to defaults.
func NewDetector(config Config) *Detector {
	def := DefaultConfig()
	if config.MemoryShortLabelLen <= 0 {
		config.MemoryShortLabelLen = def.MemoryShortLabelLen
	}
	if config.MemoryFingerprintLen <= 0 {
		config.MemoryFingerprintLen = def.MemoryFingerprintLen
	}
	return &Detector{config: config}
}

var defaultDetector = NewDetector(DefaultConfig())

// DetectReference runs the default detector.
func DetectReference(id arm.ID, t arm.Type, label string, texts []string, metas []ToolMeta) bool {
	return defaultDetector.Detect(id, t, label, texts, metas)
}

// Detect reports whether the arm shows up in the assistant output or tool calls.
func (d *Detector) Detect(id arm.ID, t arm.Type, label string, texts []string, metas []ToolMeta) bool {
	switch t {
	case arm.TypeTool:
		return d.toolReferenced(id, metas)
	case arm.TypeSkill:
		return d.skillReferenced(id, label, texts, metas)
	case arm.TypeFile:
		return d.fileReferenced(label, texts)
	case arm.TypeMemory:
		return d.memoryReferenced(label, texts)
	case arm.TypeSection:
		return true
	default:
		return false
	}
}

// #endregion detector

// #region per-type
// toolReferenced matches the tool name suffix of the arm id against tool calls.
func (d *Detector) toolReferenced(id arm.ID, metas []ToolMeta) bool {
	parsed, ok := arm.Parse(string(id))
	if !ok {
		return false
	}
	for _, m := range metas {
		if m.ToolName == parsed.ID {
			return true
		}
	}
	return false
}

// skillReferenced looks for the skill name in assistant text or tool meta text.
func (d *Detector) skillReferenced(id arm.ID, label string, texts []string, metas []ToolMeta) bool {
	name := label
	if parsed, ok := arm.Parse(string(id)); ok {
		name = parsed.ID
	}
	name = strings.ToLower(name)
	if name == "" {
		return false
	}
	if containsFold(texts, name) {
		return true
	}
	for _, m := range metas {
		if strings.Contains(strings.ToLower(m.Meta), name) {
			return true
		}
	}
	return false
}

// fileReferenced looks for the file basename in assistant text.
func (d *Detector) fileReferenced(label string, texts []string) bool {
	if label == "" {
		return false
	}
	return containsFold(texts, strings.ToLower(path.Base(label)))
}

// memoryReferenced matches short labels verbatim and long labels by a
// lowercase prefix fingerprint, which tolerates paraphrased or truncated tails.
func (d *Detector) memoryReferenced(label string, texts []string) bool {
	if label == "" {
		return false
	}
	if utf8.RuneCountInString(label) < d.config.MemoryShortLabelLen {
		for _, text := range texts {
			if strings.Contains(text, label) {
				return true
			}
		}
		return false
	}
	return containsFold(texts, strings.ToLower(prefixRunes(label, d.config.MemoryFingerprintLen)))
}

// #endregion per-type

// #region helpers
// containsFold reports whether any text contains needle, which must already be lowercase.
func containsFold(texts []string, needle string) bool {
	for _, text := range texts {
		if strings.Contains(strings.ToLower(text), needle) {
			return true
		}
	}
	return false
}

func prefixRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// #endregion helpers

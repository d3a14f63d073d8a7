package handler

import "strings"

// injectionMarkers are role-boundary delimiters stripped from
// user-authored chat content before it goes upstream. Defense in depth
// only; the model prompt remains the primary control.
var injectionMarkers = []string{
	"<|im_start|>",
	"<|im_end|>",
	"<|system|>",
	"<|user|>",
	"<|assistant|>",
	"[INST]",
	"[/INST]",
	"<<SYS>>",
	"<</SYS>>",
	"### System:",
	"### Instruction:",
}

// sanitizeContent strips known prompt-injection delimiters and enforces
// the content length bound even if an earlier check was bypassed.
// Stripping repeats until nothing changes: removing a marker can splice
// the surrounding text into another marker (e.g. a marker nested inside
// a second one), so a single pass is not enough.
func sanitizeContent(s string, maxLen int) string {
	for {
		prev := s
		for _, m := range injectionMarkers {
			s = strings.ReplaceAll(s, m, "")
		}
		if s == prev {
			break
		}
	}
	if runes := []rune(s); len(runes) > maxLen {
		s = string(runes[:maxLen])
	}
	return s
}

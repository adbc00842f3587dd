package routing

import (
	"fmt"
	"regexp"
	"strings"
)

// Path is the generation strategy chosen for one turn.
type Path string

const (
	PathDirect    Path = "direct"
	PathRetrieval Path = "retrieval"
	PathHybrid    Path = "hybrid"
)

// Mode is the session-level routing preference.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeChatOnly Mode = "chat_only"
	ModeRagOnly  Mode = "rag_only"
)

// Context carries the session facts the cascade may cite in its reasoning.
type Context struct {
	TotalDocuments int
	TotalChunks    int
}

// Reasoning explains which rule fired and why.
type Reasoning struct {
	Rule            string   `json:"rule"`
	Mode            string   `json:"mode,omitempty"`
	MatchedPattern  string   `json:"matched_pattern,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	TotalDocuments  int      `json:"total_documents,omitempty"`
	TotalChunks     int      `json:"total_chunks,omitempty"`
	QueryLength     int      `json:"query_length,omitempty"`
	Description     string   `json:"description"`
}

// Decision is the outcome of routing one turn. Ephemeral, never persisted
// beyond execution output.
type Decision struct {
	Path       Path      `json:"path"`
	Confidence float64   `json:"confidence"`
	Reasoning  Reasoning `json:"reasoning"`
}

// Keywords that suggest the user is asking about attached documents.
var documentKeywords = []string{
	"document", "documents", "file", "files", "pdf", "paper", "papers",
	"content", "text", "page", "pages", "section", "chapter",
	"what does", "according to", "based on", "in the", "from the",
	"find", "search", "look for", "show me", "tell me about",
	"summarize", "summary", "explain",
}

var greetingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(hi|hello|hey|greetings|good morning|good afternoon|good evening)\b`),
	regexp.MustCompile(`^(how are you|how do you do|what's up|whats up)\b`),
}

var smallTalkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(who are you|what are you|what can you do)`),
	regexp.MustCompile(`(your name|you called|introduce yourself)`),
	regexp.MustCompile(`(help me|assist me|can you help)`),
	regexp.MustCompile(`(thank you|thanks|appreciate)`),
}

// Engine decides, per turn, whether to answer directly, via retrieval,
// or via hybrid retrieve-then-fallback. Pure and deterministic: identical
// inputs always produce the same Decision.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Route applies an ordered rule cascade; the first matching rule wins.
func (e *Engine) Route(userInput string, hasDocuments bool, mode Mode, sessionCtx Context) Decision {
	input := strings.ToLower(strings.TrimSpace(userInput))

	// Rule 1: explicit mode override.
	if mode == ModeChatOnly {
		return Decision{
			Path:       PathDirect,
			Confidence: 1.0,
			Reasoning: Reasoning{
				Rule:        "explicit_mode_override",
				Mode:        string(ModeChatOnly),
				Description: "session mode explicitly set to chat_only",
			},
		}
	}

	if mode == ModeRagOnly {
		if !hasDocuments {
			// Mode updates require at least one document, but the last
			// one may have been detached since. Degrade rather than fail.
			return Decision{
				Path:       PathDirect,
				Confidence: 0.8,
				Reasoning: Reasoning{
					Rule:        "rag_only_fallback",
					Mode:        string(ModeRagOnly),
					Description: "rag_only mode but no documents available, falling back to chat",
				},
			}
		}
		return Decision{
			Path:       PathRetrieval,
			Confidence: 1.0,
			Reasoning: Reasoning{
				Rule:        "explicit_mode_override",
				Mode:        string(ModeRagOnly),
				Description: "session mode explicitly set to rag_only",
			},
		}
	}

	// Rule 2: greeting detection.
	for _, pattern := range greetingPatterns {
		if pattern.MatchString(input) {
			return Decision{
				Path:       PathDirect,
				Confidence: 0.95,
				Reasoning: Reasoning{
					Rule:           "greeting_detection",
					MatchedPattern: pattern.String(),
					Description:    "user greeting detected, direct chat appropriate",
				},
			}
		}
	}

	// Rule 3: small talk detection.
	for _, pattern := range smallTalkPatterns {
		if pattern.MatchString(input) {
			return Decision{
				Path:       PathDirect,
				Confidence: 0.9,
				Reasoning: Reasoning{
					Rule:           "small_talk_detection",
					MatchedPattern: pattern.String(),
					Description:    "small talk detected, direct chat appropriate",
				},
			}
		}
	}

	queryLength := len(strings.Fields(input))

	if hasDocuments {
		// Rule 4: document keywords with documents attached.
		var matched []string
		for _, kw := range documentKeywords {
			if strings.Contains(input, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) > 0 {
			if len(matched) > 5 {
				matched = matched[:5]
			}
			return Decision{
				Path:       PathRetrieval,
				Confidence: 0.85,
				Reasoning: Reasoning{
					Rule:            "document_keywords_with_docs",
					MatchedKeywords: matched,
					TotalDocuments:  sessionCtx.TotalDocuments,
					TotalChunks:     sessionCtx.TotalChunks,
					Description:     "document-related query with available documents",
				},
			}
		}

		// Rule 5: documents attached but intent unclear. Substantial
		// queries go hybrid so retrieval can be abandoned downstream.
		if queryLength >= 5 {
			return Decision{
				Path:       PathHybrid,
				Confidence: 0.6,
				Reasoning: Reasoning{
					Rule:           "ambiguous_with_docs",
					QueryLength:    queryLength,
					TotalDocuments: sessionCtx.TotalDocuments,
					Description:    "unclear intent but documents available, try retrieval with fallback",
				},
			}
		}
	}

	// Rule 6: default.
	confidence := 0.8
	description := "no clear retrieval indicators and no documents available"
	if hasDocuments {
		confidence = 0.7
		description = "no clear retrieval indicators"
	}
	return Decision{
		Path:       PathDirect,
		Confidence: confidence,
		Reasoning: Reasoning{
			Rule:        "default_chat",
			QueryLength: queryLength,
			Description: description,
		},
	}
}

// ParseMode maps a stored mode string to a Mode, defaulting to auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, "":
		return ModeAuto, nil
	case ModeChatOnly:
		return ModeChatOnly, nil
	case ModeRagOnly:
		return ModeRagOnly, nil
	default:
		return ModeAuto, fmt.Errorf("unknown session mode: %s", s)
	}
}

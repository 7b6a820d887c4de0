package flow

import (
	"context"
	"fmt"

	"github.com/dshills/scanflow-go/flow/model"
)

// AnalyzerID names a post-processing tool a role may invoke on its raw LLM
// output. Every role carries AnalyzerGeneral; the central role additionally
// carries AnalyzerIntegration, and each spoke its own role-tagged analyzer.
type AnalyzerID string

const (
	AnalyzerGeneral     AnalyzerID = "general"
	AnalyzerIntegration AnalyzerID = "integration"
	AnalyzerEmotional   AnalyzerID = "emotional"
	AnalyzerReward      AnalyzerID = "reward"
	AnalyzerConflict    AnalyzerID = "conflict"
	AnalyzerSocial      AnalyzerID = "social"
)

// analyzerPrompts maps each analyzer to its secondary prompt template.
// Placeholders are, in order: context, role, input.
var analyzerPrompts = map[AnalyzerID]string{
	AnalyzerGeneral: "Previous Analysis:\n%[1]s\n\n" +
		"Current Topic: %[3]s\nRole: %[2]s\n\n" +
		"Instructions:\n" +
		"1. Review previous analyses if available\n" +
		"2. Analyze from your role's perspective\n" +
		"3. Consider interactions with the other analysts\n" +
		"4. Provide structured insights\n\n" +
		"Format your response with clear sections and bullet points.",
	AnalyzerIntegration: "As the %[2]s, integrate the following analyses:\n%[1]s\n\n" +
		"Focus on:\n" +
		"1. Key patterns and insights\n" +
		"2. Conflicts or contradictions\n" +
		"3. Integrated recommendations\n" +
		"4. Next steps",
	AnalyzerEmotional: "As the %[2]s, analyze the emotional and risk components of:\n%[3]s\n\n" +
		"Previous Analysis:\n%[1]s",
	AnalyzerReward: "As the %[2]s, evaluate potential rewards and outcomes of:\n%[3]s\n\n" +
		"Previous Analysis:\n%[1]s",
	AnalyzerConflict: "As the %[2]s, identify potential conflicts in the following and propose resolutions:\n%[3]s\n\n" +
		"Previous Analysis:\n%[1]s",
	AnalyzerSocial: "As the %[2]s, assess alignment with goals and social values in:\n%[3]s\n\n" +
		"Previous Analysis:\n%[1]s",
}

// KnownAnalyzer reports whether id names a built-in analyzer.
func KnownAnalyzer(id AnalyzerID) bool {
	_, ok := analyzerPrompts[id]
	return ok
}

// runAnalyzer applies the analyzer's role-tagged template to the worker's
// raw output, invokes the chat model a second time, and re-wraps the result
// with a role header. The caller converts any returned error into degraded
// text; errors never escape the worker boundary.
func runAnalyzer(ctx context.Context, chat model.ChatModel, id AnalyzerID, cfg RoleConfig, input string, history []Entry) (string, error) {
	tmpl, ok := analyzerPrompts[id]
	if !ok {
		return "", fmt.Errorf("unknown analyzer %q", id)
	}

	prompt := fmt.Sprintf(tmpl, RenderContext(history), cfg.Role, input)

	out, err := chat.Chat(ctx, model.Request{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Messages: []model.Message{
			{
				Role: model.RoleSystem,
				Content: fmt.Sprintf("You are the %s, focusing on specialized analysis. "+
					"Format your response with clear sections and bullet points.", cfg.Role),
			},
			{Role: model.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s Analysis:\n%s", cfg.Role, out.Text), nil
}

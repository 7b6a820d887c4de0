// Package flow provides the core workflow engine for scanflow-go.
//
// A workflow is a fixed-topology pipeline of cognitive role workers. Each
// worker invokes a chat model, post-processes the raw output through a
// role-tagged analyzer, and hands an accumulating State to the next role
// until the terminal stage is reached. The final report is assembled from
// the per-role history.
package flow

// Role identifies one cognitive worker in the pipeline.
//
// The role set is closed at startup: a Registry is built once from a list of
// RoleConfig entries and validated before any run starts. Routing to a role
// the Registry does not know is a build-time configuration fault, never a
// runtime error.
type Role string

// End is the terminal sentinel. Routing to End stops the run.
const End Role = "__end__"

// Default cognitive role set. The executive role is the central integrator;
// the other four are its spokes.
const (
	RoleExecutive Role = "executive"
	RoleEmotional Role = "emotional"
	RoleReward    Role = "reward"
	RoleConflict  Role = "conflict"
	RoleSocial    Role = "social"
)

// RoleConfig is the static per-role descriptor. Built from configuration at
// startup, immutable afterwards, and shared read-only across concurrent runs.
type RoleConfig struct {
	// Role is the unique role identifier.
	Role Role

	// Model is the chat model id this role invokes (e.g. "gpt-4").
	Model string

	// Backstory describes the role's specialization. It becomes the first
	// half of the system prompt.
	Backstory string

	// Goal is the role's objective, joined to the backstory with a line
	// break to form the system prompt.
	Goal string

	// Temperature for the role's chat calls.
	Temperature float64

	// MaxTokens is the per-call token budget.
	MaxTokens int

	// Analyzers are the post-processing tools this role may invoke, in
	// priority order. Every role carries AnalyzerGeneral; at most one
	// role-specific analyzer may precede it.
	Analyzers []AnalyzerID
}

// DefaultRoles returns the built-in five-role configuration: an executive
// hub plus emotional, reward, conflict, and social spokes. Temperatures and
// token budgets follow the original tuning for each cognitive function.
func DefaultRoles() []RoleConfig {
	return []RoleConfig{
		{
			Role:        RoleExecutive,
			Model:       "gpt-4",
			Backstory:   "You are the executive controller, specializing in working memory, planning, and cognitive control. You integrate information from the other analysts to guide complex decision-making.",
			Goal:        "Analyze the situation using executive control, maintain relevant information in working memory, and develop strategic plans for optimal outcomes.",
			Temperature: 0.7,
			MaxTokens:   500,
			Analyzers:   []AnalyzerID{AnalyzerIntegration, AnalyzerGeneral},
		},
		{
			Role:        RoleEmotional,
			Model:       "gpt-4",
			Backstory:   "You are the emotional analyst, specializing in processing emotional value and risk. You evaluate the emotional significance of choices and predict their emotional outcomes.",
			Goal:        "Evaluate the emotional implications and risks, considering how different choices might affect emotional wellbeing and relationships.",
			Temperature: 0.8,
			MaxTokens:   500,
			Analyzers:   []AnalyzerID{AnalyzerEmotional, AnalyzerGeneral},
		},
		{
			Role:        RoleReward,
			Model:       "gpt-4",
			Backstory:   "You are the reward analyst, specializing in reward processing and value-based decisions. You integrate sensory and emotional information to evaluate rewards and guide behavior optimization.",
			Goal:        "Assess the reward value of different options and optimize decision-making for maximum benefit.",
			Temperature: 0.7,
			MaxTokens:   500,
			Analyzers:   []AnalyzerID{AnalyzerReward, AnalyzerGeneral},
		},
		{
			Role:        RoleConflict,
			Model:       "gpt-4",
			Backstory:   "You are the conflict analyst, specializing in error detection and conflict monitoring. You identify conflicts between competing responses and help regulate reactions to them.",
			Goal:        "Monitor for conflicts between competing options, detect potential errors, and propose resolutions that support optimal choices.",
			Temperature: 0.6,
			MaxTokens:   500,
			Analyzers:   []AnalyzerID{AnalyzerConflict, AnalyzerGeneral},
		},
		{
			Role:        RoleSocial,
			Model:       "gpt-4",
			Backstory:   "You are the social analyst, specializing in self-referential thinking and social cognition. You process information about self and others, supporting perspective-taking.",
			Goal:        "Consider social and self-relevant implications, integrate personal and social knowledge, and support perspective-taking in decision-making.",
			Temperature: 0.8,
			MaxTokens:   500,
			Analyzers:   []AnalyzerID{AnalyzerSocial, AnalyzerGeneral},
		},
	}
}

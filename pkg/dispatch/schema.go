package dispatch

import (
	"google.golang.org/genai"

	"github.com/lumen-labs/lumen/pkg/live"
)

// Render target names. Each is a declared function the remote model
// invokes to put content on screen instead of answering in prose.
const (
	// TargetGraph receives a JSON chart specification, rendered by an
	// embedding chart renderer. The dispatcher does not validate the JSON
	// shape; parse failures are the renderer's concern.
	TargetGraph = "render_altair"

	// TargetSolution receives formatted prose, rendered paragraph by
	// paragraph.
	TargetSolution = "render_solution"
)

// Declaration binds a function name to the argument field holding its
// render payload.
type Declaration struct {
	Name        string
	Description string
	Param       string
	ParamDoc    string
}

// Declarations is the dispatcher's fixed schema, in declaration order.
func Declarations() []Declaration {
	return []Declaration{
		{
			Name:        TargetGraph,
			Description: "Displays an altair graph in json format.",
			Param:       "json_graph",
			ParamDoc:    "JSON STRING representation of the graph to render. Must be a string, not a json object",
		},
		{
			Name:        TargetSolution,
			Description: "Displays a solution with formatted text.",
			Param:       "solution_text",
			ParamDoc:    "The formatted solution text to display. Use markdown formatting for better presentation.",
		},
	}
}

// systemInstruction tells the remote model which declared function to
// invoke for which kind of content, so the one-target-per-content-kind
// assumption holds.
const systemInstruction = `You are my helpful assistant. For graphs, use the "render_altair" function. For any text responses including explanations, stories, code, or other content, use the "render_solution" function to display formatted text. Always provide clear, well-formatted responses. Your voice will narrate the solution while the text is displayed.

When writing code, wrap it in markdown code blocks with the appropriate language specified.

Use markdown formatting to improve readability:
- Use # for headers
- Use ** for bold text
- Use * for italic text
- Use - or * for bullet points
- Use > for blockquotes
- Use horizontal rules (---) to separate sections`

// SessionSettings returns the system instruction and tool schema supplied
// at session-configuration time, before any tool calls can arrive.
func SessionSettings() (instruction string, tools []*genai.Tool) {
	decls := Declarations()
	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		fns = append(fns, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					d.Param: {
						Type:        genai.TypeString,
						Description: d.ParamDoc,
					},
				},
				Required: []string{d.Param},
			},
		})
	}

	tools = []*genai.Tool{
		{GoogleSearch: &genai.GoogleSearch{}},
		{FunctionDeclarations: fns},
	}
	return systemInstruction, tools
}

// SessionConfig assembles the full session configuration for the live
// client from the declared schema.
func SessionConfig(model, voice string, modalities []string) live.SessionConfig {
	instruction, tools := SessionSettings()
	return live.SessionConfig{
		Model:              model,
		ResponseModalities: modalities,
		VoiceName:          voice,
		SystemInstruction:  instruction,
		Tools:              tools,
	}
}

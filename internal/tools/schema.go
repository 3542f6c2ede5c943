package tools

// Property describes one argument. All arguments are strings on the wire;
// ids travel as decimal text.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Parameters is the JSON-Schema object describing an action's arguments.
type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Schema declares one action to the agent.
type Schema struct {
	Name        Name       `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

func str(desc string) Property { return Property{Type: "string", Description: desc} }

func object(required []string, props map[string]Property) Parameters {
	return Parameters{Type: "object", Properties: props, Required: required}
}

var schemas = map[Name]Schema{
	NameUpdateVerdict: {
		Name:        NameUpdateVerdict,
		Description: "Update the verdict of a case and edit the case message accordingly.",
		Parameters: object([]string{"case_id", "verdict"}, map[string]Property{
			"case_id": str("The ID of the case to update."),
			"verdict": str("The new verdict for the case."),
		}),
	},
	NameAddWitness: {
		Name:        NameAddWitness,
		Description: "Add a witness to a case.",
		Parameters: object([]string{"case_id", "witness_id"}, map[string]Property{
			"case_id":    str("The ID of the case to which the witness will be added."),
			"witness_id": str("The user ID of the witness to add to the case."),
		}),
	},
	NameCloseCase: {
		Name:        NameCloseCase,
		Description: "Close a case with a given reason and update the case message accordingly.",
		Parameters: object([]string{"case_id", "reason"}, map[string]Property{
			"case_id": str("The ID of the case to close."),
			"reason":  str("The reason for closing the case."),
		}),
	},
	NameRequestEvidence: {
		Name:        NameRequestEvidence,
		Description: "Request evidence from participants in a case.",
		Parameters: object([]string{"case_id", "content"}, map[string]Property{
			"case_id": str("The ID of the case for which evidence is being requested."),
			"content": str("The content of the evidence request message."),
		}),
	},
	NameReopenCase: {
		Name:        NameReopenCase,
		Description: "Reopen a closed case and update the case message accordingly.",
		Parameters: object([]string{"case_id"}, map[string]Property{
			"case_id": str("The ID of the case to reopen."),
		}),
	},
}

// Schemas returns the declarations of every action, in Names order.
func Schemas() []Schema {
	out := make([]Schema, 0, len(Names))
	for _, n := range Names {
		out = append(out, schemas[n])
	}
	return out
}

package tools

// RegisterAdd wires the canonical `add` example tool used throughout the
// testable-property scenarios: add(a, b) -> a+b as a double.
func RegisterAdd(r *Registry) error {
	return r.Register(RegisterOptions{
		Name:        "add",
		Description: "Adds two numbers together and returns the sum.",
		Params: []ParamDesc{
			{Name: "a", Category: CategorySingle, Type: "number", Description: "The first addend", Required: true},
			{Name: "b", Category: CategorySingle, Type: "number", Description: "The second addend", Required: true},
		},
		Category: "math",
		Execute: func(acc *Accessor, _ any) (Value, error) {
			return DoubleValue(acc.Double("a") + acc.Double("b")), nil
		},
	})
}

// RegisterDemoTools registers every built-in example tool this runtime
// ships with against r: the canonical add() plus two web tools.
func RegisterDemoTools(r *Registry) error {
	if err := RegisterAdd(r); err != nil {
		return err
	}
	if err := RegisterHTMLToMarkdown(r); err != nil {
		return err
	}
	if err := RegisterGoogleSearch(r); err != nil {
		return err
	}
	return nil
}

package resources

// RegisterDemoResources registers the example resources this runtime ships
// with: two static text resources, and a file template exposing the working
// directory for read-only access (exercising the path-safety checks end to
// end).
func RegisterDemoResources(r *Registry) error {
	if err := r.AddText(
		"example://documentation",
		"example_documentation",
		"Example documentation resource for MCP",
		"text/markdown",
		"# MCP Documentation\n\nThis is example documentation for the Model Context Protocol.",
	); err != nil {
		return err
	}

	if err := r.AddText(
		"example://weather",
		"weather_data",
		"Historical weather data resource",
		"application/json",
		`{"location":"San Francisco","current":{"temperature":72,"humidity":65,"conditions":"Partly Cloudy"}}`,
	); err != nil {
		return err
	}

	return r.AddFileTemplate("file:///./{path}", "local_file", "Reads a file relative to the server's working directory")
}

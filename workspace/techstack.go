package workspace

// TechStack returns the coarse stack labels embedded in refinement requests.
// Unlike DetectLanguages it only inspects runtime dependencies and keeps the
// order checks are made in.
func TechStack(configs ConfigFiles) []string {
	stack := []string{}

	if configs.Has("package.json") {
		stack = append(stack, "Node.js")
		deps := packageDependencies(configs, false)
		if deps["react"] {
			stack = append(stack, "React")
		}
		if deps["vue"] {
			stack = append(stack, "Vue")
		}
		if deps["@angular/core"] {
			stack = append(stack, "Angular")
		}
		if deps["next"] {
			stack = append(stack, "Next.js")
		}
	}
	if configs.Has("Cargo.toml") {
		stack = append(stack, "Rust")
	}
	if configs.Has("go.mod") {
		stack = append(stack, "Go")
	}
	if configs.Has("requirements.txt", "pyproject.toml") {
		stack = append(stack, "Python")
	}
	if configs.Has("pom.xml", "build.gradle") {
		stack = append(stack, "Java")
	}

	return stack
}

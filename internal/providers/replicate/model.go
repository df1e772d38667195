package replicate

// Model names one hosted model version and how to build its input.
type Model struct {
	Name    string
	Version string
	input   func(imageURL string) map[string]any
}

// RestoreModel returns the photo restoration model pinned at version.
func RestoreModel(version string) Model {
	return Model{
		Name:    "restore",
		Version: version,
		input: func(imageURL string) map[string]any {
			return map[string]any{
				"input_image":   imageURL,
				"output_format": "jpg",
			}
		},
	}
}

// ColorizeModel returns the DeOldify colorization model pinned at version.
func ColorizeModel(version string) Model {
	return Model{
		Name:    "colorize",
		Version: version,
		input: func(imageURL string) map[string]any {
			return map[string]any{
				"model_name":    "Artistic",
				"input_image":   imageURL,
				"render_factor": 30,
			}
		},
	}
}

package models

// CategoryYAML is the file format of a single imported guide, and of each
// category in a seed file.
type CategoryYAML struct {
	Key           string         `yaml:"key"`
	Name          string         `yaml:"name"`
	Description   string         `yaml:"description"`
	EstimatedTime *int           `yaml:"estimated_time"`
	Steps         []Step         `yaml:"steps"`
	Quiz          []QuizQuestion `yaml:"quiz"`
}

// Content converts the YAML form to stored category content.
func (c CategoryYAML) Content() *CategoryContent {
	out := NewCategoryContent()
	out.Description = c.Description
	if c.Steps != nil {
		out.Steps = append(out.Steps, c.Steps...)
	}
	if len(c.Quiz) > 0 {
		out.Quiz = append([]QuizQuestion{}, c.Quiz...)
	}
	if c.EstimatedTime != nil {
		v := *c.EstimatedTime
		out.EstimatedTime = &v
	}
	return out
}

// SeedYAML overrides the skeleton document created on first access.
type SeedYAML struct {
	Home       *Home          `yaml:"home"`
	Categories []CategoryYAML `yaml:"categories"`
	FAQ        []FAQEntry     `yaml:"faq"`
}

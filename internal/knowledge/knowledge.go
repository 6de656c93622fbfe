// Package knowledge loads the company context injected into LLM prompts.
package knowledge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	TechStackFile   = "tech_stack.txt"
	RoleLevelsFile  = "role_levels.txt"
	JobTemplateFile = "job_description_template.txt"
)

// Company is the context shared by the classifier and generator prompts.
type Company struct {
	TechStack   string
	RoleLevels  string
	JobTemplate string
}

// Default is used when no knowledge directory is configured or a file is missing.
func Default() Company {
	return Company{
		TechStack:   "Python, Django, PostgreSQL, React, TypeScript, AWS",
		RoleLevels:  "Junior (0-2 years), Mid-level (2-5 years), Senior (5+ years)",
		JobTemplate: "Standard job description template",
	}
}

// Load reads the knowledge files from dir. Missing files keep their default;
// any other read error is returned.
func Load(dir string, logger *zap.Logger) (Company, error) {
	company := Default()
	if dir == "" {
		return company, nil
	}

	files := []struct {
		name string
		dst  *string
	}{
		{TechStackFile, &company.TechStack},
		{RoleLevelsFile, &company.RoleLevels},
		{JobTemplateFile, &company.JobTemplate},
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Company knowledge file not found, using default", zap.String("path", path))
			continue
		}
		if err != nil {
			return Company{}, fmt.Errorf("read %s: %w", path, err)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			*f.dst = text
		}
	}

	return company, nil
}

// Context renders the knowledge as a prompt section.
func (c Company) Context() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tech Stack: %s\n", c.TechStack)
	fmt.Fprintf(&b, "Role Levels: %s", c.RoleLevels)
	return b.String()
}

// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ai-asa/chat-websearch/internal/common/validation"
)

//go:embed activities.json
var defaultRegistry []byte

// Default returns the built-in registry of research activities.
func Default() *ActivityRegistry {
	var reg ActivityRegistry
	if err := json.Unmarshal(defaultRegistry, &reg); err != nil {
		panic(fmt.Sprintf("embedded activity registry: %v", err))
	}
	return &reg
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Load reads path, or returns Default when path is empty.
func Load(path string) (*ActivityRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadRegistry(path)
}

// Save writes the registry as indented JSON, creating parent directories.
func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find looks an activity up by task type.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

func (r *ActivityRegistry) Add(activity Activity) error {
	for _, existing := range r.Activities {
		if existing.ID == activity.ID {
			return fmt.Errorf("activity with ID %s already exists", activity.ID)
		}
	}
	r.Activities = append(r.Activities, activity)
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return nil
}

// Update sets one scalar field of the activity with id.
func (r *ActivityRegistry) Update(id, field, value string) error {
	for i := range r.Activities {
		a := &r.Activities[i]
		if a.ID != id {
			continue
		}
		switch field {
		case "status":
			if !Status(value).Valid() {
				return fmt.Errorf("invalid status %q", value)
			}
			a.ImplementationStatus = Status(value)
		case "version":
			a.Version = value
		case "displayName":
			a.DisplayName = value
		case "description":
			a.Description = value
		case "category":
			a.Category = value
		case "taskType":
			a.TaskType = value
		case "timeout":
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid timeout value: %w", err)
			}
			a.Timeout = value
		case "retries":
			retries, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid retries value: %w", err)
			}
			a.Retries = retries
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		return nil
	}
	return fmt.Errorf("activity with ID %s not found", id)
}

// Validate checks required fields, unique ids, kebab-case task types, status and timeout
// values, and that every schema compiles.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	for _, activity := range r.Activities {
		if activity.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[activity.ID] {
			return fmt.Errorf("duplicate activity ID: %s", activity.ID)
		}
		ids[activity.ID] = true

		if activity.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", activity.ID)
		}
		if activity.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", activity.ID)
		}
		if activity.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", activity.ID)
		}
		if err := validation.ValidateActivityNaming(activity.TaskType); err != nil {
			return err
		}
		if activity.ImplementationStatus != "" && !activity.ImplementationStatus.Valid() {
			return fmt.Errorf("activity %s has unknown status %q", activity.ID, activity.ImplementationStatus)
		}
		if activity.Timeout != "" && activity.JobTimeout() <= 0 {
			return fmt.Errorf("activity %s timeout %q is not a positive duration", activity.ID, activity.Timeout)
		}
		for name, schema := range map[string]map[string]interface{}{"input": activity.InputSchema, "output": activity.OutputSchema} {
			if len(schema) == 0 {
				continue
			}
			if _, err := validation.NewSchema(schema); err != nil {
				return fmt.Errorf("activity %s %s schema: %w", activity.ID, name, err)
			}
		}
	}
	return nil
}

// ValidateInput checks job variables or request bodies against the activity's input schema.
func (a *Activity) ValidateInput(input map[string]interface{}) (*validation.ValidationResult, error) {
	if len(a.InputSchema) == 0 {
		return &validation.ValidationResult{Valid: true}, nil
	}
	return validation.ValidateInput(input, a.InputSchema)
}

// ValidateOutput checks a handler's output against the activity's output schema.
func (a *Activity) ValidateOutput(output interface{}) (*validation.ValidationResult, error) {
	if len(a.OutputSchema) == 0 {
		return &validation.ValidationResult{Valid: true}, nil
	}
	s, err := validation.NewSchema(a.OutputSchema)
	if err != nil {
		return nil, err
	}
	// round-trip through JSON so struct tags decide field names
	raw, err := json.Marshal(output)
	if err != nil {
		return nil, err
	}
	return s.ValidateJSON(raw)
}

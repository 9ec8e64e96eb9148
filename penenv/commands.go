package penenv

import (
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CommandTemplate is one entry of the command drawer: a named, categorized
// command line that may carry {target} and {port} placeholders.
type CommandTemplate struct {
	Name        string `yaml:"name"`
	Command     string `yaml:"command"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
}

// commandsFile is the YAML container shared by the built-in catalog and
// custom_commands.yaml.
type commandsFile struct {
	Commands []CommandTemplate `yaml:"commands"`
}

// builtinCommands is the catalog compiled into the binary, mirroring the
// catalog the application embeds.
//
//go:embed commands.yaml
var builtinCommands []byte

// BuiltinTemplates parses the embedded catalog. A broken embedded catalog is
// a build defect, not a runtime condition, so failures only log and yield an
// empty drawer.
func BuiltinTemplates() []CommandTemplate {
	var f commandsFile
	if err := yaml.Unmarshal(builtinCommands, &f); err != nil {
		zap.L().Warn("could not parse built-in commands", zap.Error(err))
		return nil
	}
	return f.Commands
}

// LoadTemplates returns the built-in catalog followed by the user's custom
// commands.
func (c *Config) LoadTemplates() []CommandTemplate {
	templates := BuiltinTemplates()
	custom, err := c.LoadCustomCommands()
	if err != nil {
		zap.L().Warn("could not load custom commands", zap.Error(err))
		return templates
	}
	return append(templates, custom...)
}

// LoadCustomCommands reads custom_commands.yaml. A missing file is an empty
// catalog.
func (c *Config) LoadCustomCommands() ([]CommandTemplate, error) {
	data, err := os.ReadFile(c.CustomCommandsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading custom commands: %w", err)
	}
	var f commandsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing custom commands: %w", err)
	}
	return f.Commands, nil
}

// SaveCustomCommands replaces the whole custom catalog.
func (c *Config) SaveCustomCommands(commands []CommandTemplate) error {
	data, err := yaml.Marshal(commandsFile{Commands: commands})
	if err != nil {
		return fmt.Errorf("serializing custom commands: %w", err)
	}
	if err := os.WriteFile(c.CustomCommandsPath(), data, 0644); err != nil {
		return fmt.Errorf("writing custom commands: %w", err)
	}
	return nil
}

// AddCustomCommand appends a command to the custom catalog.
func (c *Config) AddCustomCommand(cmd CommandTemplate) error {
	if cmd.Name == "" || cmd.Command == "" {
		return fmt.Errorf("custom command needs a name and a command line")
	}
	commands, err := c.LoadCustomCommands()
	if err != nil {
		return err
	}
	return c.SaveCustomCommands(append(commands, cmd))
}

// UpdateCustomCommand replaces the custom command at index.
func (c *Config) UpdateCustomCommand(index int, cmd CommandTemplate) error {
	commands, err := c.LoadCustomCommands()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(commands) {
		return fmt.Errorf("invalid command index %d", index)
	}
	commands[index] = cmd
	return c.SaveCustomCommands(commands)
}

// DeleteCustomCommand removes the custom command at index.
func (c *Config) DeleteCustomCommand(index int) error {
	commands, err := c.LoadCustomCommands()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(commands) {
		return fmt.Errorf("invalid command index %d", index)
	}
	commands = append(commands[:index], commands[index+1:]...)
	return c.SaveCustomCommands(commands)
}

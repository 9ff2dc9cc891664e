// Package prompt wraps promptui for the interactive parts of the CLI.
package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt with Ctrl+C.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err means the user aborted.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err != nil && IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Confirm asks a yes/no question. An empty answer selects defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}

	result, err := (&promptui.Prompt{
		Label:    fmt.Sprintf("%s [%s]", label, hint),
		Validate: validateYesNo,
	}).Run()
	if err != nil {
		return false, wrapError(err)
	}
	return parseYesNo(result, defaultYes), nil
}

func validateYesNo(input string) error {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "y", "yes", "n", "no":
		return nil
	}
	return errors.New("answer y or n")
}

func parseYesNo(input string, defaultYes bool) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return defaultYes
}

// ConfirmDanger guards a destructive operation: the user must type word exactly.
func ConfirmDanger(label, word string) (bool, error) {
	result, err := (&promptui.Prompt{
		Label:    fmt.Sprintf("%s (type '%s' to confirm)", label, word),
		Validate: matchWord(word),
	}).Run()
	if err != nil {
		return false, wrapError(err)
	}
	return result == word, nil
}

func matchWord(word string) promptui.ValidateFunc {
	return func(input string) error {
		if input != word {
			return fmt.Errorf("type '%s' to confirm", word)
		}
		return nil
	}
}

// ConfirmWithForce skips the question when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}

// Input asks for free text, pre-filled with defaultValue.
func Input(label, defaultValue string) (string, error) {
	result, err := (&promptui.Prompt{Label: label, Default: defaultValue}).Run()
	return result, wrapError(err)
}

// InputWithValidation asks for text until validate accepts it.
func InputWithValidation(label, defaultValue string, validate func(string) error) (string, error) {
	result, err := (&promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: validate,
	}).Run()
	return result, wrapError(err)
}

// InputPort asks for a TCP port.
func InputPort(label string, defaultValue int) (int, error) {
	result, err := InputWithValidation(label, strconv.Itoa(defaultValue), validatePort)
	if err != nil {
		return 0, err
	}
	port, _ := strconv.Atoi(result)
	return port, nil
}

func validatePort(input string) error {
	port, err := strconv.Atoi(input)
	if err != nil {
		return errors.New("must be a valid integer")
	}
	if port < 1 || port > 65535 {
		return errors.New("must be a valid port (1-65535)")
	}
	return nil
}

// Password asks for a secret without echoing it.
func Password(label string) (string, error) {
	result, err := (&promptui.Prompt{Label: label, Mask: '*'}).Run()
	return result, wrapError(err)
}

// SelectOption is one entry of a Select list.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// Select shows options and returns the chosen Value.
func Select(label string, options []SelectOption) (string, error) {
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "* {{ .Label | green }}",
	}
	if len(options) > 0 && options[0].Description != "" {
		templates.Details = `
{{ "Description:" | faint }}	{{ .Description }}`
	}

	i, _, err := (&promptui.Select{
		Label:     label,
		Items:     options,
		Templates: templates,
		Size:      10,
	}).Run()
	if err != nil {
		return "", wrapError(err)
	}
	return options[i].Value, nil
}

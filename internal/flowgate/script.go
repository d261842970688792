package flowgate

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Script is the YAML shape of a decisions file:
//
//	choices: [r, c]          # answered in order to any prompt
//	steps:
//	  stage_4_execute: [r, r, a]
//	on_success: c            # fallback once the lists run out
//	on_error: a
type Script struct {
	Choices   []string            `yaml:"choices"`
	Steps     map[string][]string `yaml:"steps"`
	OnSuccess string              `yaml:"on_success"`
	OnError   string              `yaml:"on_error"`
}

// ScriptedProvider answers prompts from a prepared list, for unattended runs
// and tests. Per-step answers take precedence over the shared list.
type ScriptedProvider struct {
	mu        sync.Mutex
	choices   []Control
	steps     map[string][]Control
	onSuccess Control
	onError   Control
	asked     []Prompt
}

// NewScriptedProvider answers with choices in order. Empty fallbacks mean the
// provider fails with ErrNoDecision once the list is exhausted.
func NewScriptedProvider(choices []Control, onSuccess, onError Control) *ScriptedProvider {
	return &ScriptedProvider{
		choices:   append([]Control(nil), choices...),
		steps:     map[string][]Control{},
		onSuccess: onSuccess,
		onError:   onError,
	}
}

// LoadScript reads a decisions file.
func LoadScript(path string) (*ScriptedProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read decisions file: %w", err)
	}
	p, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("decisions file %s: %w", path, err)
	}
	return p, nil
}

// ParseScript decodes a YAML decisions document. Unknown controls are rejected.
func ParseScript(data []byte) (*ScriptedProvider, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse decisions: %w", err)
	}
	choices, err := parseControls("choices", script.Choices)
	if err != nil {
		return nil, err
	}
	p := NewScriptedProvider(choices, "", "")
	for step, raw := range script.Steps {
		controls, err := parseControls("steps."+step, raw)
		if err != nil {
			return nil, err
		}
		p.steps[step] = controls
	}
	if script.OnSuccess != "" {
		c, ok := ParseControl(script.OnSuccess)
		if !ok {
			return nil, fmt.Errorf("on_success: unknown control %q", script.OnSuccess)
		}
		p.onSuccess = c
	}
	if script.OnError != "" {
		c, ok := ParseControl(script.OnError)
		if !ok || !c.OnError() {
			return nil, fmt.Errorf("on_error: %q cannot answer an error prompt", script.OnError)
		}
		p.onError = c
	}
	return p, nil
}

func parseControls(field string, raw []string) ([]Control, error) {
	out := make([]Control, 0, len(raw))
	for i, value := range raw {
		c, ok := ParseControl(value)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: unknown control %q", field, i, value)
		}
		out = append(out, c)
	}
	return out, nil
}

// Decide pops the next scripted answer the prompt offers. Answers the prompt
// does not offer are consumed and skipped, and a fallback that is not offered
// is ErrNoDecision, so an unattended run never loops on a rejected answer.
func (p *ScriptedProvider) Decide(_ context.Context, prompt Prompt) (Control, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, prompt)

	for queue := p.steps[prompt.Step]; len(queue) > 0; queue = p.steps[prompt.Step] {
		p.steps[prompt.Step] = queue[1:]
		if prompt.Controls.Has(queue[0]) {
			return queue[0], nil
		}
	}
	for len(p.choices) > 0 {
		next := p.choices[0]
		p.choices = p.choices[1:]
		if prompt.Controls.Has(next) {
			return next, nil
		}
	}
	fallback := p.onSuccess
	if prompt.OnError {
		fallback = p.onError
	}
	if fallback != "" && prompt.Controls.Has(fallback) {
		return fallback, nil
	}
	return "", fmt.Errorf("%w: script has no answer among [%s] at step %s", ErrNoDecision, prompt.Controls, prompt.Step)
}

// Prompts returns every prompt seen so far.
func (p *ScriptedProvider) Prompts() []Prompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Prompt(nil), p.asked...)
}

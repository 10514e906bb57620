package main

import (
	"fmt"
	"strings"
	"text/template"
)

// ScriptTemplate is a named, parsed G-code script template. Parsing happens
// once at init so malformed templates surface before the daemon goes active;
// rendering happens at drain time.
type ScriptTemplate struct {
	name   string
	source string
	tmpl   *template.Template // nil when the source is empty
}

// TemplateContext is the data available to script templates at render time.
type TemplateContext struct {
	Event     string  // classified event name, e.g. "double_click"
	Eventtime float64 // monotonic time of the triggering event, seconds
}

// loadTemplate parses source into a template named for its config key.
// An empty source is valid and means "no action".
func loadTemplate(name, source string) (*ScriptTemplate, error) {
	st := &ScriptTemplate{name: name, source: source}
	if strings.TrimSpace(source) == "" {
		return st, nil
	}
	tmpl, err := template.New(name).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	st.tmpl = tmpl
	return st, nil
}

// literalTemplate wraps an already-rendered script (IPC injection path).
func literalTemplate(script string) *ScriptTemplate {
	return &ScriptTemplate{name: "literal", source: script, tmpl: nil}
}

// Empty reports whether rendering can never produce a script.
func (t *ScriptTemplate) Empty() bool {
	return t.tmpl == nil && strings.TrimSpace(t.source) == ""
}

// Render produces the concrete script string for ctx.
func (t *ScriptTemplate) Render(ctx TemplateContext) (string, error) {
	if t.tmpl == nil {
		return strings.TrimSpace(t.source), nil
	}
	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, ctx); err != nil {
		return "", fmt.Errorf("render %s: %w", t.name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// loadScriptTable builds the full event-to-script table from config.
// Every event kind gets a slot; unconfigured kinds hold empty templates.
func loadScriptTable(cfg *EncoderConfig) (ScriptTable, error) {
	var table ScriptTable

	sources := map[EventKind]string{
		EventClick:       cfg.ClickGcode,
		EventDoubleClick: cfg.DoubleClickGcode,
		EventLongClick:   cfg.LongClickGcode,
		EventRelease:     cfg.ReleaseGcode,
		EventUp:          cfg.UpGcode,
		EventFastUp:      cfg.FastUpGcode,
		EventDown:        cfg.DownGcode,
		EventFastDown:    cfg.FastDownGcode,
	}

	for kind := EventKind(0); kind < numEventKinds; kind++ {
		tmpl, err := loadTemplate(kind.configKey(), sources[kind])
		if err != nil {
			return table, err
		}
		table[kind] = tmpl
	}
	return table, nil
}

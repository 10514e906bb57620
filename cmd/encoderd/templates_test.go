package main

import (
	"strings"
	"testing"
)

// TestTemplate_RenderContext tests template rendering with the event
// context fields.
func TestTemplate_RenderContext(t *testing.T) {
	tmpl := mustTemplate(t, "click_gcode", "M117 {{.Event}} at {{printf \"%.1f\" .Eventtime}}")

	out, err := tmpl.Render(TemplateContext{Event: "click", Eventtime: 12.34})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "M117 click at 12.3" {
		t.Errorf("expected rendered script, got %q", out)
	}
}

// TestTemplate_Static tests that plain G-code passes through untouched
// apart from whitespace trimming.
func TestTemplate_Static(t *testing.T) {
	tmpl := mustTemplate(t, "up_gcode", "\n  G91\nG1 Z0.1\nG90\n")

	out, err := tmpl.Render(TemplateContext{Event: "up"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "G91\nG1 Z0.1\nG90" {
		t.Errorf("expected trimmed multi-line script, got %q", out)
	}
}

// TestTemplate_ParseErrorAtLoad tests that malformed templates fail at
// load, not at render.
func TestTemplate_ParseErrorAtLoad(t *testing.T) {
	_, err := loadTemplate("click_gcode", "M117 {{.Event")
	if err == nil {
		t.Fatal("expected parse error, got none")
	}
	if !strings.Contains(err.Error(), "click_gcode") {
		t.Errorf("expected error to name the option, got %v", err)
	}
}

// TestTemplate_Empty tests empty-source detection.
func TestTemplate_Empty(t *testing.T) {
	empty := mustTemplate(t, "release_gcode", "   \n ")
	if !empty.Empty() {
		t.Error("whitespace-only source: expected Empty() true")
	}

	nonEmpty := mustTemplate(t, "click_gcode", "G28")
	if nonEmpty.Empty() {
		t.Error("expected Empty() false for configured script")
	}

	if literalTemplate("M117 hi").Empty() {
		t.Error("expected Empty() false for literal script")
	}
}

// TestLoadScriptTable tests that every event kind gets a slot and sources
// land on the right kind.
func TestLoadScriptTable(t *testing.T) {
	cfg := EncoderConfig{
		DoubleClickGcode: "M117 double",
		FastDownGcode:    "M117 fastdown",
	}

	table, err := loadScriptTable(&cfg)
	if err != nil {
		t.Fatalf("loadScriptTable: %v", err)
	}

	for kind := EventKind(0); kind < numEventKinds; kind++ {
		if table[kind] == nil {
			t.Fatalf("kind %s: expected non-nil template", kind)
		}
	}

	out, err := table[EventDoubleClick].Render(TemplateContext{Event: "double_click"})
	if err != nil || out != "M117 double" {
		t.Errorf("double_click: expected script, got %q err %v", out, err)
	}
	if !table[EventClick].Empty() {
		t.Error("unconfigured click: expected empty template")
	}
	if table[EventFastDown].Empty() {
		t.Error("fast_down: expected configured template")
	}
}

// TestLoadScriptTable_BadTemplate tests that one malformed script fails
// the whole table load.
func TestLoadScriptTable_BadTemplate(t *testing.T) {
	cfg := EncoderConfig{LongClickGcode: "{{bogus"}
	if _, err := loadScriptTable(&cfg); err == nil {
		t.Fatal("expected error for malformed template")
	}
}

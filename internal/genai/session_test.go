package genai

import "testing"

func TestConvertOutputSplitsThinkAndCommand(t *testing.T) {
	cmd, think := ConvertOutput("<think>reasoning here</think>ls -la")
	if cmd != "ls -la" || think != "reasoning here" {
		t.Fatalf("ConvertOutput() = (%q,%q), want (%q,%q)", cmd, think, "ls -la", "reasoning here")
	}
}

func TestConvertOutputNoThinkTag(t *testing.T) {
	cmd, think := ConvertOutput("ls -la")
	if cmd != "ls -la" || think != "" {
		t.Fatalf("ConvertOutput() = (%q,%q), want (%q,%q)", cmd, think, "ls -la", "")
	}
}

func TestConvertOutputUnclosedThinkTag(t *testing.T) {
	cmd, think := ConvertOutput("<think>still reasoning")
	if cmd != "" || think != "still reasoning" {
		t.Fatalf("ConvertOutput() = (%q,%q), want (%q,%q)", cmd, think, "", "still reasoning")
	}
}

func TestApplyPostProcessorStripBackticks(t *testing.T) {
	got, err := applyPostProcessor("strip-backticks", "`ls -la`")
	if err != nil {
		t.Fatalf("applyPostProcessor() error = %v", err)
	}
	if got != "ls -la" {
		t.Fatalf("applyPostProcessor() = %q, want %q", got, "ls -la")
	}
}

func TestApplyPostProcessorFirstLine(t *testing.T) {
	got, err := applyPostProcessor("first-line", "ls -la\nrm -rf /")
	if err != nil {
		t.Fatalf("applyPostProcessor() error = %v", err)
	}
	if got != "ls -la" {
		t.Fatalf("applyPostProcessor() = %q, want %q", got, "ls -la")
	}
}

func TestApplyPostProcessorRegexReplace(t *testing.T) {
	got, err := applyPostProcessor("regex-replace:foo=bar", "foo baz foo")
	if err != nil {
		t.Fatalf("applyPostProcessor() error = %v", err)
	}
	if got != "bar baz bar" {
		t.Fatalf("applyPostProcessor() = %q, want %q", got, "bar baz bar")
	}
}

func TestApplyPostProcessorUnknownRejected(t *testing.T) {
	if _, err := applyPostProcessor("exec-python:print(1)", "x"); err == nil {
		t.Fatal("applyPostProcessor() error = nil, want error for unknown transform")
	}
}

func TestMixedSessionRemoveActivePromotesNext(t *testing.T) {
	m := NewMixedSession()
	m.Add("a", NewTextSession(nil))
	m.Add("b", NewTextSession(nil))
	m.Add("c", NewTextSession(nil))
	m.Switch("b")
	m.Remove("b")
	active, ok := m.Active()
	if !ok || active != "a" {
		t.Fatalf("Active() = (%q,%v), want (\"a\",true)", active, ok)
	}
}

func TestMixedSessionRemoveInactiveKeepsActive(t *testing.T) {
	m := NewMixedSession()
	m.Add("a", NewTextSession(nil))
	m.Add("b", NewTextSession(nil))
	m.Switch("a")
	m.Remove("b")
	active, ok := m.Active()
	if !ok || active != "a" {
		t.Fatalf("Active() = (%q,%v), want (\"a\",true)", active, ok)
	}
}

func TestMixedSessionGenerateWithNoActiveReportsPlaceholder(t *testing.T) {
	m := NewMixedSession()
	items, err, cancelled := m.Generate(nil, "do it", "").Collect()
	if err != nil || cancelled {
		t.Fatalf("Generate() err=%v cancelled=%v, want nil/false", err, cancelled)
	}
	if len(items) != 2 || items[0] != (Output{}) || items[1].Think != "no selected ai" {
		t.Fatalf("items = %+v, want the empty first item then the placeholder", items)
	}
}

func TestChatSessionSetCoercesConsoleMaxHeight(t *testing.T) {
	c := NewChatSession(nil)
	if err := c.Set("console_max_height", "10"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if c.ConsoleMaxHeight != 10 {
		t.Fatalf("ConsoleMaxHeight = %d, want 10", c.ConsoleMaxHeight)
	}
	if err := c.Set("console_max_height", "not-a-number"); err == nil {
		t.Fatal("Set() error = nil, want error for non-numeric value")
	}
}

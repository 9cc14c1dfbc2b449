package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/token"
)

func TestErrorExcerpt(t *testing.T) {
	var buf bytes.Buffer
	files := []SourceFileRecord{{Name: "t.tan", Content: []rune("main {\n  print x;\n}\n")}}
	r := NewReporter(&buf, config.NewConfig(), files)
	r.Error(token.Token{FileIndex: 0, Line: 2, Column: 9, Len: 1}, "identifier %q used before definition", "x")

	want := "t.tan:2:9: error: identifier \"x\" used before definition\n" +
		"    print x;\n" +
		"          ^\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
	if !r.HasErrors() || r.ErrorCount() != 1 {
		t.Errorf("error count = %d", r.ErrorCount())
	}
}

func TestWarningsRespectConfig(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.NewConfig()
	r := NewReporter(&buf, cfg, nil)
	r.Warn(config.WarnPromotion, token.Token{}, "promoted")
	if buf.Len() != 0 || len(r.Diagnostics) != 0 {
		t.Fatalf("disabled warning was reported: %q", buf.String())
	}
	cfg.SetWarning(config.WarnPromotion, true)
	r.Warn(config.WarnPromotion, token.Token{Line: 1, Column: 1}, "promoted")
	if !strings.Contains(buf.String(), "warning: promoted [-Wpromotion]") {
		t.Errorf("unexpected warning text %q", buf.String())
	}
	if r.HasErrors() {
		t.Error("warnings must not count as errors")
	}
}

func TestMessages(t *testing.T) {
	r := NewReporter(nil, nil, nil)
	r.Error(token.Token{}, "first")
	r.Warn(config.WarnExtra, token.Token{}, "ignored")
	r.Error(token.Token{}, "second")
	if diff := cmp.Diff([]string{"first", "second"}, r.Messages()); diff != "" {
		t.Errorf("Messages (-want +got):\n%s", diff)
	}
}

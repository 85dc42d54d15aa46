package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"doorhole/internal/storetest"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// isolate keeps config, log and journal inside temp dirs.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("DOORHOLE_CONFIG_DIR", t.TempDir())
	t.Setenv("DOORHOLE_STATE_DIR", t.TempDir())
	t.Setenv("DOORHOLE_DIR", "")
	t.Setenv("DOORHOLE_FORMAT", "")
}

func mustJSON(t *testing.T, root string, args ...string) any {
	t.Helper()
	full := append([]string{"--dir", root, "--format", "json"}, args...)
	stdout, stderr, err := runCLI(t, full)
	if err != nil {
		t.Fatalf("doorhole %v failed: %v\nstderr:\n%s", args, err, stderr)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v\nstdout:\n%s", err, stdout)
	}
	data, ok := env["data"]
	if !ok {
		t.Fatalf("expected data key; got %v", env)
	}
	return data
}

func TestDocuments_JSONEnvelope(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)

	data := mustJSON(t, root, "documents")
	docs, ok := data.([]any)
	if !ok || len(docs) != 2 {
		t.Fatalf("expected 2 documents; got %#v", data)
	}
	first := docs[0].(map[string]any)
	if first["prefix"] != "SYS" || first["items"] != float64(3) {
		t.Fatalf("unexpected first document %#v", first)
	}
	second := docs[1].(map[string]any)
	if second["title"] != "SYS -> REQ" || second["parent"] != "SYS" {
		t.Fatalf("unexpected second document %#v", second)
	}
}

func TestItems_TableFormatHidesConfiguredColumns(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)

	stdout, stderr, err := runCLI(t, []string{"--dir", root, "items", "REQ"})
	if err != nil {
		t.Fatalf("items failed: %v\n%s", err, stderr)
	}
	out := string(stdout)
	for _, want := range []string{"uid", "priority", "REQ001", "REQ002", "functional"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if strings.Contains(out, "REQ003") {
		t.Fatalf("expected inactive item to be hidden:\n%s", out)
	}
	if strings.Contains(out, "references") {
		t.Fatalf("expected hidden column to be skipped:\n%s", out)
	}
}

func TestSet_WritesAndRecordsHistory(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)

	data := mustJSON(t, root, "set", "REQ001", "priority", "7").(map[string]any)
	if data["value"] != "7" || data["attr"] != "priority" {
		t.Fatalf("unexpected set output %#v", data)
	}
	b, err := os.ReadFile(filepath.Join(root, "sys", "req", "REQ001.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "priority: 7") {
		t.Fatalf("expected priority on disk:\n%s", b)
	}

	hist := mustJSON(t, root, "history", "REQ001").([]any)
	if len(hist) != 1 {
		t.Fatalf("expected one journal entry; got %#v", hist)
	}
	e := hist[0].(map[string]any)
	if e["op"] != "set" || e["attr"] != "priority" || e["new"] != float64(7) {
		t.Fatalf("unexpected journal entry %#v", e)
	}
}

func TestSet_RejectsBadInteger(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)

	_, stderr, err := runCLI(t, []string{"--dir", root, "set", "REQ001", "priority", "high"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !Reported(err) {
		t.Fatalf("expected error to be reported once")
	}
	if !strings.Contains(string(stderr), "cannot convert") {
		t.Fatalf("expected coercion error on stderr; got %q", stderr)
	}
}

func TestAdd_AfterHeadingCreatesFirstChild(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)

	data := mustJSON(t, root, "add", "SYS", "--level", "2.0").(map[string]any)
	if data["uid"] != "SYS004" || data["level"] != "2.0" {
		t.Fatalf("unexpected add output %#v", data)
	}
	data = mustJSON(t, root, "add", "SYS", "--after", "SYS004").(map[string]any)
	if data["uid"] != "SYS005" || data["level"] != "2.1" {
		t.Fatalf("expected first child 2.1; got %#v", data)
	}
}

func TestDelete_RequiresYes(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)
	path := filepath.Join(root, "sys", "SYS002.yml")

	_, _, err := runCLI(t, []string{"--dir", root, "delete", "SYS002"})
	var nc needsConfirmError
	if !errors.As(err, &nc) {
		t.Fatalf("expected needsConfirmError; got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected item to survive: %v", err)
	}

	data := mustJSON(t, root, "delete", "SYS002", "--yes").(map[string]any)
	if data["status"] != "deleted" {
		t.Fatalf("unexpected delete output %#v", data)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected item file removed; got %v", err)
	}
}

func TestCheck_FailsOnUnknownLink(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)

	if _, stderr, err := runCLI(t, []string{"--dir", root, "check"}); err != nil {
		t.Fatalf("expected fixture to pass check: %v\n%s", err, stderr)
	}
	mustJSON(t, root, "set", "REQ002", "links", "SYS999")

	stdout, _, err := runCLI(t, []string{"--dir", root, "check"})
	var cf checkFailedError
	if !errors.As(err, &cf) || cf.errors == 0 {
		t.Fatalf("expected checkFailedError; got %v", err)
	}
	if !strings.Contains(string(stdout), "REQ002") {
		t.Fatalf("expected REQ002 in report:\n%s", stdout)
	}
}

func TestRender_PrintsHeadingAndText(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)

	stdout, stderr, err := runCLI(t, []string{"--dir", root, "render", "SYS003", "--html"})
	if err != nil {
		t.Fatalf("render failed: %v\n%s", err, stderr)
	}
	out := string(stdout)
	if !strings.Contains(out, "1.2 Stop") || !strings.Contains(out, "The system shall stop.") {
		t.Fatalf("unexpected html:\n%s", out)
	}
}

func TestExport_WritesPage(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)
	out := filepath.Join(t.TempDir(), "sys.html")

	data := mustJSON(t, root, "export", "SYS", "--out", out).(map[string]any)
	if data["items"] != float64(3) || data["failed"] != float64(0) {
		t.Fatalf("unexpected export summary %#v", data)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	page := string(b)
	if !strings.HasPrefix(page, "<!DOCTYPE html>") || strings.Count(page, `<section class="item">`) != 3 {
		t.Fatalf("unexpected page:\n%s", page)
	}
}

func TestUnknownFormat(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)

	_, stderr, err := runCLI(t, []string{"--dir", root, "--format", "edn", "documents"})
	if err == nil || !strings.Contains(string(stderr), "unknown format") {
		t.Fatalf("expected unknown format error; got %v %q", err, stderr)
	}
}

func TestStatus_OutsideRepository(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)

	data := mustJSON(t, root, "status").(map[string]any)
	if data["documents"] != float64(2) || data["items"] != float64(5) {
		t.Fatalf("unexpected counts %#v", data)
	}
	git, _ := data["git"].(map[string]any)
	if git["isRepo"] != false {
		t.Fatalf("expected temp dir outside a repository; got %#v", git)
	}
}

func TestPublish_DocumentPages(t *testing.T) {
	isolate(t)
	root := storetest.Basic(t)
	to := t.TempDir()

	data := mustJSON(t, root, "publish", "REQ", "--to", to).(map[string]any)
	written, _ := data["written"].([]any)
	if len(written) != 3 {
		t.Fatalf("expected index plus 2 pages; got %#v", data)
	}
	if _, err := os.Stat(filepath.Join(to, "REQ", "REQ001.md")); err != nil {
		t.Fatalf("expected item page: %v", err)
	}
	if _, _, err := runCLI(t, []string{"--dir", root, "publish", "REQ", "--to", to}); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
}

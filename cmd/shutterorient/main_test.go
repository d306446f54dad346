package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/On-Jun9/ShutterOrient/internal/testutil"
	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

// executeCommand는 테스트 코드 동작을 검증하거나 보조합니다.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// scanFixture는 테스트 코드 동작을 검증하거나 보조합니다.
func scanFixture(t *testing.T) (string, []string) {
	t.Helper()
	baseDir := t.TempDir()
	srcDir := filepath.Join(baseDir, "src")
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatalf("failed to create source dir: %v", err)
	}
	testutil.WriteFile(t, filepath.Join(srcDir, "a.jpg"), testutil.OrientationJPEG(6))
	testutil.WriteFile(t, filepath.Join(srcDir, "b#1.jpg"), testutil.OrientationJPEG(3))

	flags := []string{
		"--index", filepath.Join(baseDir, "orientation.json"),
		"--log-file", filepath.Join(baseDir, "logs", "shutterorient.log"),
	}
	return srcDir, flags
}

// TestScanCommand_JSONOutputIsParseable는 테스트 코드 동작을 검증하거나 보조합니다.
func TestScanCommand_JSONOutputIsParseable(t *testing.T) {
	// --json 모드에서 stdout은 JSON 문서만 담고, 진행/요약 출력은 stderr로 가야 한다.
	srcDir, flags := scanFixture(t)

	stdout, stderr, err := executeCommand(t, append([]string{"scan", srcDir, "--json=true"}, flags...)...)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	var results []types.Resolution
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	for _, res := range results {
		want := types.Angle90
		if filepath.Base(string(res.Ref)) == "b#1.jpg" {
			want = types.Angle180
		}
		if res.Angle != want {
			t.Fatalf("%s: expected %s, got %s", res.Ref, want, res.Angle)
		}
	}
	if !strings.Contains(stderr, "ShutterOrient Summary") {
		t.Fatalf("expected summary on stderr, got %q", stderr)
	}
}

// TestScanCommand_TextOutputKeepsSummaryOnStdout는 테스트 코드 동작을 검증하거나 보조합니다.
func TestScanCommand_TextOutputKeepsSummaryOnStdout(t *testing.T) {
	// 일반 모드에서는 요약이 stdout에 출력되어야 한다.
	srcDir, flags := scanFixture(t)

	stdout, _, err := executeCommand(t, append([]string{"scan", srcDir, "--json=false"}, flags...)...)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(stdout, "ShutterOrient Summary") || !strings.Contains(stdout, "Total files:    2") {
		t.Fatalf("expected summary on stdout, got %q", stdout)
	}
}

// TestResolveCommand_JSONOutput는 테스트 코드 동작을 검증하거나 보조합니다.
func TestResolveCommand_JSONOutput(t *testing.T) {
	// resolve --json은 파일명에 '#', '%'가 있어도 올바른 각도를 JSON으로 출력해야 한다.
	srcDir, flags := scanFixture(t)
	odd := filepath.Join(srcDir, "100%.jpg")
	testutil.WriteFile(t, odd, testutil.OrientationJPEG(8))

	stdout, _, err := executeCommand(t, append([]string{"resolve", odd, filepath.Join(srcDir, "b#1.jpg"), "--json=true"}, flags...)...)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	var results []types.Resolution
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if len(results) != 2 || results[0].Angle != types.Angle270 || results[1].Angle != types.Angle180 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

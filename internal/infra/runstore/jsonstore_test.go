package runstore

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aalvaropc/headline/internal/domain"
)

func sampleRun(name string) domain.RunArtifact {
	start := time.Date(2026, 2, 3, 10, 11, 12, 0, time.UTC)
	return domain.RunArtifact{
		SuiteName: name,
		SuitePath: "suites/demo.yaml",
		StartedAt: start,
		EndedAt:   start.Add(2 * time.Second),
		Results: []domain.ProbeResult{
			{
				Name:       "health",
				Method:     domain.MethodGet,
				URL:        "http://x/health",
				Protocol:   domain.ProtocolHTTP11,
				StatusCode: 200,
				Reason:     "OK",
				LatencyMS:  10,
				Assertions: []domain.AssertionResult{{Name: "status", Passed: true, Message: "ok"}},
				Extracts:   []domain.ExtractResult{},
				Extracted:  domain.Vars{"auth.token": "abc123", "user.id": "7"},
				Response: domain.ResponseSnapshot{
					Headers: map[string][]string{
						"Set-Cookie": {"session=abc"},
						"X-Test":     {"1"},
					},
					Body: []byte("ok"),
				},
			},
		},
	}
}

func readArtifact(t *testing.T, path string) domain.RunArtifact {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var decoded domain.RunArtifact
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return decoded
}

func TestSaveRun_CreatesJSONFile(t *testing.T) {
	tmp := t.TempDir()

	cfg := domain.DefaultConfig()
	cfg.Masking.Enabled = false

	id, err := NewJSONStore(tmp, cfg).SaveRun(sampleRun("Demo API"))
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if id != "20260203T101112Z_demo-api" {
		t.Fatalf("unexpected id %q", id)
	}

	decoded := readArtifact(t, filepath.Join(tmp, "runs", id+".json"))
	if decoded.SuiteName != "Demo API" {
		t.Fatalf("expected suite name, got=%q", decoded.SuiteName)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].StatusCode != 200 {
		t.Fatalf("unexpected results: %+v", decoded.Results)
	}
	if decoded.Results[0].Extracted["auth.token"] != "abc123" {
		t.Fatalf("expected unmasked token when masking disabled")
	}
	if _, err := os.Stat(filepath.Join(tmp, "runs", id+".json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected tmp file removed, stat err=%v", err)
	}
}

func TestSaveRun_MasksSensitiveValues(t *testing.T) {
	tmp := t.TempDir()
	run := sampleRun("Mask Demo")

	id, err := NewJSONStore(tmp, domain.DefaultConfig()).SaveRun(run)
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if run.Results[0].Extracted["auth.token"] != "abc123" || run.Results[0].Response.Headers["Set-Cookie"][0] != "session=abc" {
		t.Fatalf("expected original run not mutated")
	}

	got := readArtifact(t, filepath.Join(tmp, "runs", id+".json")).Results[0]
	if got.Extracted["auth.token"] != maskValue {
		t.Fatalf("expected auth.token masked, got=%q", got.Extracted["auth.token"])
	}
	if got.Extracted["user.id"] != "7" {
		t.Fatalf("expected user.id preserved, got=%q", got.Extracted["user.id"])
	}
	if got.Response.Headers["Set-Cookie"][0] != maskValue {
		t.Fatalf("expected Set-Cookie masked, got=%q", got.Response.Headers["Set-Cookie"][0])
	}
	if got.Response.Headers["X-Test"][0] != "1" {
		t.Fatalf("expected X-Test preserved, got=%q", got.Response.Headers["X-Test"][0])
	}
}

func TestSaveRun_UsesUniqueFilenameOnCollision(t *testing.T) {
	tmp := t.TempDir()
	store := NewJSONStore(tmp, domain.DefaultConfig())

	id1, err := store.SaveRun(sampleRun("Demo API"))
	if err != nil {
		t.Fatalf("SaveRun #1 error: %v", err)
	}
	id2, err := store.SaveRun(sampleRun("Demo API"))
	if err != nil {
		t.Fatalf("SaveRun #2 error: %v", err)
	}
	if id2 != id1+"_2" {
		t.Fatalf("expected second id %q, got %q", id1+"_2", id2)
	}
	for _, id := range []string{id1, id2} {
		if _, err := os.Stat(filepath.Join(tmp, "runs", id+".json")); err != nil {
			t.Fatalf("expected file for %s, stat err=%v", id, err)
		}
	}
}

func TestSaveRun_FallsBackToPathAndClock(t *testing.T) {
	tmp := t.TempDir()
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	cfg := domain.DefaultConfig()
	cfg.Paths.RunsDir = "out"
	store := NewJSONStore(tmp, cfg, WithNow(func() time.Time { return now }))

	id, err := store.SaveRun(domain.RunArtifact{SuitePath: "suites/Smoke Tests.yaml"})
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if id != "20260506T070809Z_smoke-tests" {
		t.Fatalf("unexpected id %q", id)
	}
	if _, err := os.Stat(filepath.Join(tmp, "out", id+".json")); err != nil {
		t.Fatalf("expected file in custom runs dir: %v", err)
	}
}

func TestSaveRun_WritesIndex(t *testing.T) {
	tmp := t.TempDir()
	store := NewJSONStore(tmp, domain.DefaultConfig(), WithIndex(true))

	run := sampleRun("Indexed")
	run.Results = append(run.Results, domain.ProbeResult{Name: "broken", Error: &domain.RunError{Kind: domain.RunErrorConn}})

	id, err := store.SaveRun(run)
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}

	f, err := os.Open(filepath.Join(tmp, "runs", "index.jsonl"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		t.Fatalf("expected one index line")
	}
	var entry map[string]any
	if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal index: %v", err)
	}
	if entry["id"] != id || entry["suite"] != "Indexed" || entry["failures"] != float64(1) {
		t.Fatalf("unexpected index entry: %v", entry)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Demo API":        "demo-api",
		"  --a__b..c--  ": "a-b-c",
		"Ünïcode!":        "n-code",
		"":                "",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSaveRun_MasksSensitiveQueryParams(t *testing.T) {
	tmp := t.TempDir()
	run := sampleRun("Query Mask")
	run.Results[0].URL = "http://x/health?token=abc&page=2&api_key=k1#top"

	id, err := NewJSONStore(tmp, domain.DefaultConfig()).SaveRun(run)
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if run.Results[0].URL != "http://x/health?token=abc&page=2&api_key=k1#top" {
		t.Fatalf("expected original run not mutated")
	}

	got := readArtifact(t, filepath.Join(tmp, "runs", id+".json")).Results[0]
	want := "http://x/health?token=" + maskValue + "&page=2&api_key=" + maskValue + "#top"
	if got.URL != want {
		t.Fatalf("expected masked URL %q, got=%q", want, got.URL)
	}
}

func TestMaskURLQuery(t *testing.T) {
	cases := map[string]string{
		"http://x/a":                    "http://x/a",
		"http://x/a?page=1":             "http://x/a?page=1",
		"http://x/a?Session%5Fid=s&x":   "http://x/a?Session%5Fid=" + maskValue + "&x",
		"http://x/a#frag?token=visible": "http://x/a#frag?token=visible",
		"http://x/a?password=":          "http://x/a?password=" + maskValue,
	}
	for in, want := range cases {
		if got := maskURLQuery(in); got != want {
			t.Errorf("maskURLQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

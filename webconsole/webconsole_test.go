package webconsole

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domconsole/console"
	"github.com/hazyhaar/domconsole/inspect"
	"github.com/hazyhaar/domconsole/internal/dbopen"
	"github.com/hazyhaar/domconsole/journal"
	"github.com/hazyhaar/domconsole/record"
	"github.com/hazyhaar/domconsole/surface/dom"
)

func newService(t *testing.T, withJournal bool) *Service {
	t.Helper()
	d := dom.New()
	var opts []console.Option
	var svcOpts []Option
	if withJournal {
		j := journal.New(dbopen.OpenMemory(t, dbopen.WithSchema(journal.Schema)))
		opts = append(opts, console.WithSink(j))
		svcOpts = append(svcOpts, WithJournal(j))
	}
	c, err := console.New(d, d.Host(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return New(c, d, svcOpts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_LogAndPage(t *testing.T) {
	s := newService(t, true)
	h := s.Routes()

	rec := do(t, h, http.MethodPost, "/api/log", `{"values":[42,"hi",[1,"a",null],{"x":1}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var got record.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Method != record.MethodLog || got.Text != `42 "hi" [1, "a", null] Object {x: 1}` {
		t.Errorf("record %+v", got)
	}
	if !strings.HasPrefix(got.ID, "rec_") || got.Seq != 1 {
		t.Errorf("id %q seq %d", got.ID, got.Seq)
	}

	page := do(t, h, http.MethodGet, "/", "")
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), `class="root number"`) {
		t.Errorf("page %d: %s", page.Code, page.Body)
	}
	if page.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers missing")
	}

	md := do(t, h, http.MethodGet, "/console.md", "")
	if md.Code != http.StatusOK || !strings.Contains(md.Body.String(), "Object {x: 1}") {
		t.Errorf("markdown %d: %q", md.Code, md.Body)
	}
}

func TestHTTP_LogHTML(t *testing.T) {
	s := newService(t, false)
	rec := do(t, s.Routes(), http.MethodPost, "/api/log?format=html", `<img src="a.png"> <BR>`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var got record.Record
	json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got.Values) != 2 || got.Values[0].Kind != inspect.KindElement {
		t.Fatalf("values %+v", got.Values)
	}
	if got.Text != `<img src="a.png"></img> <br></br>` {
		t.Errorf("text %q", got.Text)
	}
}

func TestHTTP_BreakInspectRecordsClear(t *testing.T) {
	s := newService(t, true)
	h := s.Routes()

	do(t, h, http.MethodPost, "/api/log", `{"method":"info","values":[1]}`)
	if rec := do(t, h, http.MethodPost, "/api/break", ""); rec.Code != http.StatusCreated {
		t.Fatalf("break %d", rec.Code)
	}

	insp := do(t, h, http.MethodPost, "/api/inspect", `{"values":[{"b":1,"a":2}]}`)
	var ir struct {
		Nodes []inspect.Node `json:"nodes"`
	}
	if err := json.Unmarshal(insp.Body.Bytes(), &ir); err != nil {
		t.Fatal(err)
	}
	if len(ir.Nodes) != 1 || ir.Nodes[0].Props[0].Key != "a" {
		t.Errorf("inspect %s", insp.Body)
	}

	list := do(t, h, http.MethodGet, "/api/records", "")
	var lr struct {
		Records []record.Record `json:"records"`
	}
	json.Unmarshal(list.Body.Bytes(), &lr)
	if len(lr.Records) != 2 || lr.Records[0].Method != record.MethodInfo || lr.Records[1].Method != record.MethodBreak {
		t.Fatalf("records %s", list.Body)
	}

	filtered := do(t, h, http.MethodGet, "/api/records?method=break&limit=5", "")
	json.Unmarshal(filtered.Body.Bytes(), &lr)
	if len(lr.Records) != 1 {
		t.Errorf("filtered %s", filtered.Body)
	}

	if rec := do(t, h, http.MethodPost, "/api/clear", ""); rec.Code != http.StatusOK {
		t.Fatalf("clear %d", rec.Code)
	}
	if s.dom.Len() != 0 {
		t.Error("surface not cleared")
	}
	list = do(t, h, http.MethodGet, "/api/records", "")
	json.Unmarshal(list.Body.Bytes(), &lr)
	if len(lr.Records) != 0 {
		t.Errorf("journal not cleared: %s", list.Body)
	}
}

func TestHTTP_NoopMethods(t *testing.T) {
	s := newService(t, true)
	h := s.Routes()
	for _, m := range []string{MethodWarn, MethodGroup, MethodGroupEnd} {
		rec := do(t, h, http.MethodPost, "/api/log", `{"method":"`+m+`","values":[1]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d: %s", m, rec.Code, rec.Body)
		}
		var got IgnoredResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.Status != "ignored" || got.Method != m {
			t.Errorf("%s: response %+v", m, got)
		}
	}
	if s.dom.Len() != 0 || s.console.Seq() != 0 {
		t.Errorf("no-op methods rendered: len %d seq %d", s.dom.Len(), s.console.Seq())
	}
}

func TestHTTP_RecordByIDAndHealth(t *testing.T) {
	s := newService(t, true)
	h := s.Routes()

	rec := do(t, h, http.MethodPost, "/api/log", `{"values":["x"]}`)
	var logged record.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &logged); err != nil {
		t.Fatal(err)
	}

	got := do(t, h, http.MethodGet, "/api/records/"+logged.ID, "")
	if got.Code != http.StatusOK {
		t.Fatalf("get %d: %s", got.Code, got.Body)
	}
	var fetched record.Record
	if err := json.Unmarshal(got.Body.Bytes(), &fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.ID != logged.ID || fetched.Text != `"x"` {
		t.Errorf("fetched %+v", fetched)
	}
	if miss := do(t, h, http.MethodGet, "/api/records/rec_nope", ""); miss.Code != http.StatusNotFound {
		t.Errorf("missing record %d", miss.Code)
	}

	health := do(t, h, http.MethodGet, "/health", "")
	var hl Health
	if err := json.Unmarshal(health.Body.Bytes(), &hl); err != nil {
		t.Fatal(err)
	}
	if hl.Status != "ok" || hl.Records != 1 || hl.Seq != 1 || hl.Journaled == nil || *hl.Journaled != 1 {
		t.Errorf("health %s", health.Body)
	}
}

func TestHTTP_Errors(t *testing.T) {
	s := newService(t, false)
	h := s.Routes()
	if rec := do(t, h, http.MethodPost, "/api/log", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/log", `{"method":"trace","values":[1]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad method %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/records", ""); rec.Code != http.StatusNotFound {
		t.Errorf("records without journal %d", rec.Code)
	}
	health := do(t, h, http.MethodGet, "/health", "")
	if health.Code != http.StatusOK {
		t.Errorf("health %d", health.Code)
	}
	body, _ := io.ReadAll(health.Body)
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("health %s", body)
	}
}

func TestParseFragment(t *testing.T) {
	vals, err := ParseFragment(`hello <b>x</b>  `)
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 2 || vals[0] != "hello" {
		t.Fatalf("vals %v", vals)
	}
	if inspect.Classify(vals[1]) != inspect.KindElement {
		t.Errorf("second value kind %v", inspect.Classify(vals[1]))
	}
}

// --- MCP ---

var testMCPImpl = &mcp.Implementation{Name: "domconsole-test", Version: "0.1.0"}

func mcpSession(t *testing.T, s *Service) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	s.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCall(t *testing.T, session *mcp.ClientSession, name string, args any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text, result.IsError
}

func TestMCP_Tools(t *testing.T) {
	s := newService(t, true)
	session := mcpSession(t, s)

	text, isErr := mcpCall(t, session, "console_log", map[string]any{"values": []any{"hi", 2}})
	if isErr {
		t.Fatalf("console_log: %s", text)
	}
	var rec record.Record
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Text != `"hi" 2` {
		t.Errorf("text %q", rec.Text)
	}

	if text, isErr := mcpCall(t, session, "console_break", map[string]any{}); isErr {
		t.Fatalf("console_break: %s", text)
	}

	text, _ = mcpCall(t, session, "console_inspect", map[string]any{"values": []any{[]any{1, true}}})
	if !strings.Contains(text, `"dataType":"array"`) {
		t.Errorf("inspect %s", text)
	}

	text, _ = mcpCall(t, session, "console_records", map[string]any{})
	var lr struct {
		Records []record.Record `json:"records"`
	}
	json.Unmarshal([]byte(text), &lr)
	if len(lr.Records) != 2 {
		t.Errorf("records %s", text)
	}

	if text, isErr := mcpCall(t, session, "console_clear", map[string]any{}); isErr {
		t.Fatalf("console_clear: %s", text)
	}
	if s.dom.Len() != 0 {
		t.Error("surface not cleared")
	}
}

func TestMCP_RecordAndRequestID(t *testing.T) {
	var logs bytes.Buffer
	d := dom.New()
	j := journal.New(dbopen.OpenMemory(t, dbopen.WithSchema(journal.Schema)))
	c, err := console.New(d, d.Host(), console.WithSink(j))
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	session := mcpSession(t, New(c, d, WithJournal(j), WithLogger(logger)))

	text, _ := mcpCall(t, session, "console_log", map[string]any{"values": []any{7}})
	var logged record.Record
	if err := json.Unmarshal([]byte(text), &logged); err != nil {
		t.Fatal(err)
	}
	text, isErr := mcpCall(t, session, "console_record", map[string]any{"id": logged.ID})
	if isErr || !strings.Contains(text, logged.ID) {
		t.Errorf("console_record: %s", text)
	}
	if _, isErr := mcpCall(t, session, "console_record", map[string]any{"id": "rec_nope"}); !isErr {
		t.Error("missing record should be a tool error")
	}
	if !strings.Contains(logs.String(), "request_id="+MCPRequestPrefix) {
		t.Errorf("tool calls not tagged with a request id:\n%s", logs.String())
	}
}

func TestMCP_ToolErrors(t *testing.T) {
	s := newService(t, false)
	session := mcpSession(t, s)

	if _, isErr := mcpCall(t, session, "console_records", map[string]any{}); !isErr {
		t.Error("records without journal should be a tool error")
	}
	if _, isErr := mcpCall(t, session, "console_log", map[string]any{"method": "trace", "values": []any{1}}); !isErr {
		t.Error("unknown method should be a tool error")
	}
}

func TestMCP_ListTools(t *testing.T) {
	session := mcpSession(t, newService(t, false))
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"console_log": true, "console_break": true, "console_inspect": true, "console_records": true, "console_record": true, "console_clear": true}
	for _, tool := range res.Tools {
		delete(want, tool.Name)
	}
	if len(want) != 0 {
		t.Errorf("missing tools %v", want)
	}
}

package adwatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "adwatch-test", Version: "0.1.0"}

func mcpSession(t *testing.T, e *Engine) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	e.RegisterMCP(srv)

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

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_Selectors(t *testing.T) {
	e := newTestEngine(t, testConfig(), &fakeSession{}, nil)
	session := mcpSession(t, e)

	text := mcpCallTool(t, session, "adwatch_selectors", map[string]any{})

	var resp struct {
		Targets map[string][]string `json:"targets"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Targets["ad_card"]) == 0 {
		t.Errorf("no ad_card selectors in %v", resp.Targets)
	}
}

func TestMCP_Run(t *testing.T) {
	sess := &fakeSession{
		html:   func(int) string { return listingPage(3) },
		extent: func(int) float64 { return 1000 },
	}
	e := newTestEngine(t, testConfig(), sess, nil)
	session := mcpSession(t, e)

	text := mcpCallTool(t, session, "adwatch_run", map[string]any{
		"url": "https://ads.example/library",
	})

	var res Result
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !res.Success {
		t.Errorf("success = false: %s", text)
	}
	if len(res.Records) != 3 {
		t.Errorf("records = %d, want 3", len(res.Records))
	}
}

func TestMCP_Checkpoint(t *testing.T) {
	e := newTestEngine(t, testConfig(), &fakeSession{}, nil)
	session := mcpSession(t, e)

	text := mcpCallTool(t, session, "adwatch_checkpoint", map[string]any{})

	var resp struct {
		Present bool `json:"present"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Present {
		t.Error("fresh store should report no checkpoint")
	}
}

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/memorygame/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Memory Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Memory Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Find every matching pair of cards. Cards start face down; flip two per turn.

AVAILABLE TOOLS:
- create_session: Start a new game (easy, medium or hard)
- list_sessions: List active sessions
- get_session: Get session details with the board
- game_state: Show the board
- flip_card: Flip one card by index or id
- reset_unmatched: Turn two mismatched cards back immediately
- reset_game: Start a new round, optionally at another difficulty
- list_difficulties: Show the available difficulties
- game_instructions: Rules and strategy

Mismatched cards turn back by themselves after a short delay.`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func difficultyProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"easy", "medium", "hard"},
		"description": desc,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"difficulty": difficultyProperty("Difficulty of the first round (optional, server default otherwise)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, score and timer",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "flip_card",
		Description: "Flip a face-down card. Pass either index (board position) or card_id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"index": map[string]interface{}{
					"type":        "integer",
					"description": "0-based board position of the card",
				},
				"card_id": map[string]interface{}{
					"type":        "string",
					"description": "Card id as returned in the game state",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleFlip)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_unmatched",
		Description: "Turn the two mismatched face-up cards back down now",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleResetUnmatched)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Start a new round with a fresh shuffled deck",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"difficulty": difficultyProperty("New difficulty (optional, keeps the current one otherwise)"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_difficulties",
		Description: "List selectable difficulties and their deck sizes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListDifficulties)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the game and tips for playing it well",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	difficulty, _ := args["difficulty"].(string)

	body := map[string]string{}
	if difficulty != "" {
		body["difficulty"] = difficulty
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nDifficulty: %s\n\n%s",
		session.ID, session.Difficulty, formatGameView(session.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		progress := ""
		if s.State != nil {
			progress = fmt.Sprintf(", %d/%d pairs", s.State.Score, s.State.Pairs)
		}
		fmt.Fprintf(&result, "- %s (%s%s, Created: %s)\n",
			s.ID, s.Difficulty, progress, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var view service.GameView
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameView(&view)), nil
}

func (c *Client) handleFlip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	body := map[string]interface{}{}
	if cardID, ok := args["card_id"].(string); ok && cardID != "" {
		body["card_id"] = cardID
	} else if index, ok := args["index"].(float64); ok {
		body["index"] = int(index)
	} else {
		return mcp.NewToolResultError("index or card_id is required"), nil
	}

	var result service.FlipResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/flip"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFlipResult(&result)), nil
}

func (c *Client) handleResetUnmatched(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var view service.GameView
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset-unmatched"), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameView(&view)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	var body interface{}
	if difficulty, _ := args["difficulty"].(string); difficulty != "" {
		body = map[string]string{"difficulty": difficulty}
	}

	var response struct {
		Message string            `json:"message"`
		State   *service.GameView `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), body, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameView(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListDifficulties(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var difficulties []service.DifficultyInfo
	if err := c.apiCall(ctx, "GET", "/api/difficulties", nil, &difficulties); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Difficulties:\n\n")
	for _, d := range difficulties {
		marker := ""
		if d.Default {
			marker = " (default)"
		}
		fmt.Fprintf(&result, "• %s%s: %d pairs, %d cards\n", d.Name, marker, d.Pairs, d.Cards)
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Memory Game - Complete Instructions

GAME OBJECTIVE:
Every card has exactly one twin. Find all pairs in as few attempts as possible.

GAME MECHANICS:
• Flip: choose a face-down card; its value is revealed
• Match: two face-up cards with the same value stay up for good (+1 score)
• Mismatch: two different values turn back down after a short delay
• While two mismatched cards are showing, further flips are ignored
  (use reset_unmatched to skip the wait)
• Attempts: every successful flip counts as one attempt
• Timer: starts with the first flip, stops when the last pair is found

BOARD LEGEND:
  [##]   face-down card
  [ 3]   face-up card showing value 3
  (3)    matched card
Positions are numbered row by row from 0.

DIFFICULTIES:
  easy    2 pairs  (4 cards)
  medium  4 pairs  (8 cards)
  hard    8 pairs  (16 cards)

STRATEGY:
1. Remember every value you have seen and where.
2. Flip an unknown card first. If its twin is already known, flip the twin.
3. Otherwise flip a second unknown card; you learn two values per miss.
4. A perfect memory never needs more than one miss per new value.

TOOLS:
• create_session  -> returns a session id
• flip_card       -> session_id + index (or card_id)
• game_state      -> current board
• reset_game      -> new round, optional difficulty

Good luck!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nDifficulty: %s\nCreated: %s\nLast access: %s\n\n%s",
		session.ID, session.Difficulty,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		session.LastAccessedAt.Format("2006-01-02 15:04:05"),
		formatGameView(session.State))
}

// boardColumns picks a near-square layout for n cards
func boardColumns(n int) int {
	cols := 1
	for cols*cols < n {
		cols++
	}
	return cols
}

func formatCard(c service.CardView) string {
	switch {
	case c.Matched:
		return fmt.Sprintf("(%2d)", c.Value)
	case c.FaceUp:
		return fmt.Sprintf("[%2d]", c.Value)
	default:
		return "[##]"
	}
}

func formatGameView(view *service.GameView) string {
	if view == nil {
		return "No game state available"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Difficulty: %s | Pairs: %d/%d | Attempts: %d | Time: %s\n\n",
		view.Difficulty, view.Score, view.Pairs, view.Attempts, view.Duration)

	cols := boardColumns(len(view.Cards))
	for i, c := range view.Cards {
		fmt.Fprintf(&result, "%2d %s", c.Index, formatCard(c))
		if (i+1)%cols == 0 || i == len(view.Cards)-1 {
			result.WriteString("\n")
		} else {
			result.WriteString("   ")
		}
	}
	result.WriteString(formatCounts(view.Cards))

	switch {
	case view.Completed:
		fmt.Fprintf(&result, "\n🎉 COMPLETED in %d attempts (%s)", view.Attempts, view.Duration)
	case view.TwoFlippedWithoutMatch:
		result.WriteString("\nTwo cards do not match; they turn back shortly (or call reset_unmatched).")
	}

	return result.String()
}

// formatCounts lists how often each card was turned face up, by index
func formatCounts(cards []service.CardView) string {
	counts := make([]string, len(cards))
	for i, c := range cards {
		counts[i] = strconv.Itoa(c.Count)
	}
	return "Flips: " + strings.Join(counts, " ") + "\n"
}

func formatFlipResult(result *service.FlipResult) string {
	var out strings.Builder

	if result.Success && result.Card != nil {
		fmt.Fprintf(&out, "✓ Flipped card %d: value %d\n", result.Card.Index, result.Card.Value)
	} else {
		fmt.Fprintf(&out, "✗ Flip ignored: %s\n", result.Message)
	}

	for _, e := range result.Events {
		if e.Type == service.EventFlip || e.Type == service.EventIgnored {
			continue
		}
		fmt.Fprintf(&out, "• %s: %s\n", e.Type, e.Message)
	}

	out.WriteString("\n")
	out.WriteString(formatGameView(result.State))
	return out.String()
}

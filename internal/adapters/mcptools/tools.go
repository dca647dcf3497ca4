// Package mcptools exposes read-only progress views as MCP tools. Each tool
// is a struct with its dependencies injected, a Definition and a Handle.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	service "github.com/okian/fires/internal/app"
	"github.com/okian/fires/internal/domain/circle"
	"github.com/okian/fires/internal/domain/feed"
	"github.com/okian/fires/internal/domain/lifecycle"
	"github.com/okian/fires/internal/domain/model"
)

// Dependencies are the service reads the tools render.
type Dependencies interface {
	Progress(ctx context.Context, user string) (service.Progress, error)
	Feed(ctx context.Context, user string, opts feed.Options) (feed.Feed, error)
	Circle(ctx context.Context, user string, mode circle.Mode) (circle.Circle, error)
	Engagement(ctx context.Context, id string) (model.Engagement, error)
}

// NewServer builds an MCP server with every tool registered.
func NewServer(deps Dependencies, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"fires",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	progress := NewProgressTool(deps)
	s.AddTool(progress.Definition(), progress.Handle)

	feedTool := NewFeedTool(deps)
	s.AddTool(feedTool.Definition(), feedTool.Handle)

	circleTool := NewCircleTool(deps)
	s.AddTool(circleTool.Definition(), circleTool.Handle)

	engagement := NewEngagementTool(deps)
	s.AddTool(engagement.Definition(), engagement.Handle)

	return s
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// ProgressTool handles the fires_progress MCP tool.
type ProgressTool struct {
	deps Dependencies
}

// NewProgressTool creates a ProgressTool.
func NewProgressTool(deps Dependencies) *ProgressTool {
	return &ProgressTool{deps: deps}
}

// Definition returns the MCP tool definition for fires_progress.
func (t *ProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("fires_progress",
		mcp.WithDescription("Show a user's FIRES zones, predictability score, growth edge, strength and active markers."),
		mcp.WithString("user", mcp.Required(), mcp.Description("User id")),
	)
}

// Handle processes the fires_progress tool call.
func (t *ProgressTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user := strings.TrimSpace(req.GetString("user", ""))
	if user == "" {
		return mcp.NewToolResultError("user is required"), nil
	}
	p, err := t.deps.Progress(ctx, user)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load progress: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Progress for %s\n\n", user)
	fmt.Fprintf(&sb, "- **Predictability**: %d/100 (%d connections)\n", p.Score, p.Connections)
	fmt.Fprintf(&sb, "- **Growth edge**: %s (%s)\n", p.GrowthEdge.Dimension, p.GrowthEdge.Zone)
	fmt.Fprintf(&sb, "- **Strength**: %s (%s)\n", p.Strength.Dimension, p.Strength.Zone)
	fmt.Fprintf(&sb, "- **Source**: %s, recorded %s\n\n", p.Source, p.RecordedAt.Format("2006-01-02 15:04"))

	sb.WriteString("### Zones\n\n")
	for _, e := range p.Breakdown.Entries() {
		fmt.Fprintf(&sb, "- %s: %s\n", e.Dimension, e.Zone)
	}

	if len(p.Markers) > 0 {
		sb.WriteString("\n### Active markers\n\n")
		for _, m := range p.Markers {
			fmt.Fprintf(&sb, "- %s (%s): %d → %d, now %d, %.0f%% complete\n",
				m.Label, m.Direction, m.Baseline, m.Target, m.Current, m.PercentComplete)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// FeedTool handles the fires_feed MCP tool.
type FeedTool struct {
	deps Dependencies
}

// NewFeedTool creates a FeedTool.
func NewFeedTool(deps Dependencies) *FeedTool {
	return &FeedTool{deps: deps}
}

// Definition returns the MCP tool definition for fires_feed.
func (t *FeedTool) Definition() mcp.Tool {
	return mcp.NewTool("fires_feed",
		mcp.WithDescription("Show the newest shared priorities, proofs, shares and predictions visible to a user."),
		mcp.WithString("user", mcp.Required(), mcp.Description("Viewer user id")),
		mcp.WithBoolean("circle", mcp.Description("Include content from the viewer's circle (default true)")),
		mcp.WithBoolean("own", mcp.Description("Include the viewer's own content (default true)")),
	)
}

// Handle processes the fires_feed tool call.
func (t *FeedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user := strings.TrimSpace(req.GetString("user", ""))
	if user == "" {
		return mcp.NewToolResultError("user is required"), nil
	}
	f, err := t.deps.Feed(ctx, user, feed.Options{
		FilterByCircle: boolArg(req, "circle", true),
		IncludeOwn:     boolArg(req, "own", true),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build feed: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Feed for %s\n\n", user)
	if len(f.Items) == 0 {
		sb.WriteString("Nothing shared yet.\n")
	}
	for _, it := range f.Items {
		who := it.AuthorID
		if it.IsOwn {
			who = "you"
		}
		fmt.Fprintf(&sb, "- [%s] **%s** by %s: %s\n", it.Timestamp.Format("2006-01-02"), it.Kind, who, it.Body)
	}
	if len(f.Omitted) > 0 {
		kinds := make([]string, len(f.Omitted))
		for i, k := range f.Omitted {
			kinds[i] = string(k)
		}
		fmt.Fprintf(&sb, "\n_Unavailable right now: %s_\n", strings.Join(kinds, ", "))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// CircleTool handles the fires_circle MCP tool.
type CircleTool struct {
	deps Dependencies
}

// NewCircleTool creates a CircleTool.
func NewCircleTool(deps Dependencies) *CircleTool {
	return &CircleTool{deps: deps}
}

// Definition returns the MCP tool definition for fires_circle.
func (t *CircleTool) Definition() mcp.Tool {
	return mcp.NewTool("fires_circle",
		mcp.WithDescription("List the people in a user's circle and how each is connected."),
		mcp.WithString("user", mcp.Required(), mcp.Description("User id")),
	)
}

// Handle processes the fires_circle tool call.
func (t *CircleTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user := strings.TrimSpace(req.GetString("user", ""))
	if user == "" {
		return mcp.NewToolResultError("user is required"), nil
	}
	c, err := t.deps.Circle(ctx, user, circle.ModeDisplay)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to resolve circle: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Circle of %s (%d)\n\n", user, c.Len())
	for _, m := range c.Members {
		var tags []string
		switch {
		case m.Mutual:
			tags = append(tags, "mutual")
		case m.Outgoing:
			tags = append(tags, "following")
		case m.Incoming:
			tags = append(tags, "follower")
		}
		if m.Muted {
			tags = append(tags, "muted")
		}
		fmt.Fprintf(&sb, "- %s (%s)\n", m.UserID, strings.Join(tags, ", "))
	}
	if c.Partial {
		sb.WriteString("\n_Some connections could not be loaded._\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// EngagementTool handles the fires_engagement MCP tool.
type EngagementTool struct {
	deps Dependencies
}

// NewEngagementTool creates an EngagementTool.
func NewEngagementTool(deps Dependencies) *EngagementTool {
	return &EngagementTool{deps: deps}
}

// Definition returns the MCP tool definition for fires_engagement.
func (t *EngagementTool) Definition() mcp.Tool {
	return mcp.NewTool("fires_engagement",
		mcp.WithDescription("Show where a twelve-week coaching engagement stands: week, phase and status."),
		mcp.WithString("engagement_id", mcp.Required(), mcp.Description("Engagement id")),
	)
}

// Handle processes the fires_engagement tool call.
func (t *EngagementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("engagement_id", ""))
	if id == "" {
		return mcp.NewToolResultError("engagement_id is required"), nil
	}
	e, err := t.deps.Engagement(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load engagement: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Engagement %s\n\n", e.ID)
	fmt.Fprintf(&sb, "- **Client**: %s\n", e.ClientID)
	fmt.Fprintf(&sb, "- **Coach**: %s\n", e.CoachID)
	fmt.Fprintf(&sb, "- **Week**: %d of %d\n", e.Week, model.FinalWeek)
	fmt.Fprintf(&sb, "- **Phase**: %s (week %d of %d)\n", e.Phase(), lifecycle.WeekInPhase(e.Week), model.WeeksPerPhase)
	fmt.Fprintf(&sb, "- **Status**: %s\n", e.Status)
	if e.EndDate != nil {
		fmt.Fprintf(&sb, "- **Ended**: %s\n", e.EndDate.Format("2006-01-02"))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

package streamserver

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers the stream tools on the given MCP server:
// stream_essential, stream_info, stream_cancel, stream_history.
func RegisterTools(server *mcp.Server, svc *Service) {
	registerStreamEssential(server, svc)
	registerStreamInfo(server, svc)
	registerStreamCancel(server, svc)
	registerStreamHistory(server, svc)
}

func registerStreamEssential(server *mcp.Server, svc *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "stream_essential",
		Description: "Fast first step for a YouTube video: returns what is needed to start playback (title, uploader, duration, muxed/audio/video-only stream URLs, DASH/HLS manifests) in a single request, and starts loading the remaining metadata in the background. Use stream_info afterwards for description, counts and related videos.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input StreamEssentialInput) (*mcp.CallToolResult, *EssentialOutput, error) {
		if input.URL == "" {
			return nil, nil, errors.New("url is required")
		}
		out, err := svc.Essential(ctx, input.URL)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func registerStreamInfo(server *mcp.Server, svc *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "stream_info",
		Description: "Complete metadata for a YouTube video: playback data plus description (Markdown when it has links), views, likes, upload date, category, tags, channel avatar/subscribers/verified badge and related videos. Fields that could not be extracted are listed in failures instead of failing the call. If the background load is still running after wait_seconds, returns pending=true with the playback data only.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input StreamInfoInput) (*mcp.CallToolResult, *StreamInfoOutput, error) {
		if input.URL == "" {
			return nil, nil, errors.New("url is required")
		}
		out, err := svc.Info(ctx, input.URL, time.Duration(input.WaitSeconds)*time.Second, input.Refresh)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func registerStreamCancel(server *mcp.Server, svc *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "stream_cancel",
		Description: "Cancel the background metadata load started by stream_essential or stream_info for a link. A load that has not started yet never reaches YouTube; a running one is abandoned and its result discarded.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input StreamCancelInput) (*mcp.CallToolResult, *StreamCancelOutput, error) {
		if input.URL == "" {
			return nil, nil, errors.New("url is required")
		}
		out, err := svc.Cancel(input.URL)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func registerStreamHistory(server *mcp.Server, svc *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "stream_history",
		Description: "List recent lookups, newest first, with phase timings, field failure counts and errors. Optionally filter by provider.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input StreamHistoryInput) (*mcp.CallToolResult, *StreamHistoryOutput, error) {
		out, err := svc.History(ctx, input.Provider, input.Limit)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

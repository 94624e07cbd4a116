package raglab

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/raglab/raglab/config"
)

const Version = "1.0.0"

// NewServer builds the MCP server exposing the question-answering
// tools over the client.
func NewServer(ctx context.Context, cfg *config.Config) (*server.MCPServer, *Client, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create client failed, err: %w", err)
	}

	s := server.NewMCPServer(
		"raglab",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("This is a retrieval-augmented question answering server. Upload documents, then ask questions in adaptive, agentic or direct mode."),
	)

	s.AddTool(
		mcp.NewToolWithRawSchema("ask", "Answer a question from the knowledge base. Mode adaptive routes by query type, agentic runs a tool-calling loop, direct forces one technique.", askSchema()),
		handleAsk(client),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema("upload-document", "Split a document into chunks, embed them and store them in the knowledge base", uploadDocumentSchema()),
		handleUploadDocument(client),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema("search-chunks", "Perform semantic search across stored chunks using a natural language query", searchChunksSchema()),
		handleSearchChunks(client),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema("list-techniques", "List the registered retrieval technique names", listTechniquesSchema()),
		handleListTechniques(client),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema("list-chunks", "List stored knowledge chunks", listChunksSchema()),
		handleListChunks(client),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema("delete-chunk", "Remove a stored chunk by its identifier", deleteChunkSchema()),
		handleDeleteChunk(client),
	)

	return s, client, nil
}

func askSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "The question to answer"},
    "mode": {"type": "string", "enum": ["adaptive", "agentic", "direct"], "description": "Execution mode, default adaptive"},
    "technique": {"type": "string", "description": "Technique name for direct mode"},
    "namespace": {"type": "string", "description": "Knowledge base namespace"},
    "top_k": {"type": "integer", "description": "Number of chunks to retrieve"},
    "max_iterations": {"type": "integer", "description": "Agent loop cap for agentic mode"}
  },
  "required": ["query"]
}`)
}

func uploadDocumentSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "text": {"type": "string", "description": "The document text to ingest"},
    "title": {"type": "string", "description": "Document title stored in chunk metadata"},
    "namespace": {"type": "string", "description": "Knowledge base namespace"}
  },
  "required": ["text"]
}`)
}

func searchChunksSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "The search query"},
    "namespace": {"type": "string", "description": "Knowledge base namespace"},
    "top_k": {"type": "integer", "description": "Number of chunks to return"}
  },
  "required": ["query"]
}`)
}

func listTechniquesSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func listChunksSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func deleteChunkSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "id": {"type": "string", "description": "The chunk identifier"}
  },
  "required": ["id"]
}`)
}

func handleAsk(client *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		req := Request{}
		if query, ok := args["query"].(string); ok {
			req.Query = query
		}
		if mode, ok := args["mode"].(string); ok {
			req.Mode = mode
		}
		if tech, ok := args["technique"].(string); ok {
			req.Technique = tech
		}
		if ns, ok := args["namespace"].(string); ok {
			req.Namespace = ns
		}
		if topK, ok := args["top_k"].(float64); ok {
			req.TopK = int(topK)
		}
		if maxIter, ok := args["max_iterations"].(float64); ok {
			req.MaxIterations = int(maxIter)
		}

		resp, err := client.Run(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
		}
		return jsonResult(resp)
	}
}

func handleUploadDocument(client *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		text, _ := args["text"].(string)
		title, _ := args["title"].(string)
		namespace, _ := args["namespace"].(string)

		docs, err := client.CreateChunksFromText(ctx, text, title, namespace)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("upload document failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("stored %d chunks", len(docs))), nil
	}
}

func handleSearchChunks(client *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		query, _ := args["query"].(string)
		namespace, _ := args["namespace"].(string)
		topK := 0
		if v, ok := args["top_k"].(float64); ok {
			topK = int(v)
		}

		results, err := client.SearchChunks(ctx, query, namespace, topK)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search chunks failed: %v", err)), nil
		}
		return jsonResult(results)
	}
}

func handleListTechniques(client *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(client.Techniques())
	}
}

func handleListChunks(client *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docs, err := client.ListChunks(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list chunks failed: %v", err)), nil
		}
		// vectors are bulky and useless to the caller
		for i := range docs {
			docs[i].Vector = nil
		}
		return jsonResult(docs)
	}
}

func handleDeleteChunk(client *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		id, _ := args["id"].(string)
		if id == "" {
			return mcp.NewToolResultError("id is required"), nil
		}
		if err := client.DeleteChunk(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("delete chunk failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("deleted chunk %s", id)), nil
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/autogmail/internal/apiclient"
	"github.com/teemow/autogmail/internal/backend"
	"github.com/teemow/autogmail/internal/endpoint"
	"github.com/teemow/autogmail/internal/server"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	// Register write tools too so every tool is documented
	all, err := newDocsServer(false)
	if err != nil {
		return err
	}
	readOnly, err := newDocsServer(true)
	if err != nil {
		return err
	}

	serverTools := all.ListTools()
	safe := readOnly.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	write := make(map[string]bool)
	for name, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
		if _, ok := safe[name]; !ok {
			write[name] = true
		}
	}

	markdown := generateToolsMarkdown(tools, write)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

// newDocsServer registers the tools against a backend client that is never called.
func newDocsServer(readOnly bool) (*mcpserver.MCPServer, error) {
	api, err := apiclient.New(apiclient.Config{BaseURL: endpoint.Resolve("", "")})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	serverContext, err := server.NewServerContext(context.Background(), server.Options{
		Backend:     backend.NewClient(api),
		AllowWrites: !readOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return nil, err
	}
	return mcpSrv, nil
}

func generateToolsMarkdown(tools []mcp.Tool, write map[string]bool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running `autogmail mcp`.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	// Group tools by category
	toolsByCategory := groupToolsByCategory(tools)

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	sb.WriteString("## Authentication and Safety\n\n")
	sb.WriteString("Tools call the backend with the token saved by `autogmail login`. ")
	sb.WriteString("Over the streamable HTTP transport a client may send its own `Authorization: Bearer` header instead.\n\n")
	sb.WriteString("Tools marked **write** are only available when the server runs with `--yolo`.\n\n")

	// Generate documentation for each category
	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool, write[tool.Name]))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}

	return categories
}

func getCategoryFromToolName(name string) string {
	switch {
	case strings.HasPrefix(name, "autogmail_upload"):
		return "Knowledge Base Tools"
	case strings.HasPrefix(name, "autogmail_"):
		return "Mail Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool, write bool) string {
	var sb strings.Builder

	if write {
		sb.WriteString(fmt.Sprintf("### %s (write)\n\n", tool.Name))
	} else {
		sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))
	}

	// Description
	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	// Input schema
	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			prop := tool.InputSchema.Properties[name]
			isRequired := contains(tool.InputSchema.Required, name)

			requiredStr := "optional"
			if isRequired {
				requiredStr = "required"
			}

			// Get property type and description from the property map
			propMap, ok := prop.(map[string]interface{})
			if !ok {
				continue
			}

			propType := getPropertyType(propMap)

			sb.WriteString(fmt.Sprintf("- `%s` (%s): ", name, requiredStr))

			// Get description
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", propType))
			}

			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	return slices.Contains(slice, item)
}

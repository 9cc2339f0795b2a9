package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"apflow-mcp/internal/approval"
)

// Error codes surfaced in tool results.
const (
	CodeInvalidParams = "INVALID_PARAMS"
	CodeQueryFailed   = "QUERY_FAILED"
	CodeUnknownTool   = "UNKNOWN_TOOL"
)

// ToolResult is the execution envelope every tool returns.
type ToolResult struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
	Metadata  Metadata    `json:"metadata"`
}

// Metadata carries per-call execution details.
type Metadata struct {
	ExecutionTimeMs int64 `json:"executionTimeMs"`
}

type toolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Meta      *CallContext           `json:"_meta,omitempty"`
}

func (s *Server) callTool(params json.RawMessage) (interface{}, interface{}) {
	var call toolCall
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, map[string]interface{}{"code": -32602, "message": "Invalid params"}
	}

	caller := call.Meta
	if caller == nil {
		caller = &CallContext{}
	}
	ctx := context.Background()
	started := time.Now()

	data, display, errCode, err := s.dispatch(ctx, call.Name, call.Arguments, caller)
	if errCode == CodeUnknownTool {
		return nil, map[string]interface{}{"code": -32601, "message": "Tool not found"}
	}

	result := ToolResult{
		Success:  err == nil,
		Metadata: Metadata{ExecutionTimeMs: time.Since(started).Milliseconds()},
	}
	if err != nil {
		result.Error = err.Error()
		result.ErrorCode = errCode
		display = formatError(call.Name, err)
		log.Warn().Err(err).Str("tool", call.Name).Str("errorCode", errCode).Msg("Tool call failed")
	} else {
		result.Data = data
	}

	payload := map[string]interface{}{
		"result":  result,
		"display": display,
	}

	return map[string]interface{}{
		"content": []interface{}{
			map[string]interface{}{
				"type": "text",
				"text": marshalIndent(payload),
			},
		},
		"isError": err != nil,
	}, nil
}

// dispatch validates parameters and runs the named analyzer. Validation
// failures surface before any I/O happens.
func (s *Server) dispatch(ctx context.Context, name string, args map[string]interface{}, caller *CallContext) (interface{}, interface{}, string, error) {
	switch name {
	case "analyze_rejection_risk":
		projectID, itemType, itemID, err := requireItemArgs(args)
		if err != nil {
			return nil, nil, CodeInvalidParams, err
		}
		caller.defaultProject(projectID)
		report, err := s.risk.Analyze(ctx, projectID, itemType, itemID)
		if err != nil {
			return nil, nil, CodeQueryFailed, err
		}
		return report, formatRisk(report), "", nil

	case "route_approval":
		projectID, itemType, itemID, err := requireItemArgs(args)
		if err != nil {
			return nil, nil, CodeInvalidParams, err
		}
		urgency, _ := args["urgency"].(string)
		caller.defaultProject(projectID)
		report, err := s.router.Route(ctx, projectID, itemType, itemID, urgency)
		if err != nil {
			return nil, nil, CodeQueryFailed, err
		}
		return report, formatRoute(report), "", nil

	case "predict_timeline":
		projectID, err := requireString(args, "project_id")
		if err != nil {
			return nil, nil, CodeInvalidParams, err
		}
		itemType, err := requireItemType(args)
		if err != nil {
			return nil, nil, CodeInvalidParams, err
		}
		assignedTo, _ := args["assigned_to"].(string)
		var value *float64
		if v, ok := args["value"].(float64); ok {
			value = &v
		}
		caller.defaultProject(projectID)
		report, err := s.timeline.Predict(ctx, projectID, itemType, assignedTo, value)
		if err != nil {
			return nil, nil, CodeQueryFailed, err
		}
		return report, formatTimeline(report), "", nil

	case "escalate_stalled_items":
		projectID, err := requireString(args, "project_id")
		if err != nil {
			return nil, nil, CodeInvalidParams, err
		}
		itemType := ""
		if raw, ok := args["item_type"].(string); ok && raw != "" {
			t, valid := approval.ParseItemType(raw)
			if !valid {
				return nil, nil, CodeInvalidParams, fmt.Errorf("unsupported item_type: %s", raw)
			}
			itemType = string(t)
		}
		threshold := approval.DefaultOverdueThresholdDays
		if v, ok := args["days_overdue_threshold"].(float64); ok {
			threshold = int(v)
		}
		caller.defaultProject(projectID)
		report, err := s.escalator.Escalate(ctx, projectID, itemType, threshold)
		if err != nil {
			return nil, nil, CodeQueryFailed, err
		}
		return report, formatEscalation(report), "", nil
	}

	return nil, nil, CodeUnknownTool, fmt.Errorf("unknown tool: %s", name)
}

func requireItemArgs(args map[string]interface{}) (string, approval.ItemType, string, error) {
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return "", "", "", err
	}
	itemType, err := requireItemType(args)
	if err != nil {
		return "", "", "", err
	}
	itemID, err := requireString(args, "item_id")
	if err != nil {
		return "", "", "", err
	}
	return projectID, itemType, itemID, nil
}

func requireItemType(args map[string]interface{}) (approval.ItemType, error) {
	raw, err := requireString(args, "item_type")
	if err != nil {
		return "", err
	}
	t, ok := approval.ParseItemType(raw)
	if !ok {
		return "", fmt.Errorf("unsupported item_type: %s", raw)
	}
	return t, nil
}

func requireString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}
	return v, nil
}

func marshalIndent(v interface{}) string {
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

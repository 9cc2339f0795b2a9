package mcp

func (s *Server) listTools() interface{} {
	itemTypeSchema := map[string]interface{}{
		"type":        "string",
		"enum":        []string{"change_order", "invoice", "submittal", "rfi", "payment_application", "purchase_order"},
		"description": "The approval item type",
	}

	return map[string]interface{}{
		"tools": []interface{}{
			map[string]interface{}{
				"name": "analyze_rejection_risk",
				"description": "Predict the probability that an approval item will be rejected and why. " +
					"Returns a capped probability, a risk level, ranked rejection reasons, missing " +
					"required documents and actionable recommendations, all backed by the project's " +
					"approval history. Read-only; safe to call repeatedly.",
				"category": "analysis",
				"inputSchema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"project_id": map[string]interface{}{"type": "string", "description": "The project ID"},
						"item_type":  itemTypeSchema,
						"item_id":    map[string]interface{}{"type": "string", "description": "The item ID"},
					},
					"required": []string{"project_id", "item_type", "item_id"},
				},
			},
			map[string]interface{}{
				"name": "route_approval",
				"description": "Determine the required chain of approver roles for an item from its value tier, " +
					"score the matching team members (availability, workload, historical response time) and " +
					"recommend the best individual to route to, with alternates and an estimated completion date. " +
					"Read-only.",
				"category": "routing",
				"inputSchema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"project_id": map[string]interface{}{"type": "string", "description": "The project ID"},
						"item_type":  itemTypeSchema,
						"item_id":    map[string]interface{}{"type": "string", "description": "The item ID"},
						"urgency": map[string]interface{}{
							"type":        "string",
							"enum":        []string{"normal", "high", "critical"},
							"description": "Optional: urgency level; high/critical enables priority routing",
						},
					},
					"required": []string{"project_id", "item_type", "item_id"},
				},
			},
			map[string]interface{}{
				"name": "predict_timeline",
				"description": "Predict how long approval will take for an item type on a project, blending the " +
					"historical average (outliers beyond 30 days excluded) with the assignee's personal record " +
					"and a value-based adjustment. Returns predicted hours, a bucketed confidence, a " +
					"three-stage breakdown and recommendations. Read-only.",
				"category": "analysis",
				"inputSchema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"project_id":  map[string]interface{}{"type": "string", "description": "The project ID"},
						"item_type":   itemTypeSchema,
						"assigned_to": map[string]interface{}{"type": "string", "description": "Optional: user ID of the intended approver"},
						"value":       map[string]interface{}{"type": "number", "description": "Optional: monetary value of the item"},
					},
					"required": []string{"project_id", "item_type"},
				},
			},
			map[string]interface{}{
				"name": "escalate_stalled_items",
				"description": "Scan for approval items that have been pending beyond the overdue threshold, assign " +
					"priorities, walk the role hierarchy to an escalation target, update item status and send " +
					"consolidated notifications (one per recipient). " +
					"MUTATES STATE: item statuses are transitioned and escalation history is written. " +
					"The caller MUST confirm with the user before invoking this tool.",
				"category":             "escalation",
				"requiresConfirmation": true,
				"annotations": map[string]interface{}{
					"destructiveHint": true,
					"readOnlyHint":    false,
				},
				"inputSchema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"project_id": map[string]interface{}{"type": "string", "description": "The project ID"},
						"item_type":  itemTypeSchema,
						"days_overdue_threshold": map[string]interface{}{
							"type":        "integer",
							"description": "Minimum age in days before a pending item counts as stalled (default: 3)",
						},
					},
					"required": []string{"project_id"},
				},
			},
		},
	}
}

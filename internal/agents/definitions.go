package agents

// Agent names. These are the fixed keys under which results are stored;
// renaming one is a schema migration for every downstream consumer.
const (
	AgentBilling          = "billing"
	AgentContacts         = "contacts"
	AgentContractInfo     = "contractInfo"
	AgentInsurance        = "insurance"
	AgentSiteInfo         = "siteInfo"
	AgentScheduleOfValues = "scheduleOfValues"
	AgentRedFlags         = "redFlags"
)

// Definition describes one extraction agent: its stored name, the system
// prompt sent with the document text, and the JSON Schema its output must
// satisfy. All fields are nullable; unknown data must come back as null,
// never fabricated.
type Definition struct {
	Name         string
	SystemPrompt string
	Schema       map[string]any
}

const promptPreamble = "You are a construction-contract analyst. The document text uses " +
	"'---PAGE BREAK---' to mark page boundaries (pages are 1-indexed). " +
	"Return ONLY JSON matching the provided schema. If a value is not stated " +
	"in the document, use null. Never guess or fabricate."

// Definitions returns the seven extraction agents in their fixed order.
func Definitions() []Definition {
	return []Definition{
		{
			Name: AgentBilling,
			SystemPrompt: promptPreamble + " Extract billing terms: payment schedule, " +
				"retainage percentage, invoicing cadence and billing contact.",
			Schema: objectSchema(map[string]any{
				"paymentTermsDays":   nullable("integer"),
				"retainagePercent":   nullable("number"),
				"billingCadence":     nullable("string"),
				"billingContactName": nullable("string"),
				"billingEmail":       nullable("string"),
			}),
		},
		{
			Name: AgentContacts,
			SystemPrompt: promptPreamble + " Extract the named project contacts with their " +
				"roles, phone numbers and email addresses.",
			Schema: objectSchema(map[string]any{
				"contacts": map[string]any{
					"type": []string{"array", "null"},
					"items": objectSchema(map[string]any{
						"name":  nullable("string"),
						"role":  nullable("string"),
						"phone": nullable("string"),
						"email": nullable("string"),
					}),
				},
			}),
		},
		{
			Name: AgentContractInfo,
			SystemPrompt: promptPreamble + " Extract the core contract facts: project name, " +
				"general contractor, contract value, and start/completion dates (YYYY-MM-DD).",
			Schema: objectSchema(map[string]any{
				"projectName":       nullable("string"),
				"generalContractor": nullable("string"),
				"contractValue":     nullable("number"),
				"startDate":         nullable("string"),
				"completionDate":    nullable("string"),
				"contractNumber":    nullable("string"),
			}),
		},
		{
			Name: AgentInsurance,
			SystemPrompt: promptPreamble + " Extract insurance requirements: coverage types, " +
				"limits, additional-insured and waiver-of-subrogation clauses.",
			Schema: objectSchema(map[string]any{
				"generalLiabilityLimit": nullable("number"),
				"umbrellaLimit":         nullable("number"),
				"additionalInsured":     nullable("boolean"),
				"waiverOfSubrogation":   nullable("boolean"),
				"certificateHolder":     nullable("string"),
			}),
		},
		{
			Name: AgentSiteInfo,
			SystemPrompt: promptPreamble + " Extract jobsite details: site address, city, " +
				"state, zip, and any site access or working-hours constraints.",
			Schema: objectSchema(map[string]any{
				"address":          nullable("string"),
				"city":             nullable("string"),
				"state":            nullable("string"),
				"zip":              nullable("string"),
				"accessNotes":      nullable("string"),
				"workingHours":     nullable("string"),
				"parkingAvailable": nullable("boolean"),
			}),
		},
		{
			Name: AgentScheduleOfValues,
			SystemPrompt: promptPreamble + " Extract the schedule of values: line items with " +
				"description and amount, plus the stated total.",
			Schema: objectSchema(map[string]any{
				"lineItems": map[string]any{
					"type": []string{"array", "null"},
					"items": objectSchema(map[string]any{
						"description": nullable("string"),
						"amount":      nullable("number"),
					}),
				},
				"total": nullable("number"),
			}),
		},
		{
			Name: AgentRedFlags,
			SystemPrompt: promptPreamble + " Identify contract red flags: liquidated damages, " +
				"pay-if-paid clauses, onerous indemnification, no-damage-for-delay terms. " +
				"List each with a short quote and severity (low, medium, high).",
			Schema: objectSchema(map[string]any{
				"flags": map[string]any{
					"type": []string{"array", "null"},
					"items": objectSchema(map[string]any{
						"clause":   nullable("string"),
						"quote":    nullable("string"),
						"severity": nullable("string"),
					}),
				},
			}),
		},
	}
}

func objectSchema(props map[string]any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func nullable(typ string) map[string]any {
	return map[string]any{"type": []string{typ, "null"}}
}

package api

import (
	"github.com/parasol-ins/parasol/internal/config"
	"github.com/parasol-ins/parasol/pkg/openapi"
)

// BuildSpec serializes the service's OpenAPI document for the native
// /openapi.json endpoint.
func BuildSpec(cfg *config.Config) ([]byte, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(map[string]*openapi.Schema{
		"Product": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                {Type: "string", Format: "uuid"},
				"name":              {Type: "string"},
				"category":          {Type: "string"},
				"premium_drops":     {Type: "string", Description: "Premium in drops, exact integer as string"},
				"payout_drops":      {Type: "string", Description: "Payout in drops, exact integer as string"},
				"short_description": {Type: "string"},
				"coverage_summary":  {Type: "string"},
				"description_md":    {Type: "string"},
				"active":            {Type: "boolean"},
			},
		},
		"Policy": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         {Type: "string", Format: "uuid"},
				"user_id":    {Type: "string"},
				"product_id": {Type: "string", Format: "uuid"},
				"escrow_id":  {Type: "string", Description: "Ledger escrow holding the payout"},
				"status":     {Type: "string", Enum: []any{"ACTIVE", "CANCELLED", "LAPSED"}},
			},
		},
		"Claim": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                    {Type: "string", Format: "uuid"},
				"policy_id":             {Type: "string", Format: "uuid"},
				"status":                {Type: "string", Enum: []any{"SUBMITTED", "APPROVED", "REJECTED", "MANUAL", "PAID"}},
				"incident_date":         {Type: "string", Format: "date-time"},
				"details":               {Type: "string"},
				"evidence_url":          {Type: "string", Description: "Opaque evidence storage key"},
				"ai_decision":           {Type: "string"},
				"rejected_reason":       {Type: "string"},
				"payout_drops_snapshot": {Type: "string"},
				"payout_tx_hash":        {Type: "string", Description: "Ledger transaction hash, set when PAID"},
			},
		},
		"SweepResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"attempted": {Type: "integer"},
				"paid":      {Type: "integer"},
				"failed":    {Type: "integer"},
			},
		},
	})

	addPaths(spec)

	return openapi.MarshalJSON(spec)
}

func addPaths(spec *openapi.Spec) {
	claimRef := jsonContent("#/components/schemas/Claim")
	productRef := jsonContent("#/components/schemas/Product")
	policyRef := jsonContent("#/components/schemas/Policy")

	spec.Paths["/claims"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List the caller's claims, most recent first",
			Tags:    []string{"claims"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Paged claims"},
			},
		},
		Post: &openapi.Operation{
			Summary:     "Submit a claim with evidence",
			Description: "Multipart form: policy_id, incident_date, details, file. Evaluation and, where approved, payout run in the same request.",
			Tags:        []string{"claims"},
			Responses: map[int]*openapi.Response{
				201: {Description: "Claim created", Content: claimRef},
				400: {Ref: "#/components/responses/BadRequest"},
				404: {Ref: "#/components/responses/NotFound"},
			},
		},
	}

	spec.Paths["/claims/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Get one of the caller's claims",
			Tags:       []string{"claims"},
			Parameters: []*openapi.Parameter{idParam()},
			Responses: map[int]*openapi.Response{
				200: {Description: "Claim", Content: claimRef},
				404: {Ref: "#/components/responses/NotFound"},
			},
		},
	}

	spec.Paths["/claims/{id}/evaluate"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:    "Re-run automated evaluation on a SUBMITTED claim",
			Tags:       []string{"claims"},
			Parameters: []*openapi.Parameter{idParam()},
			Responses: map[int]*openapi.Response{
				200: {Description: "Evaluated claim", Content: claimRef},
				409: {Ref: "#/components/responses/Conflict"},
				502: {Description: "Evaluation partner unavailable; claim unchanged"},
			},
		},
	}

	spec.Paths["/claims/{id}/payout"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:    "Retry escrow settlement for an APPROVED claim",
			Tags:       []string{"claims"},
			Parameters: []*openapi.Parameter{idParam()},
			Responses: map[int]*openapi.Response{
				200: {Description: "Paid claim", Content: claimRef},
				409: {Ref: "#/components/responses/Conflict"},
				502: {Description: "Escrow gateway failure; claim remains APPROVED"},
			},
		},
	}

	spec.Paths["/claims/sweep"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Retry payout across all APPROVED claims",
			Description: "Crosses claim owners; restricted to configured operator subjects.",
			Tags:        []string{"claims"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Sweep outcome", Content: jsonContent("#/components/schemas/SweepResult")},
				403: {Description: "Caller is not a configured operator"},
			},
		},
	}

	spec.Paths["/products"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List products",
			Tags:    []string{"products"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Paged products"},
			},
		},
		Post: &openapi.Operation{
			Summary: "Create a product",
			Tags:    []string{"products"},
			Responses: map[int]*openapi.Response{
				201: {Description: "Product created", Content: productRef},
				400: {Ref: "#/components/responses/BadRequest"},
			},
		},
	}

	spec.Paths["/products/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Get a product",
			Tags:       []string{"products"},
			Parameters: []*openapi.Parameter{idParam()},
			Responses: map[int]*openapi.Response{
				200: {Description: "Product", Content: productRef},
				404: {Ref: "#/components/responses/NotFound"},
			},
		},
		Put: &openapi.Operation{
			Summary:    "Update a product",
			Tags:       []string{"products"},
			Parameters: []*openapi.Parameter{idParam()},
			Responses: map[int]*openapi.Response{
				200: {Description: "Updated product", Content: productRef},
				404: {Ref: "#/components/responses/NotFound"},
			},
		},
		Delete: &openapi.Operation{
			Summary:    "Delete a product",
			Tags:       []string{"products"},
			Parameters: []*openapi.Parameter{idParam()},
			Responses: map[int]*openapi.Response{
				204: {Description: "Deleted"},
				404: {Ref: "#/components/responses/NotFound"},
			},
		},
	}

	spec.Paths["/policies"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List the caller's policies",
			Tags:    []string{"policies"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Paged policies"},
			},
		},
		Post: &openapi.Operation{
			Summary:     "Purchase a policy",
			Description: "Creates the ledger escrow for the product payout, then persists the policy.",
			Tags:        []string{"policies"},
			Responses: map[int]*openapi.Response{
				201: {Description: "Policy created", Content: policyRef},
				404: {Ref: "#/components/responses/NotFound"},
				502: {Description: "Escrow gateway failure"},
			},
		},
	}

	spec.Paths["/policies/{id}/cancel"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:    "Cancel a policy and release its escrow",
			Tags:       []string{"policies"},
			Parameters: []*openapi.Parameter{idParam()},
			Responses: map[int]*openapi.Response{
				200: {Description: "Cancelled policy", Content: policyRef},
				409: {Ref: "#/components/responses/Conflict"},
			},
		},
	}

	spec.Paths["/storage"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:     "List evidence blobs",
			Description: "Crosses evidence owners; restricted to configured operator subjects.",
			Tags:        []string{"storage"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Blob metadata page"},
				403: {Description: "Caller is not a configured operator"},
			},
		},
	}
}

func idParam() *openapi.Parameter {
	return &openapi.Parameter{
		Name:     "id",
		In:       "path",
		Required: true,
		Schema:   &openapi.Schema{Type: "string", Format: "uuid"},
	}
}

func jsonContent(ref string) map[string]*openapi.MediaType {
	return map[string]*openapi.MediaType{
		"application/json": {Schema: &openapi.Schema{Ref: ref}},
	}
}

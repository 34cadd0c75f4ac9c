package graph

import (
	"net/http"

	"github.com/goccy/go-json"
	graphql "github.com/graph-gophers/graphql-go"

	"github.com/Skryldev/graphql-todo/logging"
	"github.com/Skryldev/graphql-todo/metrics"
)

// MaxBodyBytes caps the size of a GraphQL request body.
const MaxBodyBytes = 1 << 20

// Request is the JSON body of a GraphQL-over-HTTP POST.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Handler executes GraphQL requests against Schema. Every error in a response
// is counted by its extensions code and logged on the request logger.
type Handler struct {
	Schema *graphql.Schema
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid GraphQL request body", http.StatusBadRequest)
		return
	}

	resp := h.Schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)

	for _, qe := range resp.Errors {
		code, _ := qe.Extensions["code"].(string)
		metrics.RecordGraphQLError(code)
		logging.Ctx(r.Context()).Debug().
			Str("component", "graph").
			Str("operation", req.OperationName).
			Str("code", code).
			Msg(qe.Message)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
	"github.com/MohamedIjlal27/SFA-sub000/internal/validation"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
	// Code names the catalog error so the UI can branch without parsing Detail.
	Code string `json:"code,omitempty"`
}

type problemType struct {
	typeURI string
	title   string
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]problemType{
	http.StatusUnauthorized:        {"urn:catalogsync:errors:unauthorized", "Unauthorized"},
	http.StatusBadRequest:          {"urn:catalogsync:errors:bad-request", "Bad Request"},
	http.StatusNotFound:            {"urn:catalogsync:errors:not-found", "Not Found"},
	http.StatusInternalServerError: {"urn:catalogsync:errors:internal-error", "Internal Server Error"},
	http.StatusUnprocessableEntity: {"urn:catalogsync:errors:validation-error", "Validation Error"},
	http.StatusServiceUnavailable:  {"urn:catalogsync:errors:service-unavailable", "Service Unavailable"},
}

func lookupProblemType(status int) problemType {
	if pt, ok := problemTypes[status]; ok {
		return pt
	}
	return problemType{"urn:catalogsync:errors:unknown", http.StatusText(status)}
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblem(w, r, status, "", detail)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	pt := lookupProblemType(status)
	writeJSONProblem(w, status, Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		Code:     code,
	})
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	pt := lookupProblemType(http.StatusUnprocessableEntity)
	writeJSONProblem(w, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: Problem{
			Type:     pt.typeURI,
			Title:    pt.title,
			Status:   http.StatusUnprocessableEntity,
			Detail:   detail,
			Instance: r.URL.Path,
			Code:     "invalid_request",
		},
		Errors: errs,
	})
}

func writeJSONProblem(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "component", "api", "error", err)
	}
}

// MapCatalogError converts catalog errors to Problem Details responses.
func MapCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		WriteProblemWithErrors(w, r, "Request contains invalid fields", verrs)
	case errors.Is(err, types.ErrInvalidRequest):
		writeProblem(w, r, http.StatusBadRequest, "invalid_request", "Invalid request")
	case errors.Is(err, types.ErrAuthenticationMissing):
		writeProblem(w, r, http.StatusUnauthorized, "authentication_missing", "No catalog credentials; log in first")
	case errors.Is(err, types.ErrSessionExpired):
		writeProblem(w, r, http.StatusUnauthorized, "session_expired", "Catalog session expired; log in again")
	case errors.Is(err, types.ErrProductNotFound):
		writeProblem(w, r, http.StatusNotFound, "product_not_found", "Product not found")
	case errors.Is(err, types.ErrCatalogUnavailable):
		writeProblem(w, r, http.StatusServiceUnavailable, "catalog_unavailable", "Catalog unavailable: no network and nothing stored for this page")
	case errors.Is(err, types.ErrRemoteUnavailable):
		writeProblem(w, r, http.StatusServiceUnavailable, "remote_unavailable", "Catalog server unreachable")
	case errors.Is(err, types.ErrLocalStoreUnavailable):
		writeProblem(w, r, http.StatusServiceUnavailable, "local_store_unavailable", "Local catalog unavailable")
	default:
		// Never expose internal error details to client
		slog.Error("unmapped catalog error", "component", "api", "path", r.URL.Path, "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

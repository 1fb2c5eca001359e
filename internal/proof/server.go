package proof

import (
	"encoding/json"
	"log"
	"net/http"
)

// Handler serves proof requests over HTTP, backed by any Generator.
// Failures are reported in-band as {"success": false, "error": ...} so
// callers distinguish a rejected request from a dead service.
func Handler(gen Generator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeResponse(w, http.StatusBadRequest, &Response{Error: "invalid request body"})
			return
		}

		calldata, err := gen.Generate(r.Context(), &req)
		if err != nil {
			log.Printf("[proof] lot %d: %v", req.LotID, err)
			writeResponse(w, http.StatusUnprocessableEntity, &Response{Error: err.Error()})
			return
		}
		writeResponse(w, http.StatusOK, &Response{Success: true, Calldata: calldata})
	})
}

func writeResponse(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[proof] response write failed: %v", err)
	}
}

// Command records-api-mock is a throwaway stand-in for the upstream
// records service, for local development without credentials. It speaks
// the same login and pagination protocol with canned data.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
)

type user struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type record struct {
	UserID    string `json:"user_id"`
	Category  string `json:"category"`
	MediaType string `json:"media_type"`
	Status    string `json:"status"`
}

var users = []user{
	{ID: "u1", Name: "Asha Rao", Phone: "9000000001"},
	{ID: "u2", Name: "Ravi Kumar", Phone: "+91 90000 00002"},
	{ID: "u3", Name: "Meena Iyer", Phone: "09000000003"},
	{ID: "u4", Name: "Vikram Singh", Phone: ""},
}

var records = []record{
	{UserID: "u1", Category: "story", MediaType: "text", Status: "published"},
	{UserID: "u1", Category: "story", MediaType: "image", Status: "published"},
	{UserID: "u2", Category: "report", MediaType: "text", Status: "draft"},
	{UserID: "u3", Category: "story", MediaType: "video", Status: "published"},
	{UserID: "unknown-owner", Category: "story", MediaType: "text", Status: "published"},
}

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", handleLogin)
	mux.HandleFunc("/users", paginated(users))
	mux.HandleFunc("/records", paginated(records))

	log.Printf("records-api-mock listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// handleLogin accepts any credentials and returns an unsigned token whose
// exp claim is one hour out. Clients only read the claim, they do not
// verify the signature against a mock.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	claims := base64.RawURLEncoding.EncodeToString(fmt.Appendf(nil,
		`{"exp":%d}`, time.Now().Add(time.Hour).Unix()))
	token := header + "." + claims + "."

	writeJSON(w, map[string]string{"token": token})
}

func paginated[T any](items []T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		page := queryInt(r, "page", 1)
		size := queryInt(r, "page_size", 2)
		start := (page - 1) * size
		end := start + size
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}

		writeJSON(w, map[string]any{
			"items":    items[start:end],
			"has_more": end < len(items),
		})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

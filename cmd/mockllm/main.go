// mockllm is a local OpenAI-compatible stand-in for development: it
// answers every chat completion with a canned reply and returns
// deterministic embeddings, so the server can run without credentials.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/raglab/raglab/common/logger"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8089", "listen address")
	dimensions := flag.Int("dimensions", 8, "embedding vector size")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", handleChat)
	mux.HandleFunc("/v1/embeddings", handleEmbeddings(*dimensions))

	logger.Infof("mockllm listening on %s", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "mockllm: %v\n", err)
		os.Exit(1)
	}
}

func handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}

	writeJSON(w, map[string]interface{}{
		"id":     "mock-1",
		"object": "chat.completion",
		"model":  req.Model,
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message": map[string]interface{}{
				"role":    "assistant",
				"content": replyFor(prompt),
			},
		}},
	})
}

// replyFor keeps the classifier working against the mock: category
// prompts get a category, everything else gets an echo.
func replyFor(prompt string) string {
	if strings.Contains(prompt, "Classify the following question") {
		return "simple"
	}
	return "mock answer: " + firstLine(prompt)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

func handleEmbeddings(dimensions int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data := make([]map[string]interface{}, len(req.Input))
		for i, text := range req.Input {
			data[i] = map[string]interface{}{
				"object":    "embedding",
				"index":     i,
				"embedding": embed(text, dimensions),
			}
		}
		writeJSON(w, map[string]interface{}{"object": "list", "model": req.Model, "data": data})
	}
}

// embed hashes runes into a fixed-size vector so identical texts get
// identical embeddings.
func embed(text string, dimensions int) []float64 {
	v := make([]float64, dimensions)
	for i, r := range strings.ToLower(text) {
		v[i%dimensions] += float64(r%31) / 31
	}
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] /= sum
	}
	return v
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

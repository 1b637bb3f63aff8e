//go:build ignore

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

const sampleCV = "Ana García. Desarrolladora backend. " +
	"Maestría en Inteligencia Artificial en la Universidad de Buenos Aires. " +
	"Cinco años de experiencia con Go, PostgreSQL y Kubernetes."

// Pretty print JSON helper
func prettyPrint(raw []byte) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func step(title, method, url string, body interface{}) {
	color.Yellow("\n%s", title)
	resp, raw, err := sendRequest(method, url, body)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 300 {
		color.Red("Status: %s", resp.Status)
	} else {
		color.Green("Status: %s", resp.Status)
	}
	prettyPrint(raw)
}

func main() {
	color.Cyan("🚀 Starting résumé RAG API smoke test\n")

	step("1. Ingest the sample résumé", "POST", "/documents", map[string]string{"documentId": "smoke-cv", "text": sampleCV})
	step("2. Namespace stats", "GET", "/namespace/stats", nil)
	step("3. Ask a covered question", "POST", "/answer", map[string]string{"question": "¿Dónde estudió Ana?", "sourceDocId": "smoke-cv"})
	step("4. Ask with an inline document filter", "POST", "/answer", map[string]string{"question": "/doc:smoke-cv ¿Qué tecnologías usa?"})
	step("5. Conversation history", "GET", "/history?limit=5", nil)
	step("6. Validation error", "POST", "/answer", map[string]string{"question": ""})
}

// Command stub-engine runs a fake whisper-style transcription server
// for local development. It accepts the same multipart requests the
// remote engine backend sends and answers with canned text.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type transcriptionResponse struct {
	Text        string    `json:"text"`
	Language    string    `json:"language"`
	ProcessedAt time.Time `json:"processed_at"`
}

var (
	replyText = flag.String("text", "this is a stub transcription of the submitted audio", "Text returned for every request")
	delay     = flag.Duration("delay", 200*time.Millisecond, "Simulated processing time per request")
	port      = flag.Int("port", 9000, "Port to listen on")
)

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	model := r.FormValue("model")
	language := r.FormValue("language")
	beamSize := r.FormValue("beam_size")
	temperature := r.FormValue("temperature")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("request: file=%s size=%d model=%s language=%s beam_size=%s temperature=%s",
		header.Filename, len(audioData), model, language, beamSize, temperature)

	// Simulate processing time
	time.Sleep(*delay)

	response := transcriptionResponse{
		Text:        *replyText,
		Language:    language,
		ProcessedAt: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func main() {
	flag.Parse()

	http.HandleFunc("/transcribe", transcribeHandler)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("stub transcription server listening on %s", addr)
	log.Printf("point the remote engine at http://localhost%s/transcribe", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal("server failed to start:", err)
	}
}

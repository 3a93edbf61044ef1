package transcribe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OpenAITranscriber uses any OpenAI-compatible /audio/transcriptions API,
// including local whisper servers that mimic it.
type OpenAITranscriber struct {
	baseURL  string
	apiKey   string
	model    string
	language string
	client   *http.Client

	// Stream requests server-sent partial results (gpt-4o-transcribe models).
	Stream bool
}

type openaiTranscriptionResponse struct {
	Text string `json:"text"`
}

type openaiStreamEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
	Text  string `json:"text"`
}

// NewOpenAITranscriber creates a transcriber for an OpenAI-compatible API.
func NewOpenAITranscriber(baseURL, apiKey, model, language string, timeout time.Duration) *OpenAITranscriber {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "whisper-1"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAITranscriber{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		model:    model,
		language: language,
		client:   &http.Client{Timeout: timeout},
	}
}

func (o *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string) (<-chan Result, error) {
	if !o.Stream {
		return Async(RecognizerFunc(o.Recognize)).Transcribe(ctx, audioPath)
	}

	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		resp, err := o.post(ctx, audioPath, true)
		if err != nil {
			ch <- Result{Err: err}
			return
		}
		defer resp.Body.Close()
		o.readStream(ctx, resp.Body, ch)
	}()
	return ch, nil
}

// Recognize uploads the audio and waits for the full transcript.
func (o *OpenAITranscriber) Recognize(ctx context.Context, audioPath string) (string, error) {
	resp, err := o.post(ctx, audioPath, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result openaiTranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

func (o *OpenAITranscriber) post(ctx context.Context, audioPath string, stream bool) (*http.Response, error) {
	body, contentType, err := o.form(audioPath, stream)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("transcription error %d: %s", resp.StatusCode, string(b))
	}
	return resp, nil
}

func (o *OpenAITranscriber) form(audioPath string, stream bool) (io.Reader, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}

	fields := map[string]string{
		"model":           o.model,
		"response_format": "json",
	}
	if o.language != "" {
		fields["language"] = o.language
	}
	if stream {
		fields["stream"] = "true"
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// readStream parses server-sent events: text deltas become partial results,
// the done event becomes the final one.
func (o *OpenAITranscriber) readStream(ctx context.Context, r io.Reader, ch chan<- Result) {
	var partial strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}

		var ev openaiStreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			ch <- Result{Err: fmt.Errorf("decode stream event: %w", err)}
			return
		}
		switch ev.Type {
		case "transcript.text.delta":
			partial.WriteString(ev.Delta)
			select {
			case ch <- Result{Text: partial.String()}:
			case <-ctx.Done():
				return
			}
		case "transcript.text.done":
			ch <- Result{Text: strings.TrimSpace(ev.Text), Final: true}
			return
		}
	}
	if err := scanner.Err(); err != nil {
		ch <- Result{Err: fmt.Errorf("read stream: %w", err)}
		return
	}
	ch <- Result{Err: fmt.Errorf("stream ended without a final transcript")}
}

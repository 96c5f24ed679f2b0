package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/callwarden/callwarden/internal/logger"
)

func newTestClient(serverURL, model string) *Client {
	return NewClient(serverURL, model, 5*time.Second, logger.Nop())
}

func TestCheckAvailability(t *testing.T) {
	t.Run("ModelInstalled", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/tags" {
				t.Errorf("Unexpected path: %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"models": []map[string]string{{"name": "llama3.2:1b"}},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL, "llama3.2:1b")
		if !client.CheckAvailability(context.Background()) {
			t.Error("Expected available when model is installed")
		}
		if !client.Available() {
			t.Error("Available should report the probe result")
		}
	})

	t.Run("ModelFamilyPrefixMatches", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"models": []map[string]string{{"name": "llama3.2:3b-instruct"}},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL, "llama3.2:1b")
		if !client.CheckAvailability(context.Background()) {
			t.Error("A model of the same family should satisfy the probe")
		}
	})

	t.Run("MissingModelPullSucceeds", func(t *testing.T) {
		var pulled bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/tags":
				json.NewEncoder(w).Encode(map[string]interface{}{
					"models": []map[string]string{{"name": "mistral:7b"}},
				})
			case "/api/pull":
				var req map[string]interface{}
				json.NewDecoder(r.Body).Decode(&req)
				if req["name"] != "llama3.2:1b" {
					t.Errorf("Pull should request the configured model, got %v", req["name"])
				}
				pulled = true
				w.WriteHeader(http.StatusOK)
			default:
				t.Errorf("Unexpected path: %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := newTestClient(server.URL, "llama3.2:1b")
		if !client.CheckAvailability(context.Background()) {
			t.Error("Successful pull should yield availability")
		}
		if !pulled {
			t.Error("Expected a pull attempt for the missing model")
		}
	})

	t.Run("MissingModelPullFails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/tags":
				json.NewEncoder(w).Encode(map[string]interface{}{"models": []map[string]string{}})
			case "/api/pull":
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))
		defer server.Close()

		client := newTestClient(server.URL, "llama3.2:1b")
		if client.CheckAvailability(context.Background()) {
			t.Error("Failed pull should yield unavailable")
		}
	})

	t.Run("ProviderDown", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // immediately unreachable

		client := newTestClient(server.URL, "llama3.2:1b")
		if client.CheckAvailability(context.Background()) {
			t.Error("Unreachable provider should yield unavailable")
		}
	})

	t.Run("NonSuccessStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := newTestClient(server.URL, "llama3.2:1b")
		if client.CheckAvailability(context.Background()) {
			t.Error("Non-success status should yield unavailable")
		}
	})
}

func TestSetModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]string{{"name": "llama3.2:1b"}, {"name": "mistral:7b"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, "llama3.2:1b")
	if !client.CheckAvailability(context.Background()) {
		t.Fatal("Expected available")
	}

	client.SetModel("mistral:7b")
	if client.Available() {
		t.Error("SetModel must force unavailability until the next probe")
	}
	if client.Model() != "mistral:7b" {
		t.Errorf("Model not updated, got %s", client.Model())
	}

	if !client.CheckAvailability(context.Background()) {
		t.Error("Expected available again after re-probe")
	}
}

func TestEvaluate(t *testing.T) {
	validInner := Response{
		Alerts: []Alert{{
			RuleID:     "DNC-001",
			Title:      "Customer requested no further calls",
			Severity:   "high",
			Confidence: 92,
			Evidence:   Evidence{Quote: "stop calling me", StartChar: 7, EndChar: 22},
		}},
		SuggestedNextLines: []Suggestion{{Text: "Confirm DNC placement", Confidence: 88}},
	}

	newGenerateServer := func(t *testing.T, handler func(w http.ResponseWriter, req generateRequest)) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/tags":
				json.NewEncoder(w).Encode(map[string]interface{}{
					"models": []map[string]string{{"name": "llama3.2:1b"}},
				})
			case "/api/generate":
				var req generateRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("Failed to decode generate request: %v", err)
				}
				handler(w, req)
			default:
				t.Errorf("Unexpected path: %s", r.URL.Path)
			}
		}))
	}

	t.Run("FailsFastWhenUnavailable", func(t *testing.T) {
		client := newTestClient("http://localhost:1", "llama3.2:1b")
		_, err := client.Evaluate(context.Background(), "{}", "hello", "rules")
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("Expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("Success", func(t *testing.T) {
		server := newGenerateServer(t, func(w http.ResponseWriter, req generateRequest) {
			if req.Stream {
				t.Error("Stream must be false")
			}
			if req.Format != "json" {
				t.Errorf("Format must be json, got %q", req.Format)
			}
			if req.Options.Temperature != 0.1 || req.Options.TopP != 0.9 || req.Options.NumPredict != 2048 {
				t.Errorf("Unexpected decoding options: %+v", req.Options)
			}
			if req.System == "" {
				t.Error("System prompt must embed the rendered catalog")
			}
			inner, _ := json.Marshal(validInner)
			json.NewEncoder(w).Encode(generateResponse{Response: string(inner)})
		})
		defer server.Close()

		client := newTestClient(server.URL, "llama3.2:1b")
		if !client.CheckAvailability(context.Background()) {
			t.Fatal("Expected available")
		}

		resp, err := client.Evaluate(context.Background(), "{}", "Please stop calling me", "rendered rules")
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if len(resp.Alerts) != 1 || resp.Alerts[0].RuleID != "DNC-001" {
			t.Errorf("Unexpected alerts: %+v", resp.Alerts)
		}
		if len(resp.SuggestedNextLines) != 1 {
			t.Errorf("Unexpected suggestions: %+v", resp.SuggestedNextLines)
		}
	})

	t.Run("UnparsableModelOutput", func(t *testing.T) {
		server := newGenerateServer(t, func(w http.ResponseWriter, req generateRequest) {
			json.NewEncoder(w).Encode(generateResponse{Response: "Sure! Here are the violations I found:"})
		})
		defer server.Close()

		client := newTestClient(server.URL, "llama3.2:1b")
		client.CheckAvailability(context.Background())

		_, err := client.Evaluate(context.Background(), "{}", "hello", "rules")
		var protocolErr *ProtocolError
		if !errors.As(err, &protocolErr) {
			t.Fatalf("Expected ProtocolError, got %v", err)
		}
	})

	t.Run("NonSuccessStatus", func(t *testing.T) {
		server := newGenerateServer(t, func(w http.ResponseWriter, req generateRequest) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		defer server.Close()

		client := newTestClient(server.URL, "llama3.2:1b")
		client.CheckAvailability(context.Background())

		_, err := client.Evaluate(context.Background(), "{}", "hello", "rules")
		var protocolErr *ProtocolError
		if !errors.As(err, &protocolErr) {
			t.Fatalf("Expected ProtocolError, got %v", err)
		}
	})
}

func TestSystemPromptStable(t *testing.T) {
	rendered := "# TCPA Compliance Rules v1.0.0\n"
	if systemPrompt(rendered) != systemPrompt(rendered) {
		t.Error("System prompt must be stable for a fixed catalog")
	}
}

package guild

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestREST(t *testing.T, handler http.Handler) *REST {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewREST(RESTConfig{BaseURL: server.URL, Token: "test-token"})
	if err != nil {
		t.Fatalf("NewREST: %v", err)
	}
	return client
}

func TestNewRESTValidation(t *testing.T) {
	if _, err := NewREST(RESTConfig{Token: "x"}); err == nil {
		t.Error("missing BaseURL accepted")
	}
	if _, err := NewREST(RESTConfig{BaseURL: "http://localhost"}); err == nil {
		t.Error("missing Token accepted")
	}
}

func TestFetchGuildStructure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/guilds/123/roles", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bot test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`[
			{"id":"123","name":"@everyone","permissions":"104320577","position":0},
			{"id":"456","name":"mods","permissions":"8","position":1,"hoist":true,"managed":false}
		]`))
	})
	mux.HandleFunc("/guilds/123/channels", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"700","type":4,"name":"General","position":0},
			{"id":"701","type":0,"name":"chat","position":0,"parent_id":"700",
			 "permission_overwrites":[{"id":"456","type":0,"allow":"1024","deny":"0"}]}
		]`))
	})

	client := newTestREST(t, mux)
	structure, err := client.FetchGuildStructure(context.Background(), "123")
	if err != nil {
		t.Fatalf("FetchGuildStructure: %v", err)
	}

	if structure.EveryoneRoleID != "123" {
		t.Errorf("EveryoneRoleID = %q, want guild ID", structure.EveryoneRoleID)
	}
	if len(structure.Roles) != 2 || structure.Roles[1].Permissions != 8 {
		t.Errorf("roles not parsed: %+v", structure.Roles)
	}
	if len(structure.Channels) != 2 || structure.Channels[1].ParentID != "700" {
		t.Errorf("channels not parsed: %+v", structure.Channels)
	}
	if structure.Channels[1].Overwrites[0].Allow != 1024 {
		t.Errorf("overwrites not parsed: %+v", structure.Channels[1].Overwrites)
	}
}

func TestCreateRole(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/guilds/123/roles", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"900","name":"mods","permissions":"8"}`))
	})

	client := newTestREST(t, mux)
	role, err := client.CreateRole(context.Background(), "123", RoleParams{Name: "mods", Permissions: 8})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if role.ID != "900" {
		t.Errorf("role ID = %q, want 900", role.ID)
	}
}

func TestRateLimitSignal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/guilds/123/roles", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"retry_after": 2.5, "global": false}`))
	})

	client := newTestREST(t, mux)
	_, err := client.CreateRole(context.Background(), "123", RoleParams{Name: "x"})

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("error = %v, want *RateLimitError", err)
	}
	if rateErr.RetryAfter != 2500*time.Millisecond {
		t.Errorf("RetryAfter = %s, want 2.5s", rateErr.RetryAfter)
	}
}

func TestRateLimitHeaderFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/guilds/123/channels", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{}`))
	})

	client := newTestREST(t, mux)
	_, err := client.CreateChannel(context.Background(), "123", ChannelParams{Name: "x"})

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("error = %v, want *RateLimitError", err)
	}
	if rateErr.RetryAfter != 3*time.Second {
		t.Errorf("RetryAfter = %s, want 3s", rateErr.RetryAfter)
	}
}

func TestAPIErrorParsing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/guilds/123/roles", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": 30005, "message": "Maximum number of guild roles reached (250)"}`))
	})

	client := newTestREST(t, mux)
	_, err := client.CreateRole(context.Background(), "123", RoleParams{Name: "x"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != ErrCodeMaxRoles {
		t.Errorf("Code = %d, want %d", apiErr.Code, ErrCodeMaxRoles)
	}
	if !IsEntityLimit(err) {
		t.Error("IsEntityLimit = false for max-roles rejection")
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		auth      bool
		transient bool
	}{
		{"forbidden", &APIError{StatusCode: 403}, true, false},
		{"unauthorized", &APIError{StatusCode: 401}, true, false},
		{"server error", &APIError{StatusCode: 502}, false, true},
		{"bad request", &APIError{StatusCode: 400}, false, false},
		{"rate limit", &RateLimitError{RetryAfter: time.Second}, false, false},
		{"transport", errors.New("connection refused"), false, true},
	}

	for _, tt := range tests {
		if got := IsAuthorization(tt.err); got != tt.auth {
			t.Errorf("%s: IsAuthorization = %v, want %v", tt.name, got, tt.auth)
		}
		if got := IsTransient(tt.err); got != tt.transient {
			t.Errorf("%s: IsTransient = %v, want %v", tt.name, got, tt.transient)
		}
	}
}

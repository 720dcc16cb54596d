package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

func TestFetchPlantImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/plant-images" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("query") != "fern" || r.URL.Query().Get("page") != "2" {
			t.Errorf("unexpected query string %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"hits":[{"id":7,"webformatURL":"p","largeImageURL":"f","tags":"fern, green","user":"u"}],"total":1,"totalHits":1}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL+"/", time.Second).FetchPlantImages(context.Background(), "fern", 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].ID != 7 || resp.Hits[0].FullURL != "f" {
		t.Errorf("unexpected page: %#v", resp)
	}
}

func TestGetPlantRecommendations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req models.RecommendationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Query != "" || req.ImageData != "aGVsbG8=" {
			t.Errorf("unexpected request %#v", req)
		}
		w.Write([]byte(`[{"name":"Aloe","recommendation":"Needs sun"}]`))
	}))
	defer srv.Close()

	recs, err := New(srv.URL, time.Second).GetPlantRecommendations(context.Background(), "", "aGVsbG8=")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "Aloe" {
		t.Errorf("unexpected recommendations: %#v", recs)
	}
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to get plant recommendations"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).GetPlantRecommendations(context.Background(), "rose", "")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != 500 || statusErr.Message != "Failed to get plant recommendations" {
		t.Errorf("unexpected status error: %#v", statusErr)
	}
}

func TestClientCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, time.Second).FetchPlantImages(ctx, "rose", 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

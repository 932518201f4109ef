// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package sejmapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/plenumlab/plenum/internal/config"
)

// testClient builds a client against a test server with fast retry timing.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(&config.SejmConfig{
		BaseURL:        srv.URL,
		Timeout:        5 * time.Second,
		RateLimit:      1000,
		RateBurst:      1000,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	})
}

func TestClubsDecodesPayload(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/term10/clubs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "KO", "name": "Koalicja Obywatelska", "membersCount": 157},
			{"id": "PiS", "name": "Prawo i Sprawiedliwość", "membersCount": 188}
		]`))
	}))

	clubs, err := c.Clubs(context.Background(), 10)
	if err != nil {
		t.Fatalf("Clubs failed: %v", err)
	}
	if len(clubs) != 2 {
		t.Fatalf("got %d clubs, want 2", len(clubs))
	}
	if clubs[0].ID != "KO" || clubs[0].MembersCount != 157 {
		t.Errorf("unexpected first club: %+v", clubs[0])
	}
}

func TestVotingsNotFoundIsEmptyResult(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	votings, err := c.Votings(context.Background(), 10, 99)
	if err != nil {
		t.Fatalf("404 on a list endpoint should be a valid empty result, got %v", err)
	}
	if votings != nil {
		t.Errorf("got %v, want nil", votings)
	}
}

func TestVotingDetailNotFoundPropagates(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Voting(context.Background(), 10, 1, 999)
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestTransientErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"num": 10, "from": "2023-11-13", "current": true}]`))
	}))

	terms, err := c.Terms(context.Background())
	if err != nil {
		t.Fatalf("Terms failed after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if len(terms) != 1 || terms[0].Num != 10 {
		t.Errorf("unexpected terms: %+v", terms)
	}
}

func TestRateLimitedRetriedWithRetryAfter(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	if _, err := c.MPs(context.Background(), 10); err != nil {
		t.Fatalf("MPs failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestClientErrorIsPermanentNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))

	_, err := c.Processes(context.Background(), 10, 50, 0)
	if !IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("permanent failure retried: calls = %d", calls.Load())
	}
}

func TestShapeMismatchIsPermanent(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Voting missing required title and date fields.
		_, _ = w.Write([]byte(`{"votingNumber": 7, "yes": 10, "no": 2, "votes": []}`))
	}))

	_, err := c.Voting(context.Background(), 10, 1, 7)
	if !IsPermanent(err) {
		t.Fatalf("expected permanent error for shape mismatch, got %v", err)
	}
}

func TestMalformedJSONIsPermanent(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))

	_, err := c.Clubs(context.Background(), 10)
	if !IsPermanent(err) {
		t.Fatalf("expected permanent error for malformed body, got %v", err)
	}
}

func TestVotingDetailsFullRoundTrip(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/term10/votings/23/45" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"term": 10, "sitting": 23, "votingNumber": 45,
			"date": "2024-03-07T16:12:00", "title": "Głosowanie",
			"yes": 231, "no": 202, "abstain": 5, "notParticipating": 22,
			"votes": [{"MP": 1, "club": "KO", "vote": "YES"}]
		}`))
	}))

	details, err := c.Voting(context.Background(), 10, 23, 45)
	if err != nil {
		t.Fatalf("Voting failed: %v", err)
	}
	if details.Yes != 231 || len(details.Votes) != 1 {
		t.Errorf("unexpected details: %+v", details)
	}
}

func TestContextCancellationStopsRequest(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.Terms(ctx); err == nil {
		t.Fatal("expected error from canceled context")
	}
}
